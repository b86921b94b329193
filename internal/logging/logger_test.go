package logging

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRFC5424Logger(t *testing.T) {
	logger, err := NewRFC5424Logger("TestApp")
	require.NoError(t, err)
	assert.Equal(t, "TestApp", logger.appName)
	assert.NotEmpty(t, logger.hostname)
	assert.NotEmpty(t, logger.processID)
	assert.Empty(t, logger.GetLogs())
}

func TestLogLevelsAreCaptured(t *testing.T) {
	logger, err := NewRFC5424Logger("TestApp")
	require.NoError(t, err)

	logger.LogInfo("info message", nil)
	logger.LogWarn("warn message", map[string]string{"key": "value"})
	logger.LogError("error message", nil)
	logger.LogDebug("debug message", nil)

	logs := logger.GetLogs()
	require.Len(t, logs, 4)
	assert.Contains(t, logs[0], "info message")
	assert.Contains(t, logs[1], "warn message")
	assert.Contains(t, logs[2], "error message")
	assert.Contains(t, logs[3], "debug message")

	for _, entry := range logs {
		assert.True(t, strings.HasPrefix(entry, "<"), "entry should carry a priority header: %s", entry)
		assert.Contains(t, entry, "TestApp")
	}
}

func TestGetLogsReturnsCopy(t *testing.T) {
	logger, err := NewRFC5424Logger("TestApp")
	require.NoError(t, err)
	logger.LogInfo("original", nil)

	logs := logger.GetLogs()
	logs[0] = "mutated"

	assert.Contains(t, logger.GetLogs()[0], "original")
}

func TestClearLogs(t *testing.T) {
	logger, err := NewRFC5424Logger("TestApp")
	require.NoError(t, err)
	logger.LogInfo("something", nil)
	require.NotEmpty(t, logger.GetLogs())

	logger.ClearLogs()
	assert.Empty(t, logger.GetLogs())
}

func TestConcurrentLogging(t *testing.T) {
	logger, err := NewRFC5424Logger("TestApp")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.LogInfo("concurrent entry", nil)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, logger.GetLogs(), 200)
}

func TestDefaultLoggerIsSafeWhenUninitialized(t *testing.T) {
	saved := DefaultLogger
	DefaultLogger = nil
	defer func() { DefaultLogger = saved }()

	// Package-level helpers must not panic before InitDefaultLogger.
	LogInfo("ignored", nil)
	LogWarn("ignored", nil)
	LogError("ignored", nil)
	LogDebug("ignored", nil)
}

func TestInitDefaultLogger(t *testing.T) {
	saved := DefaultLogger
	defer func() { DefaultLogger = saved }()

	require.NoError(t, InitDefaultLogger())
	require.NotNil(t, DefaultLogger)
	DefaultLogger.ClearLogs()

	LogInfo("via default", nil)
	logs := DefaultLogger.GetLogs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "via default")
}
