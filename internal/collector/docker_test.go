package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogArgsDefaults(t *testing.T) {
	args := logArgs("abc123", Params{})
	assert.Equal(t, []string{"logs", "--timestamps", "--tail", defaultLogTail, "abc123"}, args)
}

func TestLogArgsTimeWindow(t *testing.T) {
	args := logArgs("abc123", Params{
		"tail":       "500",
		"start_time": "2026-08-01T00:00:00Z",
		"end_time":   "2026-08-02T00:00:00Z",
	})
	assert.Equal(t, []string{
		"logs", "--timestamps", "--tail", "500",
		"--since", "2026-08-01T00:00:00Z",
		"--until", "2026-08-02T00:00:00Z",
		"abc123",
	}, args)
}

func TestDockerSupportedSources(t *testing.T) {
	d := NewDockerCollector(t.TempDir())
	sources := d.SupportedSources()
	assert.Contains(t, sources, DockerContainerLogs)
	assert.Contains(t, sources, DockerAllContainers)
	assert.Len(t, sources, 5)
}
