package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.AgentName)
	assert.Equal(t, "CLI", cfg.AgentID)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./nimbex-catalog.db", cfg.CatalogPath)
	assert.Equal(t, 1024, cfg.MaxSizeMB)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nimbex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"agent_name: Examiner\nagent_id: EX001\noutput_dir: /evidence\nmax_size_mb: 256\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Examiner", cfg.AgentName)
	assert.Equal(t, "EX001", cfg.AgentID)
	assert.Equal(t, "/evidence", cfg.OutputDir)
	assert.Equal(t, 256, cfg.MaxSizeMB)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "./nimbex-catalog.db", cfg.CatalogPath)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nimbex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent_id: FROM_FILE\n"), 0o600))

	t.Setenv("NIMBEX_AGENT_ID", "FROM_ENV")
	t.Setenv("NIMBEX_OUTPUT_DIR", "/env/output")
	t.Setenv("NIMBEX_MAX_SIZE_MB", "64")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "FROM_ENV", cfg.AgentID)
	assert.Equal(t, "/env/output", cfg.OutputDir)
	assert.Equal(t, 64, cfg.MaxSizeMB)
}

func TestLoadBadEnvSize(t *testing.T) {
	t.Setenv("NIMBEX_MAX_SIZE_MB", "not-a-number")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent_name: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
