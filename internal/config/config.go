// Package config loads agent configuration from an optional YAML file with
// NIMBEX_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the agent.
type Config struct {
	AgentName   string `yaml:"agent_name"`
	AgentID     string `yaml:"agent_id"`
	OutputDir   string `yaml:"output_dir"`
	CatalogPath string `yaml:"catalog_path"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
}

func defaults() *Config {
	return &Config{
		AgentName:   currentUser(),
		AgentID:     "CLI",
		OutputDir:   "./output",
		CatalogPath: "./nimbex-catalog.db",
		MaxSizeMB:   1024,
	}
}

// Load reads the configuration file at path (missing file is fine, the
// defaults apply) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file; defaults plus environment.
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.AgentName = getEnv("NIMBEX_AGENT_NAME", cfg.AgentName)
	cfg.AgentID = getEnv("NIMBEX_AGENT_ID", cfg.AgentID)
	cfg.OutputDir = getEnv("NIMBEX_OUTPUT_DIR", cfg.OutputDir)
	cfg.CatalogPath = getEnv("NIMBEX_CATALOG_PATH", cfg.CatalogPath)
	if v := os.Getenv("NIMBEX_MAX_SIZE_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing NIMBEX_MAX_SIZE_MB: %w", err)
		}
		cfg.MaxSizeMB = n
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func currentUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}
