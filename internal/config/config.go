// Package config loads and validates picklight.yml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the configuration when no
// --config flag is given.
const DefaultPath = "picklight.yml"

// Config represents the top-level picklight.yml configuration.
type Config struct {
	Version string        `yaml:"version"`
	Data    DataConfig    `yaml:"data"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Lights  LightsConfig  `yaml:"lights,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// DataConfig locates the data directory tree.
type DataConfig struct {
	Root string `yaml:"root"` // Directory holding data/master, data/movements, data/indexes, data/schema
}

// ServerConfig configures the embedded web UI/API server.
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"` // Default: 127.0.0.1:8090
}

// LightsConfig configures controller communication.
type LightsConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"` // Per-controller request bound. Default: 5s
}

// MetricsConfig toggles the Prometheus endpoint on the server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Data.Root == "" {
		return fmt.Errorf("data.root is required")
	}
	if c.Lights.Timeout < 0 {
		return fmt.Errorf("lights.timeout cannot be negative")
	}
	return nil
}

// applyDefaults fills in the optional settings.
func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8090"
	}
	if c.Lights.Timeout == 0 {
		c.Lights.Timeout = 5 * time.Second
	}
}

// Load reads and validates picklight.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}
