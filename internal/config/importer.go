package config

import (
	"fmt"

	"github.com/rezkam/cadence/internal/env"
)

// ImporterConfig holds all configuration for the importer binary.
type ImporterConfig struct {
	Database      DatabaseConfig
	Tracker       TrackerConfig
	Observability ObservabilityConfig

	// Concurrency bounds parallel row parsing (0 = GOMAXPROCS).
	Concurrency int `env:"CADENCE_IMPORT_CONCURRENCY"`
}

// Validate validates importer configuration.
func (c *ImporterConfig) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("CADENCE_IMPORT_CONCURRENCY must be >= 0, got %d", c.Concurrency)
	}
	return nil
}

// LoadImporterConfig loads and validates importer configuration from environment.
func LoadImporterConfig() (*ImporterConfig, error) {
	cfg := &ImporterConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load importer config: %w", err)
	}

	return cfg, nil
}
