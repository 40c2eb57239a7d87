package config

import (
	"fmt"

	"github.com/rezkam/cadence/internal/env"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	Database DatabaseConfig
}

// LoadTestConfig loads test configuration from environment without validating it:
// an empty CADENCE_DB_DSN means integration tests skip.
func LoadTestConfig() (*TestConfig, error) {
	cfg := &TestConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load test config: %w", err)
	}

	return cfg, nil
}
