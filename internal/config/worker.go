package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rezkam/cadence/internal/env"
)

// WorkerConfig holds all configuration for the worker binary.
type WorkerConfig struct {
	Database         DatabaseConfig
	Tracker          TrackerConfig
	Observability    ObservabilityConfig
	Schedule         string        `env:"CADENCE_WORKER_SCHEDULE" default:"@daily"`
	OperationTimeout time.Duration `env:"CADENCE_WORKER_OPERATION_TIMEOUT" default:"5m"`
	RunOnce          bool          `env:"CADENCE_WORKER_RUN_ONCE" default:"false"`
}

// Validate validates worker configuration.
func (c *WorkerConfig) Validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid CADENCE_WORKER_SCHEDULE %q: %w", c.Schedule, err)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("CADENCE_WORKER_OPERATION_TIMEOUT must be positive, got %s", c.OperationTimeout)
	}
	return nil
}

// LoadWorkerConfig loads and validates worker configuration from environment.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	return cfg, nil
}
