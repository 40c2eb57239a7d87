// Package persistence selects and opens the configured storage backend.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/application/worker"
	"github.com/rezkam/cadence/internal/config"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/sqlite"
)

// Store is a migrated, ready-to-use repository that owns its connections.
type Store interface {
	tracker.Repository
	Close() error
}

var (
	_ Store             = (*postgres.Store)(nil)
	_ Store             = (*sqlite.Store)(nil)
	_ worker.Repository = (Store)(nil)
)

// Open connects to the backend named by cfg.Driver and applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "dsn", MaskPassword(cfg.DSN))
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// MaskPassword masks the password in a connection string for logging.
func MaskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
