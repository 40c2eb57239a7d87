package postgres_test

import (
	"context"
	"testing"

	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/config"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/compliance"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreCompliance(t *testing.T) {
	cfg, err := config.LoadTestConfig()
	if err != nil {
		t.Skipf("Failed to load test config: %v", err)
	}
	if cfg.Database.DSN == "" {
		t.Skip("CADENCE_DB_DSN not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, cfg.Database.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	compliance.RunRepositoryComplianceTest(t, func(t *testing.T) tracker.Repository {
		_, err := store.Pool().Exec(ctx, "TRUNCATE TABLE instances, definitions CASCADE")
		require.NoError(t, err)
		return store
	})
}
