package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/compliance"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreCompliance(t *testing.T) {
	compliance.RunRepositoryComplianceTest(t, func(t *testing.T) tracker.Repository {
		return newTestStore(t)
	})
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.NewStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	defs, err := store.ListDefinitions(context.Background(), domain.ListDefinitionsParams{})
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.db")

	first, err := sqlite.NewStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.NewStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSQLiteStore_ForeignKeysEnabled(t *testing.T) {
	store := newTestStore(t)

	var enabled int
	require.NoError(t, store.DB().QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}
