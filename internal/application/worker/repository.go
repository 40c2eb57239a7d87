package worker

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// Repository defines the storage operations the horizon worker needs.
// The postgres and sqlite stores satisfy it alongside tracker.Repository.
type Repository interface {
	// FindStaleDefinitions returns definitions never populated or populated
	// only up to a date before through.
	FindStaleDefinitions(ctx context.Context, through civil.Date) ([]*domain.Definition, error)

	// BatchInsertInstancesIgnoreConflict inserts instances, skipping any whose
	// (definition_id, occurs_on) already exists. Returns the number inserted.
	BatchInsertInstancesIgnoreConflict(ctx context.Context, instances []domain.Instance) (int, error)

	// SetGeneratedThrough records the last date instances were generated through.
	SetGeneratedThrough(ctx context.Context, definitionID string, through civil.Date) error
}
