package tracker

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// Repository defines storage operations for task definitions and their instances.
type Repository interface {
	// === Definition Operations ===

	// CreateDefinition persists a new definition.
	CreateDefinition(ctx context.Context, def *domain.Definition) error

	// FindDefinitionByID retrieves a definition by its ID.
	// Returns domain.ErrDefinitionNotFound if it doesn't exist.
	FindDefinitionByID(ctx context.Context, id string) (*domain.Definition, error)

	// ListDefinitions retrieves definitions ordered by category, then title.
	ListDefinitions(ctx context.Context, params domain.ListDefinitionsParams) ([]*domain.Definition, error)

	// UpdateDefinitionRule replaces a definition's rule and bumps UpdatedAt.
	// Returns domain.ErrDefinitionNotFound if it doesn't exist.
	UpdateDefinitionRule(ctx context.Context, id string, rule domain.Rule) error

	// DeleteDefinition deletes a definition together with all of its instances.
	// Returns domain.ErrDefinitionNotFound if it doesn't exist.
	DeleteDefinition(ctx context.Context, id string) error

	// FindStaleDefinitions returns definitions never populated or populated
	// only up to a date before through.
	FindStaleDefinitions(ctx context.Context, through civil.Date) ([]*domain.Definition, error)

	// SetGeneratedThrough records the last date instances were generated through.
	SetGeneratedThrough(ctx context.Context, definitionID string, through civil.Date) error

	// === Instance Operations ===

	// FindInstanceByID retrieves a single instance.
	// Returns domain.ErrInstanceNotFound if it doesn't exist.
	FindInstanceByID(ctx context.Context, id string) (*domain.Instance, error)

	// ListInstances retrieves instances ordered by date, then definition.
	ListInstances(ctx context.Context, params domain.ListInstancesParams) ([]*domain.Instance, error)

	// UpdateInstance updates an instance using field mask.
	// Returns domain.ErrInstanceNotFound if it doesn't exist.
	UpdateInstance(ctx context.Context, params domain.UpdateInstanceParams) (*domain.Instance, error)

	// BatchInsertInstancesIgnoreConflict inserts instances, skipping any whose
	// (definition_id, occurs_on) already exists. Returns the number inserted.
	BatchInsertInstancesIgnoreConflict(ctx context.Context, instances []domain.Instance) (int, error)

	// DeletePendingInstancesFrom deletes pending instances of a definition
	// dated on or after from. Completed and skipped instances are kept.
	DeletePendingInstancesFrom(ctx context.Context, definitionID string, from civil.Date) (int, error)

	// Atomic executes fn within a transaction.
	// All operations inside fn succeed together or fail together.
	Atomic(ctx context.Context, fn func(repo Repository) error) error
}
