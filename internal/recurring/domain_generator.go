package recurring

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rezkam/cadence/internal/domain"
)

// DomainGenerator turns a definition's occurrence dates into pending instances.
// Both definition creation and spreadsheet import go through it.
type DomainGenerator struct {
	now func() time.Time
}

// NewDomainGenerator creates a new instance generator stamping instances with the current UTC time.
func NewDomainGenerator() *DomainGenerator {
	return &DomainGenerator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// GenerateInstances generates pending instances for a definition within [from, to].
func (g *DomainGenerator) GenerateInstances(def *domain.Definition, from, to civil.Date) ([]domain.Instance, error) {
	dates, err := Generate(def.Rule, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dates for definition %s: %w", def.ID, err)
	}

	instances := make([]domain.Instance, 0, len(dates))
	for _, date := range dates {
		instance, err := g.createInstance(def, date)
		if err != nil {
			return nil, fmt.Errorf("failed to create instance for %s: %w", date, err)
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// createInstance creates a single pending instance for a specific date.
func (g *DomainGenerator) createInstance(def *domain.Definition, date civil.Date) (domain.Instance, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Instance{}, fmt.Errorf("failed to generate instance ID: %w", err)
	}

	now := g.now()
	return domain.Instance{
		ID:           id.String(),
		DefinitionID: def.ID,
		OccursOn:     date,
		Status:       domain.InstanceStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
