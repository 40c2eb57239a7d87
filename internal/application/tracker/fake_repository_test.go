package tracker

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// fakeRepository is an in-memory Repository. Atomic snapshots state and
// restores it when the callback fails.
type fakeRepository struct {
	definitions map[string]domain.Definition
	instances   map[string]domain.Instance

	failSetGeneratedThrough error
}

var _ Repository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		definitions: make(map[string]domain.Definition),
		instances:   make(map[string]domain.Instance),
	}
}

func (f *fakeRepository) CreateDefinition(_ context.Context, def *domain.Definition) error {
	f.definitions[def.ID] = *def
	return nil
}

func (f *fakeRepository) FindDefinitionByID(_ context.Context, id string) (*domain.Definition, error) {
	def, ok := f.definitions[id]
	if !ok {
		return nil, domain.ErrDefinitionNotFound
	}
	return &def, nil
}

func (f *fakeRepository) ListDefinitions(_ context.Context, params domain.ListDefinitionsParams) ([]*domain.Definition, error) {
	var out []*domain.Definition
	for _, def := range f.definitions {
		if params.Category != nil && def.Category != *params.Category {
			continue
		}
		out = append(out, &def)
	}
	slices.SortFunc(out, func(a, b *domain.Definition) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Title, b.Title))
	})
	return out, nil
}

func (f *fakeRepository) UpdateDefinitionRule(_ context.Context, id string, rule domain.Rule) error {
	def, ok := f.definitions[id]
	if !ok {
		return domain.ErrDefinitionNotFound
	}
	def.Rule = rule
	def.UpdatedAt = time.Now().UTC()
	f.definitions[id] = def
	return nil
}

func (f *fakeRepository) DeleteDefinition(_ context.Context, id string) error {
	if _, ok := f.definitions[id]; !ok {
		return domain.ErrDefinitionNotFound
	}
	delete(f.definitions, id)
	maps.DeleteFunc(f.instances, func(_ string, inst domain.Instance) bool {
		return inst.DefinitionID == id
	})
	return nil
}

func (f *fakeRepository) FindStaleDefinitions(_ context.Context, through civil.Date) ([]*domain.Definition, error) {
	var out []*domain.Definition
	for _, def := range f.definitions {
		if def.GeneratedThrough == nil || def.GeneratedThrough.Before(through) {
			out = append(out, &def)
		}
	}
	return out, nil
}

func (f *fakeRepository) SetGeneratedThrough(_ context.Context, definitionID string, through civil.Date) error {
	if f.failSetGeneratedThrough != nil {
		return f.failSetGeneratedThrough
	}
	def, ok := f.definitions[definitionID]
	if !ok {
		return domain.ErrDefinitionNotFound
	}
	def.GeneratedThrough = &through
	f.definitions[definitionID] = def
	return nil
}

func (f *fakeRepository) FindInstanceByID(_ context.Context, id string) (*domain.Instance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return &inst, nil
}

func (f *fakeRepository) ListInstances(_ context.Context, params domain.ListInstancesParams) ([]*domain.Instance, error) {
	var out []*domain.Instance
	for _, inst := range f.instances {
		if params.DefinitionID != nil && inst.DefinitionID != *params.DefinitionID {
			continue
		}
		if params.Status != nil && inst.Status != *params.Status {
			continue
		}
		if params.From != nil && inst.OccursOn.Before(*params.From) {
			continue
		}
		if params.To != nil && inst.OccursOn.After(*params.To) {
			continue
		}
		out = append(out, &inst)
	}
	slices.SortFunc(out, func(a, b *domain.Instance) int {
		return cmp.Or(a.OccursOn.DaysSince(b.OccursOn), cmp.Compare(a.DefinitionID, b.DefinitionID))
	})
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeRepository) UpdateInstance(_ context.Context, params domain.UpdateInstanceParams) (*domain.Instance, error) {
	inst, ok := f.instances[params.InstanceID]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	for _, field := range params.UpdateMask {
		switch field {
		case domain.FieldInstanceStatus:
			inst.Status = *params.Status
			inst.CompletedAt = params.CompletedAt
		case domain.FieldInstanceNotes:
			inst.Notes = *params.Notes
		}
	}
	inst.UpdatedAt = time.Now().UTC()
	f.instances[inst.ID] = inst
	return &inst, nil
}

func (f *fakeRepository) BatchInsertInstancesIgnoreConflict(_ context.Context, instances []domain.Instance) (int, error) {
	inserted := 0
	for _, inst := range instances {
		if f.hasInstance(inst.DefinitionID, inst.OccursOn) {
			continue
		}
		f.instances[inst.ID] = inst
		inserted++
	}
	return inserted, nil
}

func (f *fakeRepository) DeletePendingInstancesFrom(_ context.Context, definitionID string, from civil.Date) (int, error) {
	before := len(f.instances)
	maps.DeleteFunc(f.instances, func(_ string, inst domain.Instance) bool {
		return inst.DefinitionID == definitionID &&
			inst.Status == domain.InstanceStatusPending &&
			!inst.OccursOn.Before(from)
	})
	return before - len(f.instances), nil
}

func (f *fakeRepository) Atomic(_ context.Context, fn func(repo Repository) error) error {
	defs := maps.Clone(f.definitions)
	insts := maps.Clone(f.instances)
	if err := fn(f); err != nil {
		f.definitions = defs
		f.instances = insts
		return err
	}
	return nil
}

func (f *fakeRepository) hasInstance(definitionID string, on civil.Date) bool {
	for _, inst := range f.instances {
		if inst.DefinitionID == definitionID && inst.OccursOn == on {
			return true
		}
	}
	return false
}

func (f *fakeRepository) instancesOf(definitionID string) []domain.Instance {
	var out []domain.Instance
	for _, inst := range f.instances {
		if inst.DefinitionID == definitionID {
			out = append(out, inst)
		}
	}
	slices.SortFunc(out, func(a, b domain.Instance) int { return a.OccursOn.DaysSince(b.OccursOn) })
	return out
}
