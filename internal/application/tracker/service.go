package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/recurring"
)

// Default configuration values.
const (
	DefaultMaxWindowYears = 50
)

// Config holds configuration for the Service.
type Config struct {
	// HorizonYearsAhead is how many years past the current one are populated on create.
	HorizonYearsAhead int
	// MaxWindowYears bounds any caller-supplied generation window.
	MaxWindowYears int
	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// InstanceGenerator builds pending instances for a definition within a window.
type InstanceGenerator interface {
	GenerateInstances(def *domain.Definition, from, to civil.Date) ([]domain.Instance, error)
}

// CreateDefinitionInput contains the caller-supplied fields of a new definition.
type CreateDefinitionInput struct {
	Category string
	Title    string
	Notes    string
	Rule     domain.Rule
}

// Service provides business logic for compliance task tracking.
// It orchestrates operations using the Repository interface.
type Service struct {
	repo      Repository
	generator InstanceGenerator
	config    Config
}

// NewService creates a new tracker service.
// Applies application defaults for zero or invalid config values.
func NewService(repo Repository, generator InstanceGenerator, config Config) *Service {
	if config.HorizonYearsAhead <= 0 {
		config.HorizonYearsAhead = domain.DefaultHorizonYearsAhead
	}
	if config.MaxWindowYears <= 0 {
		config.MaxWindowYears = DefaultMaxWindowYears
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{
		repo:      repo,
		generator: generator,
		config:    config,
	}
}

// Today returns the current calendar date in UTC.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.config.Now().UTC())
}

// HorizonEnd returns the last date every definition should be populated through.
func (s *Service) HorizonEnd() civil.Date {
	_, to := domain.HorizonWindow(s.Today(), s.config.HorizonYearsAhead)
	return to
}

// CreateDefinition validates and persists a new definition, then populates its
// instances from Jan 1 of the current year through the end of the horizon.
func (s *Service) CreateDefinition(ctx context.Context, input CreateDefinitionInput) (*domain.Definition, error) {
	title, err := domain.NewTitle(input.Title)
	if err != nil {
		return nil, err
	}

	rule, err := s.prepareRule(input.Rule)
	if err != nil {
		return nil, err
	}

	idObj, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.config.Now().UTC()
	def := &domain.Definition{
		ID:        idObj.String(),
		Category:  strings.TrimSpace(input.Category),
		Title:     title.String(),
		Notes:     strings.TrimSpace(input.Notes),
		Rule:      rule,
		CreatedAt: now,
		UpdatedAt: now,
	}

	from, to := domain.HorizonWindow(s.Today(), s.config.HorizonYearsAhead)
	instances, err := s.generator.GenerateInstances(def, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to generate instances: %w", err)
	}

	if err := s.persistDefinition(ctx, def, instances, to); err != nil {
		return nil, err
	}
	return def, nil
}

// ImportDefinition persists a definition built elsewhere (the spreadsheet importer)
// together with its pre-generated instances, recording through as its generated-through date.
func (s *Service) ImportDefinition(ctx context.Context, def *domain.Definition, instances []domain.Instance, through civil.Date) (*domain.Definition, error) {
	title, err := domain.NewTitle(def.Title)
	if err != nil {
		return nil, err
	}
	if def.Rule == nil {
		return nil, domain.ErrInvalidRule
	}
	if err := def.Rule.Validate(); err != nil {
		return nil, err
	}
	def.Title = title.String()

	if err := s.persistDefinition(ctx, def, instances, through); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *Service) persistDefinition(ctx context.Context, def *domain.Definition, instances []domain.Instance, through civil.Date) error {
	err := s.repo.Atomic(ctx, func(repo Repository) error {
		if err := repo.CreateDefinition(ctx, def); err != nil {
			return fmt.Errorf("failed to create definition: %w", err)
		}
		if len(instances) > 0 {
			if _, err := repo.BatchInsertInstancesIgnoreConflict(ctx, instances); err != nil {
				return fmt.Errorf("failed to insert instances: %w", err)
			}
		}
		if err := repo.SetGeneratedThrough(ctx, def.ID, through); err != nil {
			return fmt.Errorf("failed to set generated through: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	def.GeneratedThrough = &through
	return nil
}

// GetDefinition retrieves a definition by ID.
func (s *Service) GetDefinition(ctx context.Context, id string) (*domain.Definition, error) {
	if id == "" {
		return nil, domain.ErrDefinitionNotFound
	}
	return s.repo.FindDefinitionByID(ctx, id)
}

// ListDefinitions retrieves definitions, optionally filtered by category.
func (s *Service) ListDefinitions(ctx context.Context, params domain.ListDefinitionsParams) ([]*domain.Definition, error) {
	if params.Category != nil {
		category := strings.TrimSpace(*params.Category)
		params.Category = &category
	}
	return s.repo.ListDefinitions(ctx, params)
}

// DeleteDefinition deletes a definition and all of its instances.
func (s *Service) DeleteDefinition(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrDefinitionNotFound
	}
	return s.repo.DeleteDefinition(ctx, id)
}

// UpdateDefinitionRule replaces a definition's rule. Pending instances from today
// on are discarded and regenerated under the new rule; history and resolved
// instances are kept.
func (s *Service) UpdateDefinitionRule(ctx context.Context, id string, newRule domain.Rule) (*domain.Definition, error) {
	if id == "" {
		return nil, domain.ErrDefinitionNotFound
	}

	rule, err := s.prepareRule(newRule)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var updated *domain.Definition

	err = s.repo.Atomic(ctx, func(repo Repository) error {
		def, err := repo.FindDefinitionByID(ctx, id)
		if err != nil {
			return err
		}

		through := s.HorizonEnd()
		if def.GeneratedThrough != nil && def.GeneratedThrough.After(through) {
			through = *def.GeneratedThrough
		}

		if err := repo.UpdateDefinitionRule(ctx, id, rule); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}
		if _, err := repo.DeletePendingInstancesFrom(ctx, id, today); err != nil {
			return fmt.Errorf("failed to delete pending instances: %w", err)
		}

		def.Rule = rule
		def.UpdatedAt = s.config.Now().UTC()

		instances, err := s.generator.GenerateInstances(def, today, through)
		if err != nil {
			return fmt.Errorf("failed to generate instances: %w", err)
		}
		if len(instances) > 0 {
			if _, err := repo.BatchInsertInstancesIgnoreConflict(ctx, instances); err != nil {
				return fmt.Errorf("failed to insert instances: %w", err)
			}
		}
		if err := repo.SetGeneratedThrough(ctx, id, through); err != nil {
			return fmt.Errorf("failed to set generated through: %w", err)
		}

		def.GeneratedThrough = &through
		updated = def
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// PopulateWindow generates a definition's instances within [from, to], inserting
// only those not already present. Returns the number of instances inserted.
func (s *Service) PopulateWindow(ctx context.Context, id string, from, to civil.Date) (int, error) {
	if err := s.checkWindow(from, to); err != nil {
		return 0, err
	}

	def, err := s.GetDefinition(ctx, id)
	if err != nil {
		return 0, err
	}

	instances, err := s.generator.GenerateInstances(def, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to generate instances: %w", err)
	}

	var inserted int
	err = s.repo.Atomic(ctx, func(repo Repository) error {
		if len(instances) > 0 {
			n, err := repo.BatchInsertInstancesIgnoreConflict(ctx, instances)
			if err != nil {
				return fmt.Errorf("failed to insert instances: %w", err)
			}
			inserted = n
		}
		if def.GeneratedThrough == nil || def.GeneratedThrough.Before(to) {
			if err := repo.SetGeneratedThrough(ctx, def.ID, to); err != nil {
				return fmt.Errorf("failed to set generated through: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// PreviewRule returns the dates rule produces within [from, to] without persisting anything.
func (s *Service) PreviewRule(rule domain.Rule, from, to civil.Date) ([]civil.Date, error) {
	if err := s.checkWindow(from, to); err != nil {
		return nil, err
	}
	return recurring.Generate(rule, from, to)
}

// DefinitionRRule exports a definition's rule as an RFC 5545 RRULE string.
// Returns recurring.ErrNotExpressible for rules RRULE cannot express.
func (s *Service) DefinitionRRule(ctx context.Context, id string) (string, error) {
	def, err := s.GetDefinition(ctx, id)
	if err != nil {
		return "", err
	}
	return recurring.ToRRule(def.Rule)
}

// ListInstances retrieves instances matching the filter.
func (s *Service) ListInstances(ctx context.Context, params domain.ListInstancesParams) ([]*domain.Instance, error) {
	if params.From != nil && !params.From.IsValid() {
		return nil, domain.ErrInvalidWindow
	}
	if params.To != nil && !params.To.IsValid() {
		return nil, domain.ErrInvalidWindow
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, domain.ErrInvalidWindow
	}
	if params.Limit < 0 {
		params.Limit = 0
	}
	return s.repo.ListInstances(ctx, params)
}

// CompleteInstance marks an instance completed, stamping the completion time.
func (s *Service) CompleteInstance(ctx context.Context, id string) (*domain.Instance, error) {
	now := s.config.Now().UTC()
	return s.setStatus(ctx, id, domain.InstanceStatusCompleted, &now)
}

// SkipInstance marks an instance skipped.
func (s *Service) SkipInstance(ctx context.Context, id string) (*domain.Instance, error) {
	return s.setStatus(ctx, id, domain.InstanceStatusSkipped, nil)
}

// ReopenInstance moves an instance back to pending, clearing its completion time.
func (s *Service) ReopenInstance(ctx context.Context, id string) (*domain.Instance, error) {
	return s.setStatus(ctx, id, domain.InstanceStatusPending, nil)
}

// AnnotateInstance replaces an instance's notes.
func (s *Service) AnnotateInstance(ctx context.Context, id, notes string) (*domain.Instance, error) {
	if id == "" {
		return nil, domain.ErrInstanceNotFound
	}
	trimmed := strings.TrimSpace(notes)
	return s.updateInstance(ctx, domain.UpdateInstanceParams{
		InstanceID: id,
		UpdateMask: []string{domain.FieldInstanceNotes},
		Notes:      &trimmed,
	})
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.InstanceStatus, completedAt *time.Time) (*domain.Instance, error) {
	if id == "" {
		return nil, domain.ErrInstanceNotFound
	}
	return s.updateInstance(ctx, domain.UpdateInstanceParams{
		InstanceID:  id,
		UpdateMask:  []string{domain.FieldInstanceStatus},
		Status:      &status,
		CompletedAt: completedAt,
	})
}

func (s *Service) updateInstance(ctx context.Context, params domain.UpdateInstanceParams) (*domain.Instance, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateInstance(ctx, params)
}

// prepareRule validates a rule. A rangeable rule whose dates depend on where
// counting starts (occurrence-bounded, or interval above 1) and that has no
// range start is first anchored at today, so every later window agrees.
func (s *Service) prepareRule(rule domain.Rule) (domain.Rule, error) {
	if rule == nil {
		return nil, domain.ErrInvalidRule
	}

	if needsAnchor(rule) {
		var stamped domain.Range
		if rng := domain.RangeOf(rule); rng != nil {
			stamped = *rng
		}
		today := s.Today()
		stamped.StartDate = &today
		rule = domain.WithRange(rule, &stamped)
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func needsAnchor(rule domain.Rule) bool {
	rng := domain.RangeOf(rule)
	if rng != nil && rng.StartDate != nil {
		return false
	}
	if rng.Ends() == domain.EndOccurrences {
		return true
	}

	var interval int
	switch r := rule.(type) {
	case domain.DailyRule:
		interval = r.Interval
	case domain.WeeklyRule:
		interval = r.Interval
	case domain.MonthlyRule:
		interval = r.Interval
	case domain.YearlyRule:
		interval = r.Interval
	default:
		return false
	}
	return interval > 1
}

// checkWindow rejects malformed windows and windows spanning more than MaxWindowYears.
func (s *Service) checkWindow(from, to civil.Date) error {
	if !from.IsValid() || !to.IsValid() {
		return domain.ErrInvalidWindow
	}
	limit := recurring.ClampedDate(from.Year+s.config.MaxWindowYears, from.Month, from.Day)
	if to.After(limit) {
		return fmt.Errorf("%w: %s to %s exceeds %d years", domain.ErrWindowTooLarge, from, to, s.config.MaxWindowYears)
	}
	return nil
}
