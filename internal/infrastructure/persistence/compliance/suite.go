package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRepositoryComplianceTest runs the shared repository behavior suite.
// setup must return a fresh (empty) repository for every subtest.
func RunRepositoryComplianceTest(t *testing.T, setup func(t *testing.T) tracker.Repository) {
	t.Run("CreateAndFindDefinition", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		start := civil.Date{Year: 2026, Month: time.January, Day: 5}
		def := newDefinition("Payroll", "File 941")
		def.Notes = "IRS quarterly"
		def.Rule = domain.DailyRule{WeekdaysOnly: true, Range: &domain.Range{
			StartDate:   &start,
			EndType:     domain.EndOccurrences,
			Occurrences: ptr.To(10),
		}}
		require.NoError(t, repo.CreateDefinition(ctx, def))

		got, err := repo.FindDefinitionByID(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, def.ID, got.ID)
		assert.Equal(t, "Payroll", got.Category)
		assert.Equal(t, "File 941", got.Title)
		assert.Equal(t, "IRS quarterly", got.Notes)
		assert.Equal(t, def.Rule, got.Rule)
		assert.Nil(t, got.GeneratedThrough)
		assert.WithinDuration(t, def.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("FindDefinitionNotFound", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		_, err := repo.FindDefinitionByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

		_, err = repo.FindDefinitionByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("ListDefinitions", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		for _, d := range []*domain.Definition{
			newDefinition("Safety", "Fire drill"),
			newDefinition("Payroll", "W-2"),
			newDefinition("Payroll", "941"),
		} {
			require.NoError(t, repo.CreateDefinition(ctx, d))
		}

		all, err := repo.ListDefinitions(ctx, domain.ListDefinitionsParams{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"941", "W-2", "Fire drill"}, titles(all))

		payroll, err := repo.ListDefinitions(ctx, domain.ListDefinitionsParams{Category: ptr.To("Payroll")})
		require.NoError(t, err)
		assert.Equal(t, []string{"941", "W-2"}, titles(payroll))

		none, err := repo.ListDefinitions(ctx, domain.ListDefinitionsParams{Category: ptr.To("Legal")})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateDefinitionRule", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("Tax", "Sales tax")
		require.NoError(t, repo.CreateDefinition(ctx, def))

		rule := domain.MultiDateRule{Dates: []domain.MonthDay{{Month: 4, Day: 15}, {Month: 10, Day: 15}}}
		require.NoError(t, repo.UpdateDefinitionRule(ctx, def.ID, rule))

		got, err := repo.FindDefinitionByID(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, rule, got.Rule)

		err = repo.UpdateDefinitionRule(ctx, uuid.NewString(), rule)
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("GeneratedThroughAndStaleDefinitions", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		never := newDefinition("A", "never populated")
		behind := newDefinition("A", "behind")
		current := newDefinition("A", "current")
		for _, d := range []*domain.Definition{never, behind, current} {
			require.NoError(t, repo.CreateDefinition(ctx, d))
		}

		horizon := civil.Date{Year: 2027, Month: time.December, Day: 31}
		require.NoError(t, repo.SetGeneratedThrough(ctx, behind.ID, civil.Date{Year: 2026, Month: time.December, Day: 31}))
		require.NoError(t, repo.SetGeneratedThrough(ctx, current.ID, horizon))

		stale, err := repo.FindStaleDefinitions(ctx, horizon)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{never.ID, behind.ID}, ids(stale))

		got, err := repo.FindDefinitionByID(ctx, current.ID)
		require.NoError(t, err)
		require.NotNil(t, got.GeneratedThrough)
		assert.Equal(t, horizon, *got.GeneratedThrough)

		err = repo.SetGeneratedThrough(ctx, uuid.NewString(), horizon)
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("BatchInsertIgnoresConflicts", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "Monthly")
		require.NoError(t, repo.CreateDefinition(ctx, def))

		jan := civil.Date{Year: 2026, Month: time.January, Day: 1}
		feb := civil.Date{Year: 2026, Month: time.February, Day: 1}
		mar := civil.Date{Year: 2026, Month: time.March, Day: 1}

		n, err := repo.BatchInsertInstancesIgnoreConflict(ctx, newInstances(def.ID, jan, feb))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.BatchInsertInstancesIgnoreConflict(ctx, newInstances(def.ID, jan, feb, mar))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.BatchInsertInstancesIgnoreConflict(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := repo.ListInstances(ctx, domain.ListInstancesParams{DefinitionID: &def.ID})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []civil.Date{jan, feb, mar}, dates(got))
	})

	t.Run("ListInstancesFilters", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		a := newDefinition("A", "a")
		b := newDefinition("B", "b")
		require.NoError(t, repo.CreateDefinition(ctx, a))
		require.NoError(t, repo.CreateDefinition(ctx, b))

		d1 := civil.Date{Year: 2026, Month: time.March, Day: 1}
		d2 := civil.Date{Year: 2026, Month: time.March, Day: 15}
		d3 := civil.Date{Year: 2026, Month: time.April, Day: 1}
		_, err := repo.BatchInsertInstancesIgnoreConflict(ctx, newInstances(a.ID, d1, d2, d3))
		require.NoError(t, err)
		bInstances := newInstances(b.ID, d2)
		_, err = repo.BatchInsertInstancesIgnoreConflict(ctx, bInstances)
		require.NoError(t, err)

		_, err = repo.UpdateInstance(ctx, domain.UpdateInstanceParams{
			InstanceID: bInstances[0].ID,
			UpdateMask: []string{domain.FieldInstanceStatus},
			Status:     ptr.To(domain.InstanceStatusSkipped),
		})
		require.NoError(t, err)

		all, err := repo.ListInstances(ctx, domain.ListInstancesParams{})
		require.NoError(t, err)
		assert.Equal(t, []civil.Date{d1, d2, d2, d3}, dates(all))

		window, err := repo.ListInstances(ctx, domain.ListInstancesParams{From: &d2, To: &d2})
		require.NoError(t, err)
		assert.Len(t, window, 2)

		pending := domain.InstanceStatusPending
		open, err := repo.ListInstances(ctx, domain.ListInstancesParams{Status: &pending, From: &d2})
		require.NoError(t, err)
		assert.Equal(t, []civil.Date{d2, d3}, dates(open))
		for _, inst := range open {
			assert.Equal(t, a.ID, inst.DefinitionID)
		}

		limited, err := repo.ListInstances(ctx, domain.ListInstancesParams{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []civil.Date{d1}, dates(limited))
	})

	t.Run("UpdateInstance", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "a")
		require.NoError(t, repo.CreateDefinition(ctx, def))
		instances := newInstances(def.ID, civil.Date{Year: 2026, Month: time.June, Day: 30})
		_, err := repo.BatchInsertInstancesIgnoreConflict(ctx, instances)
		require.NoError(t, err)
		id := instances[0].ID

		completedAt := time.Date(2026, time.June, 29, 14, 30, 0, 0, time.UTC)
		got, err := repo.UpdateInstance(ctx, domain.UpdateInstanceParams{
			InstanceID:  id,
			UpdateMask:  []string{domain.FieldInstanceStatus, domain.FieldInstanceNotes},
			Status:      ptr.To(domain.InstanceStatusCompleted),
			Notes:       ptr.To("filed online"),
			CompletedAt: &completedAt,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.InstanceStatusCompleted, got.Status)
		assert.Equal(t, "filed online", got.Notes)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, completedAt.Equal(*got.CompletedAt))

		got, err = repo.UpdateInstance(ctx, domain.UpdateInstanceParams{
			InstanceID: id,
			UpdateMask: []string{domain.FieldInstanceStatus},
			Status:     ptr.To(domain.InstanceStatusPending),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.InstanceStatusPending, got.Status)
		assert.Nil(t, got.CompletedAt)
		assert.Equal(t, "filed online", got.Notes)

		found, err := repo.FindInstanceByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, got.Status, found.Status)

		_, err = repo.UpdateInstance(ctx, domain.UpdateInstanceParams{
			InstanceID: uuid.NewString(),
			UpdateMask: []string{domain.FieldInstanceNotes},
			Notes:      ptr.To("x"),
		})
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

		_, err = repo.FindInstanceByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("DeletePendingInstancesFrom", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "a")
		require.NoError(t, repo.CreateDefinition(ctx, def))

		past := civil.Date{Year: 2026, Month: time.September, Day: 1}
		done := civil.Date{Year: 2026, Month: time.November, Day: 1}
		future := civil.Date{Year: 2026, Month: time.December, Day: 1}
		instances := newInstances(def.ID, past, done, future)
		_, err := repo.BatchInsertInstancesIgnoreConflict(ctx, instances)
		require.NoError(t, err)

		_, err = repo.UpdateInstance(ctx, domain.UpdateInstanceParams{
			InstanceID: instances[1].ID,
			UpdateMask: []string{domain.FieldInstanceStatus},
			Status:     ptr.To(domain.InstanceStatusCompleted),
		})
		require.NoError(t, err)

		n, err := repo.DeletePendingInstancesFrom(ctx, def.ID, civil.Date{Year: 2026, Month: time.October, Day: 19})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		left, err := repo.ListInstances(ctx, domain.ListInstancesParams{DefinitionID: &def.ID})
		require.NoError(t, err)
		assert.Equal(t, []civil.Date{past, done}, dates(left))
	})

	t.Run("DeleteDefinitionCascades", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "a")
		require.NoError(t, repo.CreateDefinition(ctx, def))
		_, err := repo.BatchInsertInstancesIgnoreConflict(ctx, newInstances(def.ID, civil.Date{Year: 2026, Month: time.May, Day: 1}))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteDefinition(ctx, def.ID))

		_, err = repo.FindDefinitionByID(ctx, def.ID)
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
		left, err := repo.ListInstances(ctx, domain.ListInstancesParams{DefinitionID: &def.ID})
		require.NoError(t, err)
		assert.Empty(t, left)

		assert.ErrorIs(t, repo.DeleteDefinition(ctx, def.ID), domain.ErrDefinitionNotFound)
	})

	t.Run("AtomicRollsBack", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "rolled back")
		errAbort := errors.New("abort")
		err := repo.Atomic(ctx, func(tx tracker.Repository) error {
			if err := tx.CreateDefinition(ctx, def); err != nil {
				return err
			}
			if _, err := tx.BatchInsertInstancesIgnoreConflict(ctx, newInstances(def.ID, civil.Date{Year: 2026, Month: time.May, Day: 1})); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		_, err = repo.FindDefinitionByID(ctx, def.ID)
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("AtomicCommits", func(t *testing.T) {
		repo := setup(t)
		ctx := context.Background()

		def := newDefinition("A", "committed")
		through := civil.Date{Year: 2027, Month: time.December, Day: 31}
		err := repo.Atomic(ctx, func(tx tracker.Repository) error {
			if err := tx.CreateDefinition(ctx, def); err != nil {
				return err
			}
			return tx.SetGeneratedThrough(ctx, def.ID, through)
		})
		require.NoError(t, err)

		got, err := repo.FindDefinitionByID(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, through, *got.GeneratedThrough)
	})
}

func newDefinition(category, title string) *domain.Definition {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Definition{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Category:  category,
		Title:     title,
		Rule:      domain.MonthlyRule{DayOfMonth: 1},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newInstances(definitionID string, on ...civil.Date) []domain.Instance {
	now := time.Now().UTC().Truncate(time.Microsecond)
	out := make([]domain.Instance, 0, len(on))
	for _, d := range on {
		out = append(out, domain.Instance{
			ID:           uuid.Must(uuid.NewV7()).String(),
			DefinitionID: definitionID,
			OccursOn:     d,
			Status:       domain.InstanceStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return out
}

func titles(defs []*domain.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Title)
	}
	return out
}

func ids(defs []*domain.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func dates(instances []*domain.Instance) []civil.Date {
	out := make([]civil.Date, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.OccursOn)
	}
	return out
}
