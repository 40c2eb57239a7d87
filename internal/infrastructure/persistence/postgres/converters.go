package postgres

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rezkam/cadence/internal/domain"
)

// === pgtype Conversion Helpers ===

// civilToPgDate converts a calendar date to pgtype.Date.
func civilToPgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// civilPtrToPgDate converts *civil.Date to pgtype.Date (NULL for nil).
func civilPtrToPgDate(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{Valid: false}
	}
	return civilToPgDate(*d)
}

// pgDateToCivilPtr converts pgtype.Date to *civil.Date (nil if NULL).
func pgDateToCivilPtr(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	date := civil.DateOf(d.Time)
	return &date
}

// pgtypeToTime converts pgtype.Timestamptz to time.Time (zero if invalid).
// Always returns time in UTC location for consistent timezone handling.
func pgtypeToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// pgtypeToTimePtr converts pgtype.Timestamptz to *time.Time (nil if invalid).
func pgtypeToTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	utcTime := t.Time.UTC()
	return &utcTime
}

// timePtrToPgtype converts *time.Time to pgtype.Timestamptz (NULL for nil).
func timePtrToPgtype(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// validID reports whether id can be stored in a UUID column.
// Malformed ids can never match a row, so lookups treat them as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// === Row Scanning ===

type rowScanner interface {
	Scan(dest ...any) error
}

const definitionColumns = `id::text, category, title, notes, rule, generated_through, created_at, updated_at`

func scanDefinition(row rowScanner) (*domain.Definition, error) {
	var (
		def              domain.Definition
		ruleJSON         []byte
		generatedThrough pgtype.Date
		createdAt        pgtype.Timestamptz
		updatedAt        pgtype.Timestamptz
	)
	if err := row.Scan(&def.ID, &def.Category, &def.Title, &def.Notes, &ruleJSON, &generatedThrough, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rule, err := domain.UnmarshalRule(ruleJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule of definition %s: %w", def.ID, err)
	}
	def.Rule = rule
	def.GeneratedThrough = pgDateToCivilPtr(generatedThrough)
	def.CreatedAt = pgtypeToTime(createdAt)
	def.UpdatedAt = pgtypeToTime(updatedAt)
	return &def, nil
}

const instanceColumns = `id::text, definition_id::text, occurs_on, status, notes, completed_at, created_at, updated_at`

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var (
		inst        domain.Instance
		occursOn    pgtype.Date
		status      string
		completedAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&inst.ID, &inst.DefinitionID, &occursOn, &status, &inst.Notes, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	inst.OccursOn = civil.DateOf(occursOn.Time)
	inst.Status = domain.InstanceStatus(status)
	inst.CompletedAt = pgtypeToTimePtr(completedAt)
	inst.CreatedAt = pgtypeToTime(createdAt)
	inst.UpdatedAt = pgtypeToTime(updatedAt)
	return &inst, nil
}
