package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Definition is an aggregate root describing a recurring task: what recurs
// (category, title) and how often (the recurrence rule).
//
// Instances are NOT included in this aggregate. They are generated from the
// rule and fetched separately via ListInstances.
type Definition struct {
	ID       string
	Category string
	Title    string
	Notes    string

	// Rule is the recurrence pattern, persisted as an opaque JSON blob.
	Rule Rule

	// GeneratedThrough is the last calendar date instances were generated through.
	// nil until the first population.
	GeneratedThrough *civil.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Instance is one concrete dated occurrence of a Definition.
// (DefinitionID, OccursOn) is its natural key: generation inserts if absent.
type Instance struct {
	ID           string
	DefinitionID string
	OccursOn     civil.Date

	Status      InstanceStatus
	Notes       string
	CompletedAt *time.Time // Set while Status is completed

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default population horizon for new definitions: this calendar year plus
// DefaultHorizonYearsAhead following years.
const DefaultHorizonYearsAhead = 1

// HorizonWindow returns the population window for a definition created on today:
// Jan 1 of today's year through Dec 31 of the year yearsAhead later.
func HorizonWindow(today civil.Date, yearsAhead int) (civil.Date, civil.Date) {
	from := civil.Date{Year: today.Year, Month: time.January, Day: 1}
	to := civil.Date{Year: today.Year + yearsAhead, Month: time.December, Day: 31}
	return from, to
}

// Field names for Instance update masks.
const (
	FieldInstanceStatus = "status"
	FieldInstanceNotes  = "notes"
)

// UpdateInstanceParams contains parameters for updating an instance with field mask support.
type UpdateInstanceParams struct {
	InstanceID string

	// UpdateMask specifies which fields to update.
	// Only fields in this list will be modified.
	UpdateMask []string

	// Field values (only applied if field is in UpdateMask)
	Status      *InstanceStatus
	Notes       *string
	CompletedAt *time.Time // Written together with status
}
