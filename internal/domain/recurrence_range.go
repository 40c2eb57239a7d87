package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// EndType controls how a recurrence range terminates.
type EndType string

const (
	EndNever       EndType = "never"
	EndDate        EndType = "date"
	EndOccurrences EndType = "occurrences"
)

// Range bounds a Daily, Weekly, Monthly or Yearly rule.
//
// Generation is limited to [max(windowStart, StartDate), min(windowEnd, EndDate)].
// With EndType occurrences, only the first Occurrences dates counted from
// StartDate are kept, regardless of where the query window starts. Without a
// StartDate the count begins at the window start.
type Range struct {
	StartDate   *civil.Date `json:"startDate,omitempty"`
	EndType     EndType     `json:"endType,omitempty"`
	EndDate     *civil.Date `json:"endDate,omitempty"`
	Occurrences *int        `json:"occurrences,omitempty"`
}

// Ends returns the effective end type (empty means never).
func (r *Range) Ends() EndType {
	if r == nil || r.EndType == "" {
		return EndNever
	}
	return r.EndType
}

func (r *Range) validate(t RuleType) error {
	if r == nil {
		return nil
	}
	if r.StartDate != nil && !r.StartDate.IsValid() {
		return invalidRule(t, "range.startDate", fmt.Sprintf("is not a valid calendar date: %s", r.StartDate))
	}

	switch r.Ends() {
	case EndNever:
		return nil
	case EndDate:
		if r.EndDate == nil {
			return invalidRule(t, "range.endDate", "is required when endType is date")
		}
		if !r.EndDate.IsValid() {
			return invalidRule(t, "range.endDate", fmt.Sprintf("is not a valid calendar date: %s", r.EndDate))
		}
		if r.StartDate != nil && r.EndDate.Before(*r.StartDate) {
			return invalidRule(t, "range.endDate", "must not be before range.startDate")
		}
		return nil
	case EndOccurrences:
		if r.Occurrences == nil || *r.Occurrences < 1 {
			return invalidRule(t, "range.occurrences", "must be >= 1 when endType is occurrences")
		}
		return nil
	default:
		return invalidRule(t, "range.endType", fmt.Sprintf("unsupported value %q", r.EndType))
	}
}
