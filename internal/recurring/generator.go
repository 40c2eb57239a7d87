package recurring

import (
	"fmt"
	"iter"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// Generate returns the dates on which rule occurs within [windowStart, windowEnd],
// sorted ascending with no duplicates.
//
// The rule is validated before any date is computed; an invalid rule yields an
// error matching domain.ErrInvalidRule and no dates. A window ending before it
// starts yields an empty result.
//
// Daily, Weekly, Monthly and Yearly rules are further bounded by their range.
// An occurrences cap counts from range.startDate, so the same first N dates are
// kept whatever window is asked for. Without a range start it counts from windowStart.
func Generate(rule domain.Rule, windowStart, windowEnd civil.Date) ([]civil.Date, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: nil rule", domain.ErrInvalidRule)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if !windowStart.IsValid() || !windowEnd.IsValid() {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidWindow, windowStart, windowEnd)
	}

	dates := []civil.Date{}
	if windowEnd.Before(windowStart) {
		return dates, nil
	}

	from, to := windowStart, windowEnd
	limit := -1

	rng := domain.RangeOf(rule)
	if rng != nil {
		if rng.StartDate != nil && rng.StartDate.After(from) {
			from = *rng.StartDate
		}
		switch rng.Ends() {
		case domain.EndDate:
			if rng.EndDate.Before(to) {
				to = *rng.EndDate
			}
		case domain.EndOccurrences:
			limit = *rng.Occurrences
		}
	}
	if to.Before(from) {
		return dates, nil
	}

	// Without a range start the count begins at windowStart.
	genFrom := from
	if limit >= 0 && rng.StartDate != nil {
		genFrom = *rng.StartDate
	}

	seq, err := occurrences(rule, windowStart, genFrom, to)
	if err != nil {
		return nil, err
	}

	produced := 0
	for d := range seq {
		if limit >= 0 && produced == limit {
			break
		}
		produced++
		if d.Before(from) {
			continue
		}
		dates = append(dates, d)
	}

	slices.SortFunc(dates, compareDates)
	return slices.Compact(dates), nil
}

// occurrences dispatches to the pattern for the rule's variant.
func occurrences(rule domain.Rule, windowStart, from, to civil.Date) (iter.Seq[civil.Date], error) {
	rangeStart := windowStart
	if rng := domain.RangeOf(rule); rng != nil && rng.StartDate != nil {
		rangeStart = *rng.StartDate
	}

	switch r := rule.(type) {
	case domain.DailyRule:
		return dailyDates(r, rangeStart, from, to), nil
	case domain.WeeklyRule:
		return weeklyDates(r, rangeStart, from, to), nil
	case domain.MonthlyRule:
		anchorMonth := 0
		if rng := r.Range; rng != nil && rng.StartDate != nil {
			anchorMonth = monthIndex(rng.StartDate.Year, rng.StartDate.Month)
		}
		return monthlyDates(r, anchorMonth, from, to), nil
	case domain.BimonthlyRule:
		return bimonthlyDates(r, from, to), nil
	case domain.QuarterlyRule:
		return quarterlyDates(r, from, to), nil
	case domain.YearlyRule:
		return yearlyDates(r, rangeStart.Year, from, to), nil
	case domain.NthWeekdayRule:
		return nthWeekdayDates(r, from, to), nil
	case domain.MultiMonthRule:
		return multiMonthDates(r, from, to), nil
	case domain.MultiDateRule:
		return multiDateDates(r, from, to), nil
	case domain.MultiYearRule:
		return multiYearDates(r, from, to), nil
	case domain.OneTimeRule:
		return oneTimeDates(r, from, to), nil
	case domain.AsNeededRule, domain.AsOccursRule:
		return noDates, nil
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownRuleType, rule)
	}
}
