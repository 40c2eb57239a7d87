package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rezkam/cadence/internal/domain"
)

// Describe renders a short human-readable label for rule, used in import previews.
func Describe(rule domain.Rule) string {
	if rule == nil {
		return ""
	}
	return describeRule(rule) + describeRange(domain.RangeOf(rule))
}

func describeRule(rule domain.Rule) string {
	switch r := rule.(type) {
	case domain.DailyRule:
		unit := "day"
		if r.WeekdaysOnly {
			unit = "weekday"
		}
		if n := domain.IntervalOrDefault(r.Interval); n > 1 {
			if r.WeekdaysOnly {
				return fmt.Sprintf("Every %d days, weekdays only", n)
			}
			return fmt.Sprintf("Every %d days", n)
		}
		return "Every " + unit
	case domain.WeeklyRule:
		days := make([]string, 0, len(r.Weekdays()))
		for _, wd := range r.Weekdays() {
			days = append(days, time.Weekday(wd).String())
		}
		if n := domain.IntervalOrDefault(r.Interval); n > 1 {
			return fmt.Sprintf("Every %d weeks on %s", n, strings.Join(days, ", "))
		}
		return "Every " + strings.Join(days, ", ")
	case domain.MonthlyRule:
		prefix := "Monthly"
		if n := domain.IntervalOrDefault(r.Interval); n > 1 {
			prefix = fmt.Sprintf("Every %d months", n)
		}
		if r.UseNthWeekday {
			return fmt.Sprintf("%s on the %s %s", prefix, ordinalWord(r.NthWeek), time.Weekday(r.NthDayOfWeek))
		}
		return fmt.Sprintf("%s on day %d", prefix, r.DayOfMonth)
	case domain.BimonthlyRule:
		return fmt.Sprintf("%s months on day %d", capitalize(string(r.MonthParity)), r.DayOfMonth)
	case domain.QuarterlyRule:
		return fmt.Sprintf("Quarterly, month %d of each quarter on day %d", r.MonthOfQuarter, r.DayOfMonth)
	case domain.YearlyRule:
		prefix := "Yearly"
		if n := domain.IntervalOrDefault(r.Interval); n > 1 {
			prefix = fmt.Sprintf("Every %d years", n)
		}
		if r.UseNthWeekday {
			return fmt.Sprintf("%s on the %s %s of %s", prefix, ordinalWord(r.NthWeek), time.Weekday(r.NthDayOfWeek), time.Month(r.Month))
		}
		return fmt.Sprintf("%s on %s %d", prefix, time.Month(r.Month), r.DayOfMonth)
	case domain.NthWeekdayRule:
		where := "every month"
		if r.Month != 0 {
			where = time.Month(r.Month).String()
		}
		return fmt.Sprintf("%s %s of %s", capitalize(ordinalWord(r.N)), time.Weekday(r.DayOfWeek), where)
	case domain.MultiMonthRule:
		months := make([]string, 0, len(r.Months))
		for _, m := range r.Months {
			months = append(months, monthLabel(m))
		}
		return fmt.Sprintf("%s on day %d", strings.Join(months, ", "), r.DayOfMonth)
	case domain.MultiDateRule:
		pairs := make([]string, 0, len(r.Dates))
		for _, md := range r.Dates {
			pairs = append(pairs, monthLabel(md.Month)+" "+strconv.Itoa(md.Day))
		}
		return "Every " + strings.Join(pairs, " and ")
	case domain.MultiYearRule:
		return fmt.Sprintf("Every %d years on %s %d from %d", r.Interval, time.Month(r.Month), r.DayOfMonth, r.BaseYear)
	case domain.OneTimeRule:
		return "Once on " + r.Date.String()
	case domain.AsNeededRule:
		return "As needed"
	case domain.AsOccursRule:
		return "As occurs"
	default:
		return string(rule.Type())
	}
}

func describeRange(rng *domain.Range) string {
	if rng == nil {
		return ""
	}
	var parts []string
	if rng.StartDate != nil {
		parts = append(parts, "starting "+rng.StartDate.String())
	}
	switch rng.Ends() {
	case domain.EndDate:
		if rng.EndDate != nil {
			parts = append(parts, "until "+rng.EndDate.String())
		}
	case domain.EndOccurrences:
		if rng.Occurrences != nil {
			parts = append(parts, fmt.Sprintf("%d times", *rng.Occurrences))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

func ordinalWord(n int) string {
	if n < 1 || n >= len(ordinalWords) {
		return strconv.Itoa(n)
	}
	return ordinalWords[n]
}

func monthLabel(m int) string {
	if m < 1 || m >= len(monthShort) {
		return strconv.Itoa(m)
	}
	return monthShort[m]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
