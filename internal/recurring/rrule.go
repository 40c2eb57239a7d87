package recurring

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/teambition/rrule-go"
)

// ErrNotExpressible is returned when a rule has no single-RRULE equivalent.
var ErrNotExpressible = errors.New("rule cannot be expressed as an RRULE")

// rruleWeekdays maps 0 = Sunday day numbers to RRULE weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ToRRule exports rule as an RFC 5545 recurrence (DTSTART line included when the
// rule has a start date) for calendar interop.
func ToRRule(rule domain.Rule) (string, error) {
	opt, err := RRuleOption(rule)
	if err != nil {
		return "", err
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("failed to build rrule for %s rule: %w", rule.Type(), err)
	}
	return r.String(), nil
}

// RRuleOption maps rule onto rrule-go options. Dtstart is left zero unless the
// rule carries its own start.
func RRuleOption(rule domain.Rule) (rrule.ROption, error) {
	if rule == nil {
		return rrule.ROption{}, fmt.Errorf("%w: nil rule", domain.ErrInvalidRule)
	}
	if err := rule.Validate(); err != nil {
		return rrule.ROption{}, err
	}

	var opt rrule.ROption
	switch r := rule.(type) {
	case domain.DailyRule:
		opt = rrule.ROption{Freq: rrule.DAILY, Interval: domain.IntervalOrDefault(r.Interval)}
		if r.WeekdaysOnly {
			opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
		}
	case domain.WeeklyRule:
		opt = rrule.ROption{Freq: rrule.WEEKLY, Interval: domain.IntervalOrDefault(r.Interval), Wkst: rrule.SU}
		for _, wd := range r.Weekdays() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case domain.MonthlyRule:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Interval: domain.IntervalOrDefault(r.Interval)}
		setDay(&opt, r.DayOfMonth, r.UseNthWeekday, r.NthWeek, r.NthDayOfWeek)
	case domain.BimonthlyRule:
		first := 2
		if r.MonthParity == domain.ParityOdd {
			first = 1
		}
		opt = rrule.ROption{Freq: rrule.MONTHLY, Bymonth: stepMonths(first, 2)}
		setDay(&opt, r.DayOfMonth, false, 0, 0)
	case domain.QuarterlyRule:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Bymonth: stepMonths(r.MonthOfQuarter, 3)}
		setDay(&opt, r.DayOfMonth, false, 0, 0)
	case domain.YearlyRule:
		opt = rrule.ROption{Freq: rrule.YEARLY, Interval: domain.IntervalOrDefault(r.Interval), Bymonth: []int{r.Month}}
		setDay(&opt, r.DayOfMonth, r.UseNthWeekday, r.NthWeek, r.NthDayOfWeek)
	case domain.NthWeekdayRule:
		opt = rrule.ROption{Freq: rrule.MONTHLY}
		if r.Month != 0 {
			opt.Freq = rrule.YEARLY
			opt.Bymonth = []int{r.Month}
		}
		setDay(&opt, 0, true, r.N, r.DayOfWeek)
	case domain.MultiMonthRule:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Bymonth: r.Months}
		setDay(&opt, r.DayOfMonth, false, 0, 0)
	case domain.MultiYearRule:
		opt = rrule.ROption{
			Freq:     rrule.YEARLY,
			Interval: r.Interval,
			Bymonth:  []int{r.Month},
			Dtstart:  dateTime(civil.Date{Year: r.BaseYear, Month: time.January, Day: 1}),
		}
		setDay(&opt, r.DayOfMonth, false, 0, 0)
	case domain.OneTimeRule:
		opt = rrule.ROption{Freq: rrule.DAILY, Count: 1, Dtstart: dateTime(r.Date)}
	default:
		return rrule.ROption{}, fmt.Errorf("%w: %s", ErrNotExpressible, rule.Type())
	}

	if rng := domain.RangeOf(rule); rng != nil {
		if rng.StartDate != nil {
			start := *rng.StartDate
			// RRULE counts weeks from DTSTART's week; start on the first selected day.
			if r, ok := rule.(domain.WeeklyRule); ok {
				start = firstWeeklyDate(r, start)
			}
			opt.Dtstart = dateTime(start)
		}
		switch rng.Ends() {
		case domain.EndDate:
			opt.Until = dateTime(*rng.EndDate)
		case domain.EndOccurrences:
			opt.Count = *rng.Occurrences
		}
	}

	return opt, nil
}

// setDay selects either the nth weekday or a day of month. Days past the 28th
// become "the last of 28..day" so short months clamp instead of being skipped;
// the set position is per period, so multi-month rules must use MONTHLY.
func setDay(opt *rrule.ROption, day int, useNth bool, nth, weekday int) {
	if useNth {
		n := nth
		if n == domain.LastWeek {
			n = -1
		}
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[weekday].Nth(n)}
		return
	}
	if day <= 28 {
		opt.Bymonthday = []int{day}
		return
	}
	for d := 28; d <= day; d++ {
		opt.Bymonthday = append(opt.Bymonthday, d)
	}
	opt.Bysetpos = []int{-1}
}

func stepMonths(first, step int) []int {
	var months []int
	for m := first; m <= 12; m += step {
		months = append(months, m)
	}
	return months
}

func dateTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}
