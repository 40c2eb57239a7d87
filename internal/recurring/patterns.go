package recurring

import (
	"iter"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// Each pattern yields its dates in [from, to] in ascending order.
// Patterns that honor an interval receive the anchor the count starts from.

func dailyDates(r domain.DailyRule, anchor, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		interval := domain.IntervalOrDefault(r.Interval)

		// First date at or after from that is a whole number of intervals past the anchor.
		d := from.AddDays(floorMod(-from.DaysSince(anchor), interval))
		for ; !d.After(to); d = d.AddDays(interval) {
			if r.WeekdaysOnly && !IsWeekday(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

func weeklyDates(r domain.WeeklyRule, anchor, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		interval := domain.IntervalOrDefault(r.Interval)
		days := weekdaySet(r)

		// Weeks are counted from the week holding the first matching date.
		anchorWeek := weekStart(firstWeeklyDate(r, anchor))
		for d := from; !d.After(to); d = d.AddDays(1) {
			if !days[Weekday(d)] {
				continue
			}
			week := weekStart(d).DaysSince(anchorWeek) / 7
			if floorMod(week, interval) != 0 {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// firstWeeklyDate returns the first date on or after anchor whose weekday the rule selects.
func firstWeeklyDate(r domain.WeeklyRule, anchor civil.Date) civil.Date {
	days := weekdaySet(r)
	d := anchor
	for i := 0; i < 7 && !days[Weekday(d)]; i++ {
		d = d.AddDays(1)
	}
	return d
}

func weekdaySet(r domain.WeeklyRule) [7]bool {
	var days [7]bool
	for _, wd := range r.Weekdays() {
		days[wd] = true
	}
	return days
}

func monthlyDates(r domain.MonthlyRule, anchorMonth int, from, to civil.Date) iter.Seq[civil.Date] {
	interval := domain.IntervalOrDefault(r.Interval)
	return monthDates(from, to, func(year int, month time.Month) (civil.Date, bool) {
		if floorMod(monthIndex(year, month)-anchorMonth, interval) != 0 {
			return civil.Date{}, false
		}
		return dayInMonth(year, month, r.DayOfMonth, r.UseNthWeekday, r.NthWeek, r.NthDayOfWeek)
	})
}

func bimonthlyDates(r domain.BimonthlyRule, from, to civil.Date) iter.Seq[civil.Date] {
	even := r.MonthParity == domain.ParityEven
	return monthDates(from, to, func(year int, month time.Month) (civil.Date, bool) {
		if (month%2 == 0) != even {
			return civil.Date{}, false
		}
		return ClampedDate(year, month, r.DayOfMonth), true
	})
}

func quarterlyDates(r domain.QuarterlyRule, from, to civil.Date) iter.Seq[civil.Date] {
	return monthDates(from, to, func(year int, month time.Month) (civil.Date, bool) {
		// Quarters start in January, April, July and October.
		if int(month-1)%3 != r.MonthOfQuarter-1 {
			return civil.Date{}, false
		}
		return ClampedDate(year, month, r.DayOfMonth), true
	})
}

func yearlyDates(r domain.YearlyRule, anchorYear int, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		interval := domain.IntervalOrDefault(r.Interval)
		for year := from.Year; year <= to.Year; year++ {
			if floorMod(year-anchorYear, interval) != 0 {
				continue
			}
			d, ok := dayInMonth(year, time.Month(r.Month), r.DayOfMonth, r.UseNthWeekday, r.NthWeek, r.NthDayOfWeek)
			if !ok || !within(d, from, to) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

func nthWeekdayDates(r domain.NthWeekdayRule, from, to civil.Date) iter.Seq[civil.Date] {
	return monthDates(from, to, func(year int, month time.Month) (civil.Date, bool) {
		if r.Month != 0 && int(month) != r.Month {
			return civil.Date{}, false
		}
		d, err := NthWeekdayOfMonth(year, month, r.N, time.Weekday(r.DayOfWeek))
		return d, err == nil
	})
}

func multiMonthDates(r domain.MultiMonthRule, from, to civil.Date) iter.Seq[civil.Date] {
	return monthDates(from, to, func(year int, month time.Month) (civil.Date, bool) {
		if !slices.Contains(r.Months, int(month)) {
			return civil.Date{}, false
		}
		return ClampedDate(year, month, r.DayOfMonth), true
	})
}

func multiDateDates(r domain.MultiDateRule, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for year := from.Year; year <= to.Year; year++ {
			var dates []civil.Date
			for _, md := range r.Dates {
				d := ClampedDate(year, time.Month(md.Month), md.Day)
				if within(d, from, to) {
					dates = append(dates, d)
				}
			}
			// Pairs may be listed in any order.
			slices.SortFunc(dates, compareDates)
			for _, d := range slices.Compact(dates) {
				if !yield(d) {
					return
				}
			}
		}
	}
}

func multiYearDates(r domain.MultiYearRule, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for year := from.Year; year <= to.Year; year++ {
			if (year-r.BaseYear)%r.Interval != 0 {
				continue
			}
			d := ClampedDate(year, time.Month(r.Month), r.DayOfMonth)
			if !within(d, from, to) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

func oneTimeDates(r domain.OneTimeRule, from, to civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		if within(r.Date, from, to) {
			yield(r.Date)
		}
	}
}

func noDates(yield func(civil.Date) bool) {}

// monthDates walks every month overlapping [from, to] and yields the date pick
// selects for it, dropping dates outside the window.
func monthDates(from, to civil.Date, pick func(year int, month time.Month) (civil.Date, bool)) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for idx := monthIndex(from.Year, from.Month); idx <= monthIndex(to.Year, to.Month); idx++ {
			year, month := idx/12, time.Month(idx%12+1)
			d, ok := pick(year, month)
			if !ok || !within(d, from, to) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// dayInMonth resolves either a clamped fixed day or the nth weekday of the month.
// The month is skipped when the nth weekday does not exist.
func dayInMonth(year int, month time.Month, day int, useNth bool, nthWeek, nthDayOfWeek int) (civil.Date, bool) {
	if !useNth {
		return ClampedDate(year, month, day), true
	}
	d, err := NthWeekdayOfMonth(year, month, nthWeek, time.Weekday(nthDayOfWeek))
	return d, err == nil
}

func within(d, from, to civil.Date) bool {
	return !d.Before(from) && !d.After(to)
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
