package recurring

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
)

// ErrNoSuchWeekday is returned when an nth-weekday lookup has no answer in the month.
var ErrNoSuchWeekday = errors.New("no such weekday in month")

// DaysInMonth returns the last valid day (28-31) of the given month.
func DaysInMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if isLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ClampDay limits day to the length of the given month,
// so day 31 lands on the 30th in April and day 29 on the 28th in a non-leap February.
func ClampDay(day, year int, month time.Month) int {
	return min(day, DaysInMonth(year, month))
}

// ClampedDate builds the date for day in year/month, clamped to the month length.
func ClampedDate(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: ClampDay(day, year, month)}
}

// NthWeekdayOfMonth returns the nth occurrence of weekday in the month.
// n == domain.LastWeek (5) means the last such weekday, searched backward from
// the end of the month so the result never spills into the following month.
func NthWeekdayOfMonth(year int, month time.Month, n int, weekday time.Weekday) (civil.Date, error) {
	if n < 1 || n > domain.LastWeek || weekday < time.Sunday || weekday > time.Saturday || month < time.January || month > time.December {
		return civil.Date{}, fmt.Errorf("%w: n=%d weekday=%d month=%d", ErrNoSuchWeekday, n, weekday, month)
	}

	if n == domain.LastWeek {
		last := civil.Date{Year: year, Month: month, Day: DaysInMonth(year, month)}
		back := (int(Weekday(last)) - int(weekday) + 7) % 7
		return last.AddDays(-back), nil
	}

	first := civil.Date{Year: year, Month: month, Day: 1}
	ahead := (int(weekday) - int(Weekday(first)) + 7) % 7
	day := 1 + ahead + (n-1)*7
	if day > DaysInMonth(year, month) {
		return civil.Date{}, fmt.Errorf("%w: %d %s of %s %d", ErrNoSuchWeekday, n, weekday, month, year)
	}
	return civil.Date{Year: year, Month: month, Day: day}, nil
}

// Weekday returns the day of the week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// IsWeekday reports whether d falls Monday through Friday.
func IsWeekday(d civil.Date) bool {
	wd := Weekday(d)
	return wd != time.Saturday && wd != time.Sunday
}

// monthIndex numbers months consecutively from January of year 0.
func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// weekStart returns the Sunday starting the week that contains d.
func weekStart(d civil.Date) civil.Date {
	return d.AddDays(-int(Weekday(d)))
}

// floorMod returns a mod m in [0, m).
func floorMod(a, m int) int {
	return ((a % m) + m) % m
}
