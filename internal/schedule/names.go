package schedule

import (
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var monthAbbreviations = map[string]time.Month{
	"jan":  time.January,
	"feb":  time.February,
	"mar":  time.March,
	"apr":  time.April,
	"jun":  time.June,
	"jul":  time.July,
	"aug":  time.August,
	"sep":  time.September,
	"sept": time.September,
	"oct":  time.October,
	"nov":  time.November,
	"dec":  time.December,
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

var ordinals = map[string]int{
	"first":  1,
	"1st":    1,
	"second": 2,
	"2nd":    2,
	"third":  3,
	"3rd":    3,
	"fourth": 4,
	"4th":    4,
	"fifth":  5,
	"5th":    5,
	"last":   5,
}

// Regex fragments. Longer alternatives come first so "september" is not read as "sep".
const (
	fullMonthRe = `(january|february|march|april|may|june|july|august|september|october|november|december)`
	anyMonthRe  = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?`
	weekdayRe   = `(sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tues|tue|wed|thurs|thur|thu|fri|sat)`
	ordinalRe   = `(first|second|third|fourth|fifth|last|1st|2nd|3rd|4th|5th)`
	daySuffixRe = `(?:st|nd|rd|th)?`
)

// lookupMonth resolves a full or abbreviated month name, ignoring a trailing period.
func lookupMonth(s string) (time.Month, bool) {
	s = strings.TrimSuffix(s, ".")
	if m, ok := monthNames[s]; ok {
		return m, true
	}
	m, ok := monthAbbreviations[s]
	return m, ok
}

var monthShort = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var ordinalWords = [...]string{"", "first", "second", "third", "fourth", "last"}
