package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// RuleType discriminates the recurrence rule variants.
// Value object - immutable string enum, also used as the serialized type tag.
type RuleType string

const (
	RuleDaily      RuleType = "daily"
	RuleWeekly     RuleType = "weekly"
	RuleMonthly    RuleType = "monthly"
	RuleBimonthly  RuleType = "bimonthly"
	RuleQuarterly  RuleType = "quarterly"
	RuleYearly     RuleType = "yearly"
	RuleNthWeekday RuleType = "nthWeekday"
	RuleMultiMonth RuleType = "multiMonth"
	RuleMultiDate  RuleType = "multiDate"
	RuleMultiYear  RuleType = "multiYear"
	RuleOneTime    RuleType = "oneTime"
	RuleAsNeeded   RuleType = "asNeeded"
	RuleAsOccurs   RuleType = "asOccurs"
)

// RuleTypes lists every supported variant in declaration order.
var RuleTypes = []RuleType{
	RuleDaily, RuleWeekly, RuleMonthly, RuleBimonthly, RuleQuarterly, RuleYearly,
	RuleNthWeekday, RuleMultiMonth, RuleMultiDate, RuleMultiYear, RuleOneTime,
	RuleAsNeeded, RuleAsOccurs,
}

// LastWeek is the nth-week value meaning "last occurrence in the month".
const LastWeek = 5

// Rule is a recurrence pattern. The set of implementations is closed:
// only the variant types in this package satisfy it.
//
// Rules are immutable value objects; generators never modify them.
type Rule interface {
	// Type returns the variant discriminator.
	Type() RuleType

	// Validate reports an *InvalidRuleError when a required field is missing
	// or outside its declared bounds.
	Validate() error

	isRule()
}

// DailyRule occurs every day, or every Interval days, optionally skipping weekends.
type DailyRule struct {
	WeekdaysOnly bool   `json:"weekdaysOnly"`
	Interval     int    `json:"interval,omitempty"`
	Range        *Range `json:"range,omitempty"`
}

// WeeklyRule occurs on one or more weekdays every Interval weeks.
// DaysOfWeek wins over DayOfWeek when non-empty. 0 = Sunday.
type WeeklyRule struct {
	DayOfWeek  int    `json:"dayOfWeek"`
	DaysOfWeek []int  `json:"daysOfWeek,omitempty"`
	Interval   int    `json:"interval,omitempty"`
	Range      *Range `json:"range,omitempty"`
}

// MonthlyRule occurs on a fixed day of month or on the nth weekday, every Interval months.
type MonthlyRule struct {
	DayOfMonth    int    `json:"dayOfMonth,omitempty"`
	Interval      int    `json:"interval,omitempty"`
	UseNthWeekday bool   `json:"useNthWeekday,omitempty"`
	NthWeek       int    `json:"nthWeek,omitempty"`
	NthDayOfWeek  int    `json:"nthDayOfWeek,omitempty"`
	Range         *Range `json:"range,omitempty"`
}

// MonthParity selects even or odd calendar months.
type MonthParity string

const (
	ParityEven MonthParity = "even"
	ParityOdd  MonthParity = "odd"
)

// BimonthlyRule occurs on a fixed day in every even or every odd month.
type BimonthlyRule struct {
	MonthParity MonthParity `json:"monthParity"`
	DayOfMonth  int         `json:"dayOfMonth"`
}

// QuarterlyRule occurs once per calendar quarter, in the given month of the quarter.
type QuarterlyRule struct {
	MonthOfQuarter int `json:"monthOfQuarter"`
	DayOfMonth     int `json:"dayOfMonth"`
}

// YearlyRule occurs on a fixed date or the nth weekday of a month, every Interval years.
type YearlyRule struct {
	Month         int    `json:"month"`
	DayOfMonth    int    `json:"dayOfMonth,omitempty"`
	Interval      int    `json:"interval,omitempty"`
	UseNthWeekday bool   `json:"useNthWeekday,omitempty"`
	NthWeek       int    `json:"nthWeek,omitempty"`
	NthDayOfWeek  int    `json:"nthDayOfWeek,omitempty"`
	Range         *Range `json:"range,omitempty"`
}

// NthWeekdayRule occurs on the nth weekday of every month, or of one fixed month.
// Month 0 means every month.
type NthWeekdayRule struct {
	N         int `json:"n"`
	DayOfWeek int `json:"dayOfWeek"`
	Month     int `json:"month,omitempty"`
}

// MultiMonthRule occurs on the same day across an explicit set of months each year.
type MultiMonthRule struct {
	Months     []int `json:"months"`
	DayOfMonth int   `json:"dayOfMonth"`
}

// MonthDay is a (month, day) pair without a year.
type MonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// MultiDateRule occurs on explicit (month, day) pairs each year.
type MultiDateRule struct {
	Dates []MonthDay `json:"dates"`
}

// MultiYearRule occurs on one date every Interval years, anchored to BaseYear.
type MultiYearRule struct {
	Interval   int `json:"interval"`
	BaseYear   int `json:"baseYear"`
	Month      int `json:"month"`
	DayOfMonth int `json:"dayOfMonth"`
}

// OneTimeRule is a single non-recurring occurrence.
type OneTimeRule struct {
	Date civil.Date `json:"date"`
}

// AsNeededRule never generates instances.
type AsNeededRule struct{}

// AsOccursRule never generates instances; the task is logged when the event happens.
type AsOccursRule struct{}

func (DailyRule) Type() RuleType      { return RuleDaily }
func (WeeklyRule) Type() RuleType     { return RuleWeekly }
func (MonthlyRule) Type() RuleType    { return RuleMonthly }
func (BimonthlyRule) Type() RuleType  { return RuleBimonthly }
func (QuarterlyRule) Type() RuleType  { return RuleQuarterly }
func (YearlyRule) Type() RuleType     { return RuleYearly }
func (NthWeekdayRule) Type() RuleType { return RuleNthWeekday }
func (MultiMonthRule) Type() RuleType { return RuleMultiMonth }
func (MultiDateRule) Type() RuleType  { return RuleMultiDate }
func (MultiYearRule) Type() RuleType  { return RuleMultiYear }
func (OneTimeRule) Type() RuleType    { return RuleOneTime }
func (AsNeededRule) Type() RuleType   { return RuleAsNeeded }
func (AsOccursRule) Type() RuleType   { return RuleAsOccurs }

func (DailyRule) isRule()      {}
func (WeeklyRule) isRule()     {}
func (MonthlyRule) isRule()    {}
func (BimonthlyRule) isRule()  {}
func (QuarterlyRule) isRule()  {}
func (YearlyRule) isRule()     {}
func (NthWeekdayRule) isRule() {}
func (MultiMonthRule) isRule() {}
func (MultiDateRule) isRule()  {}
func (MultiYearRule) isRule()  {}
func (OneTimeRule) isRule()    {}
func (AsNeededRule) isRule()   {}
func (AsOccursRule) isRule()   {}

// IntervalOrDefault returns the effective interval (absent means 1).
func IntervalOrDefault(interval int) int {
	if interval == 0 {
		return 1
	}
	return interval
}

// RangeOf returns the bounding range attached to a rule, or nil.
// Only Daily, Weekly, Monthly and Yearly rules carry a range.
func RangeOf(r Rule) *Range {
	switch v := r.(type) {
	case DailyRule:
		return v.Range
	case WeeklyRule:
		return v.Range
	case MonthlyRule:
		return v.Range
	case YearlyRule:
		return v.Range
	default:
		return nil
	}
}

// WithRange returns a copy of r carrying rng. Rules without range support are returned unchanged.
func WithRange(r Rule, rng *Range) Rule {
	switch v := r.(type) {
	case DailyRule:
		v.Range = rng
		return v
	case WeeklyRule:
		v.Range = rng
		return v
	case MonthlyRule:
		v.Range = rng
		return v
	case YearlyRule:
		v.Range = rng
		return v
	default:
		return r
	}
}

func (r DailyRule) Validate() error {
	if err := checkInterval(RuleDaily, r.Interval); err != nil {
		return err
	}
	return r.Range.validate(RuleDaily)
}

// Weekdays returns the target weekday set: DaysOfWeek if present, else DayOfWeek.
func (r WeeklyRule) Weekdays() []int {
	if len(r.DaysOfWeek) > 0 {
		return r.DaysOfWeek
	}
	return []int{r.DayOfWeek}
}

func (r WeeklyRule) Validate() error {
	if len(r.DaysOfWeek) == 0 {
		if err := checkBounds(RuleWeekly, "dayOfWeek", r.DayOfWeek, 0, 6); err != nil {
			return err
		}
	}
	for _, d := range r.DaysOfWeek {
		if err := checkBounds(RuleWeekly, "daysOfWeek", d, 0, 6); err != nil {
			return err
		}
	}
	if err := checkInterval(RuleWeekly, r.Interval); err != nil {
		return err
	}
	return r.Range.validate(RuleWeekly)
}

func (r MonthlyRule) Validate() error {
	if r.UseNthWeekday {
		if err := checkNthWeekday(RuleMonthly, r.NthWeek, r.NthDayOfWeek); err != nil {
			return err
		}
	} else if err := checkBounds(RuleMonthly, "dayOfMonth", r.DayOfMonth, 1, 31); err != nil {
		return err
	}
	if err := checkInterval(RuleMonthly, r.Interval); err != nil {
		return err
	}
	return r.Range.validate(RuleMonthly)
}

func (r BimonthlyRule) Validate() error {
	if r.MonthParity != ParityEven && r.MonthParity != ParityOdd {
		return invalidRule(RuleBimonthly, "monthParity", fmt.Sprintf("must be %q or %q, got %q", ParityEven, ParityOdd, r.MonthParity))
	}
	return checkBounds(RuleBimonthly, "dayOfMonth", r.DayOfMonth, 1, 31)
}

func (r QuarterlyRule) Validate() error {
	if err := checkBounds(RuleQuarterly, "monthOfQuarter", r.MonthOfQuarter, 1, 3); err != nil {
		return err
	}
	return checkBounds(RuleQuarterly, "dayOfMonth", r.DayOfMonth, 1, 31)
}

func (r YearlyRule) Validate() error {
	if err := checkBounds(RuleYearly, "month", r.Month, 1, 12); err != nil {
		return err
	}
	if r.UseNthWeekday {
		if err := checkNthWeekday(RuleYearly, r.NthWeek, r.NthDayOfWeek); err != nil {
			return err
		}
	} else if err := checkBounds(RuleYearly, "dayOfMonth", r.DayOfMonth, 1, 31); err != nil {
		return err
	}
	if err := checkInterval(RuleYearly, r.Interval); err != nil {
		return err
	}
	return r.Range.validate(RuleYearly)
}

func (r NthWeekdayRule) Validate() error {
	if err := checkBounds(RuleNthWeekday, "n", r.N, 1, LastWeek); err != nil {
		return err
	}
	if err := checkBounds(RuleNthWeekday, "dayOfWeek", r.DayOfWeek, 0, 6); err != nil {
		return err
	}
	if r.Month != 0 {
		return checkBounds(RuleNthWeekday, "month", r.Month, 1, 12)
	}
	return nil
}

func (r MultiMonthRule) Validate() error {
	if len(r.Months) == 0 {
		return invalidRule(RuleMultiMonth, "months", "must not be empty")
	}
	for _, m := range r.Months {
		if err := checkBounds(RuleMultiMonth, "months", m, 1, 12); err != nil {
			return err
		}
	}
	return checkBounds(RuleMultiMonth, "dayOfMonth", r.DayOfMonth, 1, 31)
}

func (r MultiDateRule) Validate() error {
	if len(r.Dates) == 0 {
		return invalidRule(RuleMultiDate, "dates", "must not be empty")
	}
	for _, md := range r.Dates {
		if err := checkBounds(RuleMultiDate, "dates.month", md.Month, 1, 12); err != nil {
			return err
		}
		if err := checkBounds(RuleMultiDate, "dates.day", md.Day, 1, 31); err != nil {
			return err
		}
	}
	return nil
}

func (r MultiYearRule) Validate() error {
	if r.Interval < 1 {
		return invalidRule(RuleMultiYear, "interval", fmt.Sprintf("must be >= 1, got %d", r.Interval))
	}
	if r.BaseYear < 1 {
		return invalidRule(RuleMultiYear, "baseYear", fmt.Sprintf("must be >= 1, got %d", r.BaseYear))
	}
	if err := checkBounds(RuleMultiYear, "month", r.Month, 1, 12); err != nil {
		return err
	}
	return checkBounds(RuleMultiYear, "dayOfMonth", r.DayOfMonth, 1, 31)
}

func (r OneTimeRule) Validate() error {
	if !r.Date.IsValid() {
		return invalidRule(RuleOneTime, "date", fmt.Sprintf("is not a valid calendar date: %s", r.Date))
	}
	return nil
}

func (AsNeededRule) Validate() error { return nil }
func (AsOccursRule) Validate() error { return nil }

func checkBounds(t RuleType, field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return invalidRule(t, field, fmt.Sprintf("must be in [%d,%d], got %d", lo, hi, v))
	}
	return nil
}

func checkInterval(t RuleType, interval int) error {
	if interval < 0 {
		return invalidRule(t, "interval", fmt.Sprintf("must be >= 1, got %d", interval))
	}
	return nil
}

func checkNthWeekday(t RuleType, nthWeek, dayOfWeek int) error {
	if err := checkBounds(t, "nthWeek", nthWeek, 1, LastWeek); err != nil {
		return err
	}
	return checkBounds(t, "nthDayOfWeek", dayOfWeek, 0, 6)
}
