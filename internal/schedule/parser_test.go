package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC) }
}

func TestParse_Patterns(t *testing.T) {
	parser := NewParser(WithClock(fixedClock()))

	tests := []struct {
		input   string
		want    domain.Rule
		pattern string
	}{
		// Keywords
		{"Daily", domain.DailyRule{}, PatternKeyword},
		{"  WEEKLY ", domain.WeeklyRule{DayOfWeek: 1}, PatternKeyword},
		{"Monthly", domain.MonthlyRule{DayOfMonth: 1}, PatternKeyword},
		{"Bi-Monthly", domain.BimonthlyRule{MonthParity: domain.ParityEven, DayOfMonth: 1}, PatternKeyword},
		{"even months", domain.BimonthlyRule{MonthParity: domain.ParityEven, DayOfMonth: 1}, PatternKeyword},
		{"Odd Months", domain.BimonthlyRule{MonthParity: domain.ParityOdd, DayOfMonth: 1}, PatternKeyword},
		{"Quarterly", domain.QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 1}, PatternKeyword},
		{"Every weekday", domain.DailyRule{WeekdaysOnly: true}, PatternKeyword},
		{"Annually", domain.YearlyRule{Month: 1, DayOfMonth: 1}, PatternKeyword},

		// Day of month
		{"15th of month", domain.MonthlyRule{DayOfMonth: 15}, PatternDayOfMonth},
		{"1st of the month", domain.MonthlyRule{DayOfMonth: 1}, PatternDayOfMonth},

		// Every N years
		{"Every 3 years", domain.MultiYearRule{Interval: 3, BaseYear: 2026, Month: 1, DayOfMonth: 1}, PatternEveryNYears},
		{"every 2 yrs", domain.MultiYearRule{Interval: 2, BaseYear: 2026, Month: 1, DayOfMonth: 1}, PatternEveryNYears},

		// Nth weekday
		{"Second Tuesday", domain.NthWeekdayRule{N: 2, DayOfWeek: 2}, PatternNthWeekday},
		{"Last Friday", domain.NthWeekdayRule{N: 5, DayOfWeek: 5}, PatternNthWeekday},
		{"1st Mon of the month", domain.NthWeekdayRule{N: 1, DayOfWeek: 1}, PatternNthWeekday},

		// Month/day pairs
		{"April 15/October 15", domain.MultiDateRule{Dates: []domain.MonthDay{{Month: 4, Day: 15}, {Month: 10, Day: 15}}}, PatternMonthDayPairs},
		{"Jan 31 / Jul 31", domain.MultiDateRule{Dates: []domain.MonthDay{{Month: 1, Day: 31}, {Month: 7, Day: 31}}}, PatternMonthDayPairs},

		// Month lists and ranges
		{"January/July", domain.MultiMonthRule{Months: []int{1, 7}, DayOfMonth: 1}, PatternMonthList},
		{"Jan-Mar", domain.MultiMonthRule{Months: []int{1, 2, 3}, DayOfMonth: 1}, PatternMonthRange},
		{"Oct-Mar", domain.MultiMonthRule{Months: []int{10, 11, 12, 1, 2, 3}, DayOfMonth: 1}, PatternMonthRange},
		{"Mar/Sep", domain.MultiMonthRule{Months: []int{3, 9}, DayOfMonth: 1}, PatternMonthAbbrList},

		// Dates
		{"May 20, 2025", domain.OneTimeRule{Date: civil.Date{Year: 2025, Month: time.May, Day: 20}}, PatternMonthDayYear},
		{"sept 31 2025", domain.OneTimeRule{Date: civil.Date{Year: 2025, Month: time.September, Day: 30}}, PatternMonthDayYear},
		{"May 2025", domain.OneTimeRule{Date: civil.Date{Year: 2025, Month: time.May, Day: 1}}, PatternMonthYear},
		{"January 11", domain.YearlyRule{Month: 1, DayOfMonth: 11}, PatternMonthDay},
		{"Dec 31st", domain.YearlyRule{Month: 12, DayOfMonth: 31}, PatternMonthDay},
		{"September", domain.YearlyRule{Month: 9, DayOfMonth: 1}, PatternMonth},
		{"2027", domain.OneTimeRule{Date: civil.Date{Year: 2027, Month: time.January, Day: 1}}, PatternYear},

		// Ad hoc
		{"As needed", domain.AsNeededRule{}, PatternAdHoc},
		{"File as needed for audits", domain.AsNeededRule{}, PatternAdHoc},
		{"As occurs", domain.AsOccursRule{}, PatternAdHoc},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parser.Parse(tt.input)

			assert.Equal(t, Parsed, result.Kind)
			assert.False(t, result.FellBack())
			assert.Equal(t, tt.want, result.Rule)
			assert.Equal(t, tt.pattern, result.Pattern)
			assert.Equal(t, tt.input, result.Text)
			require.NoError(t, result.Rule.Validate())
		})
	}
}

func TestParse_Fallback(t *testing.T) {
	for _, input := range []string{"garbled xyz", "", "   ", "every 0 years", "32nd of month", "January 45"} {
		t.Run(input, func(t *testing.T) {
			result := Parse(input)

			assert.True(t, result.FellBack())
			assert.Equal(t, FellBack, result.Kind)
			assert.Equal(t, domain.YearlyRule{Month: 1, DayOfMonth: 1}, result.Rule)
			assert.Equal(t, PatternFallback, result.Pattern)
			assert.Equal(t, input, result.Text)
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	parser := NewParser(WithClock(fixedClock()))
	for _, input := range []string{"Every 5 years", "Oct-Mar", "Second Tuesday"} {
		assert.Equal(t, parser.Parse(input), parser.Parse(input))
	}
}

func TestParse_EveryNYearsUsesClock(t *testing.T) {
	parser := NewParser(WithClock(func() time.Time { return time.Date(2031, time.March, 1, 0, 0, 0, 0, time.UTC) }))

	result := parser.Parse("every 4 years")
	assert.Equal(t, domain.MultiYearRule{Interval: 4, BaseYear: 2031, Month: 1, DayOfMonth: 1}, result.Rule)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "parsed", Parsed.String())
	assert.Equal(t, "fell_back", FellBack.String())
}
