package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Validate_Valid(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.January, Day: 1}

	rules := []Rule{
		DailyRule{},
		DailyRule{WeekdaysOnly: true, Interval: 2},
		WeeklyRule{DayOfWeek: 1},
		WeeklyRule{DaysOfWeek: []int{1, 3, 5}, Interval: 2},
		MonthlyRule{DayOfMonth: 31},
		MonthlyRule{UseNthWeekday: true, NthWeek: LastWeek, NthDayOfWeek: 2},
		BimonthlyRule{MonthParity: ParityEven, DayOfMonth: 15},
		QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 15},
		YearlyRule{Month: 2, DayOfMonth: 29},
		YearlyRule{Month: 11, UseNthWeekday: true, NthWeek: 4, NthDayOfWeek: 4},
		NthWeekdayRule{N: 2, DayOfWeek: 2},
		NthWeekdayRule{N: 1, DayOfWeek: 1, Month: 9},
		MultiMonthRule{Months: []int{10, 11, 12, 1, 2, 3}, DayOfMonth: 1},
		MultiDateRule{Dates: []MonthDay{{Month: 4, Day: 15}, {Month: 10, Day: 15}}},
		MultiYearRule{Interval: 3, BaseYear: 2022, Month: 1, DayOfMonth: 1},
		OneTimeRule{Date: start},
		AsNeededRule{},
		AsOccursRule{},
		DailyRule{Range: &Range{StartDate: &start, EndType: EndOccurrences, Occurrences: ptr.To(5)}},
	}

	for _, r := range rules {
		t.Run(string(r.Type()), func(t *testing.T) {
			assert.NoError(t, r.Validate())
		})
	}
}

func TestRule_Validate_Invalid(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.March, Day: 1}
	before := civil.Date{Year: 2024, Month: time.February, Day: 1}

	tests := []struct {
		name  string
		rule  Rule
		field string
	}{
		{"weekly day out of range", WeeklyRule{DayOfWeek: 7}, "dayOfWeek"},
		{"weekly set member out of range", WeeklyRule{DaysOfWeek: []int{1, 9}}, "daysOfWeek"},
		{"daily negative interval", DailyRule{Interval: -1}, "interval"},
		{"monthly day zero", MonthlyRule{}, "dayOfMonth"},
		{"monthly nth week six", MonthlyRule{UseNthWeekday: true, NthWeek: 6, NthDayOfWeek: 1}, "nthWeek"},
		{"bimonthly parity", BimonthlyRule{MonthParity: "both", DayOfMonth: 1}, "monthParity"},
		{"quarterly month four", QuarterlyRule{MonthOfQuarter: 4, DayOfMonth: 1}, "monthOfQuarter"},
		{"yearly month thirteen", YearlyRule{Month: 13, DayOfMonth: 1}, "month"},
		{"nth weekday zero", NthWeekdayRule{N: 0, DayOfWeek: 1}, "n"},
		{"nth weekday month", NthWeekdayRule{N: 1, DayOfWeek: 1, Month: 13}, "month"},
		{"multi month empty", MultiMonthRule{DayOfMonth: 1}, "months"},
		{"multi date day", MultiDateRule{Dates: []MonthDay{{Month: 1, Day: 32}}}, "dates.day"},
		{"multi year interval", MultiYearRule{Interval: 0, BaseYear: 2022, Month: 1, DayOfMonth: 1}, "interval"},
		{"one time invalid date", OneTimeRule{Date: civil.Date{Year: 2023, Month: time.February, Day: 29}}, "date"},
		{"range end before start", DailyRule{Range: &Range{StartDate: &start, EndType: EndDate, EndDate: &before}}, "range.endDate"},
		{"range end date missing", DailyRule{Range: &Range{EndType: EndDate}}, "range.endDate"},
		{"range occurrences missing", DailyRule{Range: &Range{StartDate: &start, EndType: EndOccurrences}}, "range.occurrences"},
		{"range unknown end type", YearlyRule{Month: 1, DayOfMonth: 1, Range: &Range{EndType: "after"}}, "range.endType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRule)

			var ruleErr *InvalidRuleError
			require.True(t, errors.As(err, &ruleErr))
			assert.Equal(t, tt.rule.Type(), ruleErr.Type)
			assert.Equal(t, tt.field, ruleErr.Field)
		})
	}
}

func TestRange_OccurrencesWithoutStartIsValid(t *testing.T) {
	rule := WeeklyRule{DayOfWeek: 1, Range: &Range{EndType: EndOccurrences, Occurrences: ptr.To(3)}}
	assert.NoError(t, rule.Validate())
}

func TestWeeklyRule_Weekdays(t *testing.T) {
	assert.Equal(t, []int{3}, WeeklyRule{DayOfWeek: 3}.Weekdays())
	assert.Equal(t, []int{1, 5}, WeeklyRule{DayOfWeek: 3, DaysOfWeek: []int{1, 5}}.Weekdays())
}

func TestRangeOf_WithRange(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.January, Day: 1}
	rng := &Range{StartDate: &start}

	for _, r := range []Rule{DailyRule{}, WeeklyRule{}, MonthlyRule{}, YearlyRule{}} {
		assert.Same(t, rng, RangeOf(WithRange(r, rng)), "%s should carry a range", r.Type())
	}

	q := QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 1}
	assert.Equal(t, q, WithRange(q, rng))
	assert.Nil(t, RangeOf(q))
}

func TestMarshalRule_RoundTrip(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.January, Day: 1}

	rules := []Rule{
		DailyRule{WeekdaysOnly: true, Range: &Range{StartDate: &start, EndType: EndOccurrences, Occurrences: ptr.To(5)}},
		WeeklyRule{DaysOfWeek: []int{1, 3, 5}},
		MonthlyRule{UseNthWeekday: true, NthWeek: LastWeek, NthDayOfWeek: 5, Interval: 3},
		BimonthlyRule{MonthParity: ParityOdd, DayOfMonth: 10},
		MultiDateRule{Dates: []MonthDay{{Month: 4, Day: 15}}},
		OneTimeRule{Date: civil.Date{Year: 2025, Month: time.May, Day: 1}},
		AsOccursRule{},
	}

	for _, r := range rules {
		t.Run(string(r.Type()), func(t *testing.T) {
			data, err := MarshalRule(r)
			require.NoError(t, err)

			got, err := UnmarshalRule(data)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestMarshalRule_TypeTag(t *testing.T) {
	data, err := MarshalRule(OneTimeRule{Date: civil.Date{Year: 2025, Month: time.May, Day: 1}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"oneTime","date":"2025-05-01"}`, string(data))
}

func TestUnmarshalRule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"malformed", `{"type":`, ErrInvalidRule},
		{"missing type", `{"dayOfMonth":1}`, ErrUnknownRuleType},
		{"unknown type", `{"type":"fortnightly"}`, ErrUnknownRuleType},
		{"wrong field type", `{"type":"monthly","dayOfMonth":"first"}`, ErrInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRule([]byte(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRuleJSON_Embedded(t *testing.T) {
	var doc struct {
		Title string   `json:"title"`
		Rule  RuleJSON `json:"rule"`
	}

	err := json.Unmarshal([]byte(`{"title":"Payroll","rule":{"type":"quarterly","monthOfQuarter":1,"dayOfMonth":15}}`), &doc)
	require.NoError(t, err)
	assert.Equal(t, QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 15}, doc.Rule.Rule)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Payroll","rule":{"type":"quarterly","monthOfQuarter":1,"dayOfMonth":15}}`, string(out))
}
