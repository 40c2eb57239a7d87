// Package schedule converts free-text schedule descriptions, as found in the
// "When" column of imported spreadsheets, into structured recurrence rules.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/recurring"
)

// Kind tells whether a schedule was recognized or replaced by the fallback rule.
type Kind int

const (
	Parsed Kind = iota
	FellBack
)

func (k Kind) String() string {
	if k == FellBack {
		return "fell_back"
	}
	return "parsed"
}

// Pattern names reported in Result.Pattern.
const (
	PatternKeyword       = "keyword"
	PatternDayOfMonth    = "day_of_month"
	PatternEveryNYears   = "every_n_years"
	PatternNthWeekday    = "nth_weekday"
	PatternMonthDayPairs = "month_day_pairs"
	PatternMonthList     = "month_list"
	PatternMonthRange    = "month_range"
	PatternMonthAbbrList = "month_abbreviation_list"
	PatternMonthDayYear  = "month_day_year"
	PatternMonthYear     = "month_year"
	PatternMonthDay      = "month_day"
	PatternMonth         = "month"
	PatternYear          = "year"
	PatternAdHoc         = "ad_hoc"
	PatternFallback      = "fallback"
)

// Result is the outcome of parsing one schedule phrase.
// A FellBack result still carries a usable rule (yearly on January 1);
// callers are expected to surface Text to the user.
type Result struct {
	Kind    Kind
	Rule    domain.Rule
	Text    string // Original input
	Pattern string // Which pattern matched
}

// FellBack reports whether the text was unrecognized.
func (r Result) FellBack() bool {
	return r.Kind == FellBack
}

// Parser parses schedule phrases. The zero value is not usable; use NewParser.
// A Parser is safe for concurrent use.
type Parser struct {
	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used for rules anchored to the current year.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a Parser using the system clock unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses text with the system clock.
func Parse(text string) Result {
	return defaultParser.Parse(text)
}

// FallbackRule is the rule substituted for unrecognized text.
func FallbackRule() domain.Rule {
	return domain.YearlyRule{Month: 1, DayOfMonth: 1}
}

type pattern struct {
	name  string
	match func(p *Parser, s string) (domain.Rule, bool)
}

// patterns are tried in order; the first match wins.
var patterns = []pattern{
	{PatternKeyword, matchKeyword},
	{PatternDayOfMonth, matchDayOfMonth},
	{PatternEveryNYears, matchEveryNYears},
	{PatternNthWeekday, matchNthWeekday},
	{PatternMonthDayPairs, matchMonthDayPairs},
	{PatternMonthList, matchFullMonthList},
	{PatternMonthRange, matchMonthRange},
	{PatternMonthAbbrList, matchMonthAbbrList},
	{PatternMonthDayYear, matchMonthDayYear},
	{PatternMonthYear, matchMonthYear},
	{PatternMonthDay, matchMonthDay},
	{PatternMonth, matchMonth},
	{PatternYear, matchYear},
	{PatternAdHoc, matchAdHoc},
}

// Parse converts text into a rule. It never fails: unrecognized text yields
// the fallback rule with Kind FellBack.
func (p *Parser) Parse(text string) Result {
	s := normalize(text)
	if s != "" {
		for _, pat := range patterns {
			if rule, ok := pat.match(p, s); ok {
				return Result{Kind: Parsed, Rule: rule, Text: text, Pattern: pat.name}
			}
		}
	}
	return Result{Kind: FellBack, Rule: FallbackRule(), Text: text, Pattern: PatternFallback}
}

// normalize lower-cases text and collapses runs of whitespace.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

var keywords = map[string]domain.Rule{
	"daily":         domain.DailyRule{},
	"every day":     domain.DailyRule{},
	"weekdays":      domain.DailyRule{WeekdaysOnly: true},
	"every weekday": domain.DailyRule{WeekdaysOnly: true},
	"weekly":        domain.WeeklyRule{DayOfWeek: int(time.Monday)},
	"monthly":       domain.MonthlyRule{DayOfMonth: 1},
	"bi-monthly":    domain.BimonthlyRule{MonthParity: domain.ParityEven, DayOfMonth: 1},
	"bimonthly":     domain.BimonthlyRule{MonthParity: domain.ParityEven, DayOfMonth: 1},
	"even months":   domain.BimonthlyRule{MonthParity: domain.ParityEven, DayOfMonth: 1},
	"odd months":    domain.BimonthlyRule{MonthParity: domain.ParityOdd, DayOfMonth: 1},
	"quarterly":     domain.QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 1},
	"yearly":        domain.YearlyRule{Month: 1, DayOfMonth: 1},
	"annually":      domain.YearlyRule{Month: 1, DayOfMonth: 1},
	"annual":        domain.YearlyRule{Month: 1, DayOfMonth: 1},
}

func matchKeyword(_ *Parser, s string) (domain.Rule, bool) {
	rule, ok := keywords[s]
	return rule, ok
}

var dayOfMonthRe = regexp.MustCompile(`^(\d{1,2})` + daySuffixRe + ` (?:day )?of (?:the |each |every )?month$`)

func matchDayOfMonth(_ *Parser, s string) (domain.Rule, bool) {
	m := dayOfMonthRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	day, ok := dayNumber(m[1])
	if !ok {
		return nil, false
	}
	return domain.MonthlyRule{DayOfMonth: day}, true
}

var everyNYearsRe = regexp.MustCompile(`^every (\d+) (?:years?|yrs?)$`)

func matchEveryNYears(p *Parser, s string) (domain.Rule, bool) {
	m := everyNYearsRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return nil, false
	}
	return domain.MultiYearRule{Interval: n, BaseYear: p.now().Year(), Month: 1, DayOfMonth: 1}, true
}

var nthWeekdayRe = regexp.MustCompile(`^` + ordinalRe + ` ` + weekdayRe + `(?: of (?:the |each |every )?month)?$`)

func matchNthWeekday(_ *Parser, s string) (domain.Rule, bool) {
	m := nthWeekdayRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	return domain.NthWeekdayRule{N: ordinals[m[1]], DayOfWeek: int(weekdayNames[m[2]])}, true
}

var monthDayPairsRe = regexp.MustCompile(`^` + anyMonthRe + ` (\d{1,2})` + daySuffixRe + ` ?/ ?` + anyMonthRe + ` (\d{1,2})` + daySuffixRe + `$`)

func matchMonthDayPairs(_ *Parser, s string) (domain.Rule, bool) {
	m := monthDayPairsRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}

	var dates []domain.MonthDay
	for _, i := range []int{1, 3} {
		month, ok := lookupMonth(m[i])
		if !ok {
			return nil, false
		}
		day, ok := dayNumber(m[i+1])
		if !ok {
			return nil, false
		}
		dates = append(dates, domain.MonthDay{Month: int(month), Day: day})
	}
	return domain.MultiDateRule{Dates: dates}, true
}

var (
	fullMonthListRe = regexp.MustCompile(`^` + fullMonthRe + `(?: ?/ ?` + fullMonthRe + `)+$`)
	abbrMonthListRe = regexp.MustCompile(`^` + anyMonthRe + `(?: ?/ ?` + anyMonthRe + `)+$`)
)

func matchFullMonthList(_ *Parser, s string) (domain.Rule, bool) {
	if !fullMonthListRe.MatchString(s) {
		return nil, false
	}
	return monthList(s)
}

func matchMonthAbbrList(_ *Parser, s string) (domain.Rule, bool) {
	if !abbrMonthListRe.MatchString(s) {
		return nil, false
	}
	return monthList(s)
}

func monthList(s string) (domain.Rule, bool) {
	var months []int
	for _, part := range strings.Split(s, "/") {
		month, ok := lookupMonth(strings.TrimSpace(part))
		if !ok {
			return nil, false
		}
		months = append(months, int(month))
	}
	return domain.MultiMonthRule{Months: months, DayOfMonth: 1}, true
}

var monthRangeRe = regexp.MustCompile(`^` + anyMonthRe + ` ?(?:-|–|to|through) ?` + anyMonthRe + `$`)

// matchMonthRange expands an inclusive month range, wrapping past December
// when the range ends earlier in the year than it starts ("Oct-Mar").
func matchMonthRange(_ *Parser, s string) (domain.Rule, bool) {
	m := monthRangeRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	first, ok := lookupMonth(m[1])
	if !ok {
		return nil, false
	}
	last, ok := lookupMonth(m[2])
	if !ok {
		return nil, false
	}

	var months []int
	for month := first; ; month = month%12 + 1 {
		months = append(months, int(month))
		if month == last {
			break
		}
	}
	return domain.MultiMonthRule{Months: months, DayOfMonth: 1}, true
}

var monthDayYearRe = regexp.MustCompile(`^` + anyMonthRe + ` (\d{1,2})` + daySuffixRe + `,? (\d{4})$`)

func matchMonthDayYear(_ *Parser, s string) (domain.Rule, bool) {
	m := monthDayYearRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	month, ok := lookupMonth(m[1])
	if !ok {
		return nil, false
	}
	day, ok := dayNumber(m[2])
	if !ok {
		return nil, false
	}
	year, _ := strconv.Atoi(m[3])
	return domain.OneTimeRule{Date: recurring.ClampedDate(year, month, day)}, true
}

var monthYearRe = regexp.MustCompile(`^` + anyMonthRe + `,? (\d{4})$`)

func matchMonthYear(_ *Parser, s string) (domain.Rule, bool) {
	m := monthYearRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	month, ok := lookupMonth(m[1])
	if !ok {
		return nil, false
	}
	year, _ := strconv.Atoi(m[2])
	return domain.OneTimeRule{Date: civil.Date{Year: year, Month: month, Day: 1}}, true
}

var monthDayRe = regexp.MustCompile(`^` + anyMonthRe + ` (\d{1,2})` + daySuffixRe + `$`)

func matchMonthDay(_ *Parser, s string) (domain.Rule, bool) {
	m := monthDayRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	month, ok := lookupMonth(m[1])
	if !ok {
		return nil, false
	}
	day, ok := dayNumber(m[2])
	if !ok {
		return nil, false
	}
	return domain.YearlyRule{Month: int(month), DayOfMonth: day}, true
}

var monthRe = regexp.MustCompile(`^` + anyMonthRe + `$`)

func matchMonth(_ *Parser, s string) (domain.Rule, bool) {
	m := monthRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	month, ok := lookupMonth(m[1])
	if !ok {
		return nil, false
	}
	return domain.YearlyRule{Month: int(month), DayOfMonth: 1}, true
}

var yearRe = regexp.MustCompile(`^(\d{4})$`)

func matchYear(_ *Parser, s string) (domain.Rule, bool) {
	m := yearRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	year, _ := strconv.Atoi(m[1])
	if year < 1 {
		return nil, false
	}
	return domain.OneTimeRule{Date: civil.Date{Year: year, Month: time.January, Day: 1}}, true
}

func matchAdHoc(_ *Parser, s string) (domain.Rule, bool) {
	switch {
	case strings.Contains(s, "as needed"):
		return domain.AsNeededRule{}, true
	case strings.Contains(s, "as occurs"):
		return domain.AsOccursRule{}, true
	default:
		return nil, false
	}
}

// dayNumber parses a day of month, rejecting values outside 1-31.
func dayNumber(s string) (int, bool) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}
