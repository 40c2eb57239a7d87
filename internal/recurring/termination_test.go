package recurring

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerate_Terminates guards against a zero or negative interval stalling
// the window walk. Zero means "every"; negative is rejected before iterating.
func TestGenerate_Terminates(t *testing.T) {
	start := civil.Date{Year: 2025, Month: time.January, Day: 1}
	end := civil.Date{Year: 2025, Month: time.December, Day: 31}

	tests := []struct {
		name    string
		rule    domain.Rule
		count   int
		invalid bool
	}{
		{"daily zero interval", domain.DailyRule{Interval: 0}, 365, false},
		{"weekly zero interval", domain.WeeklyRule{DayOfWeek: 1, Interval: 0}, 52, false},
		{"monthly zero interval", domain.MonthlyRule{DayOfMonth: 1, Interval: 0}, 12, false},
		{"yearly zero interval", domain.YearlyRule{Month: 1, DayOfMonth: 1, Interval: 0}, 1, false},
		{"daily negative interval", domain.DailyRule{Interval: -1}, 0, true},
		{"weekly negative interval", domain.WeeklyRule{DayOfWeek: 1, Interval: -2}, 0, true},
		{"monthly negative interval", domain.MonthlyRule{DayOfMonth: 1, Interval: -1}, 0, true},
		{"yearly negative interval", domain.YearlyRule{Month: 1, DayOfMonth: 1, Interval: -1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			type result struct {
				dates []civil.Date
				err   error
			}
			done := make(chan result, 1)
			go func() {
				got, err := Generate(tt.rule, start, end)
				done <- result{got, err}
			}()

			select {
			case res := <-done:
				if tt.invalid {
					assert.ErrorIs(t, res.err, domain.ErrInvalidRule)
					return
				}
				require.NoError(t, res.err)
				assert.Len(t, res.dates, tt.count)
			case <-time.After(2 * time.Second):
				t.Fatal("Generate did not return; the window walk is not advancing")
			}
		})
	}
}
