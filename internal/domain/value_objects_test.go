package domain

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTitle_Trims(t *testing.T) {
	title, err := NewTitle("  File 941  ")

	require.NoError(t, err)
	assert.Equal(t, "File 941", title.String())
}

func TestNewTitle_Empty(t *testing.T) {
	_, err := NewTitle("   ")
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestNewTitle_TooLong(t *testing.T) {
	_, err := NewTitle(strings.Repeat("a", 256))
	assert.ErrorIs(t, err, ErrTitleTooLong)

	_, err = NewTitle(strings.Repeat("a", 255))
	assert.NoError(t, err)
}

func TestNewInstanceStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    InstanceStatus
		wantErr bool
	}{
		{"pending", InstanceStatusPending, false},
		{"Completed", InstanceStatusCompleted, false},
		{" skipped ", InstanceStatusSkipped, false},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NewInstanceStatus(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInstanceStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRuleType(t *testing.T) {
	for _, rt := range RuleTypes {
		got, err := NewRuleType(string(rt))
		require.NoError(t, err)
		assert.Equal(t, rt, got)
	}

	_, err := NewRuleType("fortnightly")
	assert.ErrorIs(t, err, ErrUnknownRuleType)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestHorizonWindow(t *testing.T) {
	from, to := HorizonWindow(civil.Date{Year: 2026, Month: time.October, Day: 19}, DefaultHorizonYearsAhead)

	assert.Equal(t, civil.Date{Year: 2026, Month: time.January, Day: 1}, from)
	assert.Equal(t, civil.Date{Year: 2027, Month: time.December, Day: 31}, to)
}
