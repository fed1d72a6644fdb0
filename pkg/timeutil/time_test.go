package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestFixed(t *testing.T) {
	pinned := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := Fixed(pinned)

	assert.Equal(t, pinned, clock())
	assert.Equal(t, pinned, clock())
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "midnight UTC",
			input:    time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "noon UTC",
			input:    time.Date(2025, 11, 20, 12, 30, 45, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "late evening in a positive offset lands on the UTC day",
			input:    time.Date(2025, 11, 21, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfDay(tt.input)

			assert.Equal(t, tt.expected, result.String())
			assert.Equal(t, time.UTC, result.Location())
		})
	}
}

func TestStartOfTomorrow(t *testing.T) {
	in := time.Date(2024, 2, 28, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), StartOfTomorrow(in))

	in = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), StartOfTomorrow(in))
}

func TestCeilDays(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected int
	}{
		{"zero", 0, 0},
		{"exact five days", 5 * 24 * time.Hour, 5},
		{"six point one days rounds up", 6*24*time.Hour + 144*time.Minute, 7},
		{"one nanosecond is a day", time.Nanosecond, 1},
		{"just under a day ago", -23 * time.Hour, 0},
		{"a day and a half ago", -36 * time.Hour, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CeilDays(tt.input))
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 30, DaysInMonth(2024, time.April))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2006-01-02", "2024-01-15")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2006-01-02", "15/01/2024")
	assert.Error(t, err)
}
