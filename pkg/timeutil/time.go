package timeutil

import (
	"math"
	"time"
)

// Clock returns the current time. Services take a Clock so tests can pin "now".
type Clock func() time.Time

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Clock that always reports t
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// ParseDate parses a date string and returns a UTC time
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfTomorrow returns midnight UTC of the day after t
func StartOfTomorrow(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// ToUTC converts a time.Time to UTC if it isn't already
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// CeilDays expresses d in whole days, rounding any partial day up.
// Negative durations round toward zero, so -1.5 days is -1.
func CeilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
