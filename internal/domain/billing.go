package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// BillingCycle is the recurrence unit that spaces renewals
type BillingCycle string

const (
	BillingCycleDaily   BillingCycle = "Daily"
	BillingCycleWeekly  BillingCycle = "Weekly"
	BillingCycleMonthly BillingCycle = "Monthly"
	BillingCycleYearly  BillingCycle = "Yearly"
)

// DefaultBillingCycle applies when a subscription is created without one
const DefaultBillingCycle = BillingCycleMonthly

// BillingCycles lists every supported cycle
var BillingCycles = []BillingCycle{
	BillingCycleDaily,
	BillingCycleWeekly,
	BillingCycleMonthly,
	BillingCycleYearly,
}

// IsValid reports whether c is one of the four known cycles
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleDaily, BillingCycleWeekly, BillingCycleMonthly, BillingCycleYearly:
		return true
	}
	return false
}

// ParseBillingCycle accepts any letter case ("monthly", "MONTHLY") and
// returns the canonical cycle.
func ParseBillingCycle(s string) (BillingCycle, error) {
	for _, c := range BillingCycles {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", NewValidationError("billingCycle", fmt.Sprintf("%q is not a supported billing cycle", s))
}

// NextBillingDate adds exactly one cycle to date.
//
// Daily and Weekly add calendar days. Monthly and Yearly add calendar months
// and clamp the day of month to the last valid day of the target month, so
// Jan 31 becomes Feb 29 in a leap year (Feb 28 otherwise) and Feb 29 plus one
// year becomes Feb 28. Time of day and location are preserved.
//
// The cycle must already be validated; an unknown cycle panics.
func NextBillingDate(date time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case BillingCycleDaily:
		return date.AddDate(0, 0, 1)
	case BillingCycleWeekly:
		return date.AddDate(0, 0, 7)
	case BillingCycleMonthly:
		return addMonthsClamped(date, 1)
	case BillingCycleYearly:
		return addMonthsClamped(date, 12)
	default:
		panic(fmt.Sprintf("domain: unknown billing cycle %q", cycle))
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// Normalizing through the first of the month avoids time.Date rolling
	// Feb 31 forward into March.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := timeutil.DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
