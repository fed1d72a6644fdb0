package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubscription() *Subscription {
	return &Subscription{
		ID:                  "sub-1",
		UserID:              "user-1",
		Name:                "Netflix Premium",
		Price:               decimal.RequireFromString("15.99"),
		Currency:            "USD",
		BillingCycle:        BillingCycleMonthly,
		StartDate:           date(2024, 1, 15),
		NextBillingDate:     date(2024, 2, 15),
		Status:              SubscriptionStatusActive,
		Category:            "Entertainment",
		Provider:            "Netflix",
		AutoRenew:           true,
		NotificationEnabled: true,
		NotificationDays:    DefaultNotificationDays,
	}
}

func TestNormalize_RescheduleComputesFromStartDate(t *testing.T) {
	sub := validSubscription()
	sub.NextBillingDate = time.Time{}
	now := date(2024, 1, 10)

	transition := sub.Normalize(now, true)

	assert.Equal(t, TransitionNone, transition)
	assert.Equal(t, date(2024, 2, 15), sub.NextBillingDate)
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
}

func TestNormalize_EndOfMonthCatchUp(t *testing.T) {
	sub := validSubscription()
	sub.StartDate = date(2024, 1, 31)
	now := date(2024, 3, 1)

	transition := sub.Normalize(now, true)

	assert.Equal(t, TransitionRenewed, transition)
	assert.Equal(t, date(2024, 3, 29), sub.NextBillingDate)
	assert.False(t, sub.NextBillingDate.Before(now))
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
}

func TestNormalize_OverdueWithoutAutoRenewExpires(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	sub := validSubscription()
	sub.AutoRenew = false
	sub.NextBillingDate = now.AddDate(0, 0, -1)
	stale := sub.NextBillingDate

	transition := sub.Normalize(now, false)

	assert.Equal(t, TransitionExpired, transition)
	assert.Equal(t, SubscriptionStatusExpired, sub.Status)
	assert.Equal(t, stale, sub.NextBillingDate)
}

func TestNormalize_OverdueWithAutoRenewRollsForward(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	for _, cycle := range BillingCycles {
		t.Run(string(cycle), func(t *testing.T) {
			sub := validSubscription()
			sub.BillingCycle = cycle
			sub.StartDate = date(2021, 2, 28)
			sub.NextBillingDate = NextBillingDate(sub.StartDate, cycle)

			transition := sub.Normalize(now, false)

			assert.Equal(t, TransitionRenewed, transition)
			assert.Equal(t, SubscriptionStatusActive, sub.Status)
			assert.False(t, sub.NextBillingDate.Before(now))
			assert.True(t, NextBillingDate(sub.NextBillingDate, cycle).After(now))
		})
	}
}

func TestNormalize_BillingDateEqualToNowIsCurrent(t *testing.T) {
	now := date(2024, 2, 15)
	sub := validSubscription()
	sub.AutoRenew = false

	assert.Equal(t, TransitionNone, sub.Normalize(now, false))
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, now, sub.NextBillingDate)
}

func TestNormalize_TerminalStatusesUntouched(t *testing.T) {
	now := date(2025, 1, 1)

	for _, status := range []SubscriptionStatus{SubscriptionStatusCancelled, SubscriptionStatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			sub := validSubscription()
			sub.Status = status
			before := sub.NextBillingDate

			assert.Equal(t, TransitionNone, sub.Normalize(now, false))
			assert.Equal(t, status, sub.Status)
			assert.Equal(t, before, sub.NextBillingDate)
		})
	}
}

func TestNormalize_RescheduleStillRunsForTerminalStatus(t *testing.T) {
	sub := validSubscription()
	sub.Status = SubscriptionStatusCancelled
	sub.BillingCycle = BillingCycleWeekly

	assert.Equal(t, TransitionNone, sub.Normalize(date(2025, 1, 1), true))
	assert.Equal(t, date(2024, 1, 22), sub.NextBillingDate)
	assert.Equal(t, SubscriptionStatusCancelled, sub.Status)
}

func TestNormalize_Idempotent(t *testing.T) {
	now := time.Date(2024, 9, 3, 8, 0, 0, 0, time.UTC)

	for _, autoRenew := range []bool{true, false} {
		sub := validSubscription()
		sub.AutoRenew = autoRenew

		sub.Normalize(now, false)
		once := *sub
		second := sub.Normalize(now, false)

		assert.Equal(t, TransitionNone, second)
		assert.Equal(t, once, *sub)
	}
}

func TestDaysUntilBilling(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := validSubscription()

	sub.NextBillingDate = now.Add(6*24*time.Hour + 2*time.Hour)
	assert.Equal(t, 7, sub.DaysUntilBilling(now))

	sub.NextBillingDate = now.AddDate(0, 0, 5)
	assert.Equal(t, 5, sub.DaysUntilBilling(now))

	sub.NextBillingDate = now
	assert.Equal(t, 0, sub.DaysUntilBilling(now))
}

func TestIsRenewalDue(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name                string
		untilBilling        time.Duration
		notificationDays    int
		notificationEnabled bool
		expected            bool
	}{
		{"five days out with seven day window", 5 * 24 * time.Hour, 7, true, true},
		{"ten days out with seven day window", 10 * 24 * time.Hour, 7, true, false},
		{"six point one days rounds up to seven", 6*24*time.Hour + 144*time.Minute, 7, true, true},
		{"seven point one days rounds up to eight", 7*24*time.Hour + 144*time.Minute, 7, true, false},
		{"exactly on the window edge", 7 * 24 * time.Hour, 7, true, true},
		{"notifications disabled", 1 * 24 * time.Hour, 7, false, false},
		{"one day window", 12 * time.Hour, 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubscription()
			sub.NextBillingDate = now.Add(tt.untilBilling)
			sub.NotificationDays = tt.notificationDays
			sub.NotificationEnabled = tt.notificationEnabled
			snapshot := *sub

			assert.Equal(t, tt.expected, sub.IsRenewalDue(now))
			assert.Equal(t, snapshot, *sub)
		})
	}
}

func TestCancel(t *testing.T) {
	now := date(2024, 4, 1)

	sub := validSubscription()
	require.NoError(t, sub.Cancel(now))
	assert.Equal(t, SubscriptionStatusCancelled, sub.Status)
	require.NotNil(t, sub.CancelledAt)
	assert.Equal(t, now, *sub.CancelledAt)

	err := sub.Cancel(now.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrSubscriptionAlreadyCancelled)
	assert.Equal(t, now, *sub.CancelledAt)

	expired := validSubscription()
	expired.Status = SubscriptionStatusExpired
	assert.NoError(t, expired.Cancel(now))
	assert.True(t, expired.IsCancelled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Subscription)
		field  string
	}{
		{"valid", func(s *Subscription) {}, ""},
		{"name too short", func(s *Subscription) { s.Name = "ab" }, "name"},
		{"name too long", func(s *Subscription) { s.Name = string(make([]byte, 101)) }, "name"},
		{"negative price", func(s *Subscription) { s.Price = decimal.NewFromInt(-1) }, "price"},
		{"price at max", func(s *Subscription) { s.Price = MaxPrice }, ""},
		{"price above max", func(s *Subscription) { s.Price = MaxPrice.Add(decimal.NewFromInt(1)) }, "price"},
		{"zero price", func(s *Subscription) { s.Price = decimal.Zero }, ""},
		{"unknown currency", func(s *Subscription) { s.Currency = "XYZ" }, "currency"},
		{"unknown cycle", func(s *Subscription) { s.BillingCycle = "Hourly" }, "billingCycle"},
		{"missing start date", func(s *Subscription) { s.StartDate = time.Time{} }, "startDate"},
		{"unknown category", func(s *Subscription) { s.Category = "Pets" }, "category"},
		{"missing provider", func(s *Subscription) { s.Provider = "  " }, "provider"},
		{"zero notification days", func(s *Subscription) { s.NotificationDays = 0 }, "notificationDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubscription()
			tt.mutate(sub)

			err := sub.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateStartDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 22, 30, 0, 0, time.UTC)

	assert.Error(t, ValidateStartDate(now, now))
	assert.Error(t, ValidateStartDate(date(2024, 5, 10), now))
	assert.NoError(t, ValidateStartDate(date(2024, 5, 11), now))
	assert.NoError(t, ValidateStartDate(date(2024, 6, 1), now))
}

func TestParseCurrencyAndCategory(t *testing.T) {
	c, err := ParseCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c)
	assert.Len(t, Currencies(), 31)

	cat, err := ParseCategory("debt repayment")
	require.NoError(t, err)
	assert.Equal(t, "Debt Repayment", cat)
	assert.Len(t, Categories(), 21)

	_, err = ParseCategory("")
	assert.True(t, IsValidationError(err))
}
