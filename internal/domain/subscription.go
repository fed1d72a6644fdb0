package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// SubscriptionStatus represents the subscription state
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "Active"
	SubscriptionStatusCancelled SubscriptionStatus = "Cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "Expired"
)

// Field limits and defaults
const (
	NameMinLength           = 3
	NameMaxLength           = 100
	DefaultCurrency         = "USD"
	DefaultNotificationDays = 7
	MinNotificationDays     = 1
)

// MaxPrice is the inclusive upper bound on a subscription price
var MaxPrice = decimal.NewFromInt(99_999_999)

var supportedCurrencies = []string{
	"USD", "EUR", "GBP", "NGN", "JPY", "CAD", "AUD", "CHF", "SEK",
	"DKK", "PLN", "CZK", "HUF", "RUB", "INR", "MXN", "BRL", "ARS",
	"CLP", "PYG", "UYU", "VEF", "TRY", "NZD", "SGD", "HKD", "MYR",
	"PHP", "THB", "IDR", "VND",
}

var supportedCategories = []string{
	"Food", "Transportation", "Entertainment", "Utilities", "Health",
	"Education", "Rent", "Savings", "Groceries", "Shopping", "Travel",
	"Insurance", "Internet", "Mobile", "Donations", "Debt Repayment",
	"Subscriptions", "Gifts", "Taxes", "Miscellaneous", "Other",
}

// Currencies returns the supported ISO currency codes
func Currencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// Categories returns the supported spending categories
func Categories() []string {
	return append([]string(nil), supportedCategories...)
}

// ParseCurrency upper-cases and checks a currency code
func ParseCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range supportedCurrencies {
		if c == code {
			return c, nil
		}
	}
	return "", NewValidationError("currency", fmt.Sprintf("%q is not a supported currency", s))
}

// ParseCategory matches a category in any letter case and returns its canonical spelling
func ParseCategory(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", NewValidationError("category", "category is required")
	}
	for _, c := range supportedCategories {
		if strings.EqualFold(c, trimmed) {
			return c, nil
		}
	}
	return "", NewValidationError("category", fmt.Sprintf("%q is not a supported category", s))
}

// Transition names what Normalize did to a subscription
type Transition string

const (
	TransitionNone    Transition = "none"
	TransitionRenewed Transition = "renewed"
	TransitionExpired Transition = "expired"
)

// Subscription is a recurring charge tracked for one user.
// NextBillingDate and Status are derived; callers never set them directly.
type Subscription struct {
	StartDate           time.Time          `json:"startDate"`
	NextBillingDate     time.Time          `json:"nextBillingDate"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	CancelledAt         *time.Time         `json:"cancelledAt,omitempty"`
	Price               decimal.Decimal    `json:"price"`
	ID                  string             `json:"id"`
	UserID              string             `json:"userId"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	Currency            string             `json:"currency"`
	BillingCycle        BillingCycle       `json:"billingCycle"`
	Status              SubscriptionStatus `json:"status"`
	Category            string             `json:"category"`
	Provider            string             `json:"provider"`
	NotificationDays    int                `json:"notificationDays"`
	AutoRenew           bool               `json:"autoRenew"`
	NotificationEnabled bool               `json:"notificationEnabled"`
}

// IsActive returns true if the subscription is currently active
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// IsCancelled returns true if the subscription has been cancelled
func (s *Subscription) IsCancelled() bool {
	return s.Status == SubscriptionStatusCancelled
}

// IsOverdue reports an Active subscription whose billing date has passed
func (s *Subscription) IsOverdue(now time.Time) bool {
	return s.IsActive() && s.NextBillingDate.Before(now)
}

// Normalize corrects NextBillingDate and Status before the subscription is
// written. It runs on every write path, including a save that changed nothing.
//
// When rescheduled is set (creation, or StartDate/BillingCycle changed) the
// billing date is recomputed from StartDate. An overdue Active subscription
// then either rolls forward until it is no longer before now (AutoRenew) or
// becomes Expired with its missed billing date left in place.
// Cancelled and Expired subscriptions are never touched.
func (s *Subscription) Normalize(now time.Time, rescheduled bool) Transition {
	if rescheduled {
		s.NextBillingDate = NextBillingDate(s.StartDate, s.BillingCycle)
	}

	if !s.IsOverdue(now) {
		return TransitionNone
	}

	if !s.AutoRenew {
		s.Status = SubscriptionStatusExpired
		return TransitionExpired
	}

	for s.NextBillingDate.Before(now) {
		s.NextBillingDate = NextBillingDate(s.NextBillingDate, s.BillingCycle)
	}
	return TransitionRenewed
}

// DaysUntilBilling is the whole-day distance to the next billing date with
// any partial day rounded up. It is negative once the date has passed.
func (s *Subscription) DaysUntilBilling(now time.Time) int {
	return timeutil.CeilDays(s.NextBillingDate.Sub(now))
}

// IsRenewalDue reports whether a reminder should go out: notifications are
// on and the next billing date falls within NotificationDays.
func (s *Subscription) IsRenewalDue(now time.Time) bool {
	return s.NotificationEnabled && s.DaysUntilBilling(now) <= s.NotificationDays
}

// Cancel marks the subscription Cancelled. Cancelling twice is a conflict.
func (s *Subscription) Cancel(now time.Time) error {
	if s.IsCancelled() {
		return ErrSubscriptionAlreadyCancelled
	}
	s.Status = SubscriptionStatusCancelled
	cancelledAt := now
	s.CancelledAt = &cancelledAt
	return nil
}

// Validate checks every caller-supplied field. It does not look at
// StartDate relative to the clock; see ValidateStartDate.
func (s *Subscription) Validate() error {
	if n := utf8.RuneCountInString(s.Name); n < NameMinLength || n > NameMaxLength {
		return NewValidationError("name", fmt.Sprintf("name must be between %d and %d characters", NameMinLength, NameMaxLength))
	}
	if s.Price.IsNegative() {
		return NewValidationError("price", "price cannot be negative")
	}
	if s.Price.GreaterThan(MaxPrice) {
		return NewValidationError("price", "price is too high")
	}
	if _, err := ParseCurrency(s.Currency); err != nil {
		return err
	}
	if !s.BillingCycle.IsValid() {
		return NewValidationError("billingCycle", fmt.Sprintf("%q is not a supported billing cycle", s.BillingCycle))
	}
	if s.StartDate.IsZero() {
		return NewValidationError("startDate", "start date is required")
	}
	if _, err := ParseCategory(s.Category); err != nil {
		return err
	}
	if strings.TrimSpace(s.Provider) == "" {
		return NewValidationError("provider", "provider is required")
	}
	if s.NotificationDays < MinNotificationDays {
		return NewValidationError("notificationDays", fmt.Sprintf("notification days must be at least %d", MinNotificationDays))
	}
	return nil
}

// ValidateStartDate enforces the creation-time rule that a subscription
// starts no earlier than the start of tomorrow (UTC).
func ValidateStartDate(start, now time.Time) error {
	if start.Before(timeutil.StartOfTomorrow(now)) {
		return NewValidationError("startDate", "start date must be at least tomorrow or later")
	}
	return nil
}
