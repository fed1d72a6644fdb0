package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RenewalReminder is the payload delivered for one upcoming billing date
type RenewalReminder struct {
	BillingDate      time.Time       `json:"billingDate"`
	Price            decimal.Decimal `json:"price"`
	SubscriptionID   string          `json:"subscriptionId"`
	UserID           string          `json:"userId"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	SubscriptionName string          `json:"subscriptionName"`
	Provider         string          `json:"provider"`
	Currency         string          `json:"currency"`
	BillingCycle     string          `json:"billingCycle"`
	DaysUntilBilling int             `json:"daysUntilBilling"`
}

// Notifier delivers renewal reminders (email, message broker, log)
type Notifier interface {
	Notify(ctx context.Context, reminder RenewalReminder) error
}

// DeliveryError is returned by a notifier that sends over several channels
// when at least one of them failed. Delivered counts the channels that
// accepted the reminder.
type DeliveryError struct {
	Err       error
	Delivered int
	Failed    int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%d of %d channels failed: %v", e.Failed, e.Failed+e.Delivered, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ReminderLog records which reminders went out so each billing date is
// announced once.
type ReminderLog interface {
	// MarkSent records key if absent and reports whether this call recorded it
	MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Forget removes key so a failed delivery can be retried
	Forget(ctx context.Context, key string) error
}
