// Package notify delivers renewal reminders by email, message broker or log.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// LogNotifier writes reminders to the application log. It is the fallback
// when no delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, r ports.RenewalReminder) error {
	n.logger.Info("Renewal reminder",
		zap.String("subscription_id", r.SubscriptionID),
		zap.String("user_id", r.UserID),
		zap.String("email", r.Email),
		zap.String("name", r.SubscriptionName),
		zap.Time("billing_date", r.BillingDate),
		zap.Int("days_until_billing", r.DaysUntilBilling),
	)
	return nil
}

// Fanout sends every reminder to each notifier in turn. A failure in one
// does not stop the others. Any failure comes back as a
// *ports.DeliveryError saying how many channels still delivered.
type Fanout []ports.Notifier

func (f Fanout) Notify(ctx context.Context, r ports.RenewalReminder) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ports.DeliveryError{
		Err:       errors.Join(errs...),
		Delivered: len(f) - len(errs),
		Failed:    len(errs),
	}
}
