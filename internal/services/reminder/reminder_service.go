package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// Config tunes one dispatch run
type Config struct {
	// Horizon is how far ahead to scan. It should cover the largest
	// NotificationDays a user can set in practice.
	Horizon time.Duration
	// DedupeGrace keeps a sent marker alive this long past the billing date
	DedupeGrace time.Duration
	// BatchSize is the page size for each repository read (0 = one unbounded read)
	BatchSize int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Horizon:     90 * 24 * time.Hour,
		DedupeGrace: 24 * time.Hour,
		BatchSize:   1000,
	}
}

// Service implements ports.ReminderService
type Service struct {
	subRepo  ports.SubscriptionRepository
	users    ports.UserRepository
	notifier ports.Notifier
	sent     ports.ReminderLog
	logger   ports.Logger
	cfg      Config
	now      timeutil.Clock
}

// NewService creates a new reminder service
func NewService(
	subRepo ports.SubscriptionRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	sent ports.ReminderLog,
	cfg Config,
	logger ports.Logger,
	clock timeutil.Clock,
) *Service {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultConfig().Horizon
	}
	if clock == nil {
		clock = timeutil.Now
	}
	return &Service{
		subRepo:  subRepo,
		users:    users,
		notifier: notifier,
		sent:     sent,
		logger:   logger,
		cfg:      cfg,
		now:      clock,
	}
}

// ReminderKey identifies one reminder: a subscription and the billing date it announces
func ReminderKey(sub *domain.Subscription) string {
	return fmt.Sprintf("reminder:%s:%s", sub.ID, sub.NextBillingDate.UTC().Format(time.RFC3339))
}

// DispatchDueReminders sends one reminder per subscription per billing date
// for every Active subscription whose reminder window has opened. The
// repository pre-filters to due subscriptions and the run pages through
// them BatchSize at a time until the horizon is exhausted.
func (s *Service) DispatchDueReminders(ctx context.Context) (*ports.ReminderResult, error) {
	now := s.now()
	result := &ports.ReminderResult{}
	users := make(map[string]*domain.User)

	filter := ports.UpcomingFilter{
		From:              now,
		To:                now.Add(s.cfg.Horizon),
		NotificationsOnly: true,
		DueOnly:           true,
		Limit:             s.cfg.BatchSize,
	}

	for {
		subs, err := s.subRepo.ListUpcoming(ctx, filter)
		if err != nil {
			if result.ScannedCount > 0 {
				return result, fmt.Errorf("list upcoming renewals at offset %d: %w", filter.Offset, err)
			}
			return nil, fmt.Errorf("list upcoming renewals: %w", err)
		}

		for _, sub := range subs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			s.process(ctx, sub, now, users, result)
		}

		if filter.Limit <= 0 || len(subs) < filter.Limit {
			break
		}
		filter.Offset += len(subs)
	}

	s.logger.Info("renewal reminders dispatched",
		ports.Int("scanned", result.ScannedCount),
		ports.Int("sent", result.SentCount),
		ports.Int("skipped", result.SkippedCount),
		ports.Int("failed", result.FailedCount))

	return result, nil
}

func (s *Service) process(ctx context.Context, sub *domain.Subscription, now time.Time, users map[string]*domain.User, result *ports.ReminderResult) {
	result.ScannedCount++

	if !sub.IsRenewalDue(now) {
		result.SkippedCount++
		observability.RecordReminder("skipped")
		return
	}

	if err := s.dispatch(ctx, sub, now, users); err != nil {
		if errors.Is(err, errAlreadySent) {
			result.SkippedCount++
			observability.RecordReminder("skipped")
			return
		}
		result.FailedCount++
		result.Errors = append(result.Errors, ports.SweepError{SubscriptionID: sub.ID, Error: err.Error()})
		observability.RecordReminder("failed")
		s.logger.Error("renewal reminder failed",
			ports.String("subscription_id", sub.ID),
			ports.Err(err))
		return
	}

	result.SentCount++
	observability.RecordReminder("sent")
}

var errAlreadySent = errors.New("reminder already sent")

func (s *Service) dispatch(ctx context.Context, sub *domain.Subscription, now time.Time, users map[string]*domain.User) error {
	key := ReminderKey(sub)
	ttl := sub.NextBillingDate.Sub(now) + s.cfg.DedupeGrace
	if ttl <= 0 {
		ttl = s.cfg.DedupeGrace
	}

	first, err := s.sent.MarkSent(ctx, key, ttl)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if !first {
		return errAlreadySent
	}

	owner, ok := users[sub.UserID]
	if !ok {
		owner, err = s.users.GetByID(ctx, sub.UserID)
		if err != nil {
			s.forget(ctx, key)
			return fmt.Errorf("load subscription owner: %w", err)
		}
		users[sub.UserID] = owner
	}

	reminder := ports.RenewalReminder{
		SubscriptionID:   sub.ID,
		UserID:           owner.ID,
		Username:         owner.Username,
		Email:            owner.Email,
		SubscriptionName: sub.Name,
		Provider:         sub.Provider,
		Price:            sub.Price,
		Currency:         sub.Currency,
		BillingCycle:     string(sub.BillingCycle),
		BillingDate:      sub.NextBillingDate,
		DaysUntilBilling: sub.DaysUntilBilling(now),
	}

	if err := s.notifier.Notify(ctx, reminder); err != nil {
		var partial *ports.DeliveryError
		if errors.As(err, &partial) && partial.Delivered > 0 {
			// Keep the marker: retrying would resend on the channels that worked.
			s.logger.Warn("renewal reminder reached only some channels",
				ports.String("subscription_id", sub.ID),
				ports.Int("delivered", partial.Delivered),
				ports.Int("failed", partial.Failed),
				ports.Err(partial.Err))
			return nil
		}
		s.forget(ctx, key)
		return fmt.Errorf("notify: %w", err)
	}

	s.logger.Debug("renewal reminder sent",
		ports.String("subscription_id", sub.ID),
		ports.Int("days_until_billing", reminder.DaysUntilBilling))
	return nil
}

// forget clears the marker so the next run retries the reminder
func (s *Service) forget(ctx context.Context, key string) {
	if err := s.sent.Forget(ctx, key); err != nil {
		s.logger.Warn("failed to clear reminder marker",
			ports.String("key", key),
			ports.Err(err))
	}
}
