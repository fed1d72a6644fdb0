package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

const (
	// DefaultUpcomingWindow is used when the caller gives no window
	DefaultUpcomingWindow = 30 * 24 * time.Hour
	// MaxUpcomingWindow caps how far ahead the upcoming view looks
	MaxUpcomingWindow = 365 * 24 * time.Hour
	// DefaultSweepBatchSize bounds one renewal sweep
	DefaultSweepBatchSize = 500
)

// Service implements ports.SubscriptionService
type Service struct {
	subRepo ports.SubscriptionRepository
	logger  ports.Logger
	now     timeutil.Clock
}

// NewService creates a new subscription service. A nil clock means timeutil.Now.
func NewService(subRepo ports.SubscriptionRepository, logger ports.Logger, clock timeutil.Clock) *Service {
	if clock == nil {
		clock = timeutil.Now
	}
	return &Service{
		subRepo: subRepo,
		logger:  logger,
		now:     clock,
	}
}

// CreateSubscription validates and stores a new Active subscription owned by actor
func (s *Service) CreateSubscription(ctx context.Context, actor *domain.User, req ports.CreateSubscriptionRequest) (*domain.Subscription, error) {
	now := s.now()

	sub, err := newSubscription(actor.ID, req)
	if err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateStartDate(sub.StartDate, now); err != nil {
		return nil, err
	}

	sub.ID = uuid.New().String()
	sub.Status = domain.SubscriptionStatusActive
	sub.CreatedAt = now
	sub.UpdatedAt = now
	s.normalize(sub, now, true, "write")

	if err := s.subRepo.Create(ctx, sub); err != nil {
		s.logger.Error("create subscription failed",
			ports.String("user_id", actor.ID),
			ports.Err(err))
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	observability.RecordSubscriptionCreated(string(sub.BillingCycle), sub.Currency)
	s.logger.Info("subscription created",
		ports.String("subscription_id", sub.ID),
		ports.String("user_id", actor.ID),
		ports.String("billing_cycle", string(sub.BillingCycle)),
		ports.String("next_billing", sub.NextBillingDate.Format(time.RFC3339)))

	return sub, nil
}

// GetSubscription returns one subscription to its owner or an admin
func (s *Service) GetSubscription(ctx context.Context, actor *domain.User, id string) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if !actor.CanAccess(sub.UserID) {
		return nil, domain.ErrAuthAccessDenied
	}
	return sub, nil
}

// ListUserSubscriptions lists userID's subscriptions; only that user or an admin may ask
func (s *Service) ListUserSubscriptions(ctx context.Context, actor *domain.User, userID string) ([]*domain.Subscription, error) {
	if !actor.CanAccess(userID) {
		return nil, domain.ErrAuthAccessDenied
	}

	subs, err := s.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}
	return subs, nil
}

// UpdateSubscription applies a partial update from the owner. Every save
// normalizes, even when no field changed.
func (s *Service) UpdateSubscription(ctx context.Context, actor *domain.User, id string, req ports.UpdateSubscriptionRequest) (*domain.Subscription, error) {
	sub, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	rescheduled, err := applyUpdate(sub, req)
	if err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	transition := s.normalize(sub, now, rescheduled, "write")
	sub.UpdatedAt = now

	if err := s.subRepo.Update(ctx, sub); err != nil {
		s.logger.Error("update subscription failed",
			ports.String("subscription_id", id),
			ports.Err(err))
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.logger.Info("subscription updated",
		ports.String("subscription_id", sub.ID),
		ports.Bool("rescheduled", rescheduled),
		ports.String("transition", string(transition)))

	return sub, nil
}

// CancelSubscription marks the owner's subscription Cancelled
func (s *Service) CancelSubscription(ctx context.Context, actor *domain.User, id string) (*domain.Subscription, error) {
	sub, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := sub.Cancel(now); err != nil {
		return nil, err
	}
	sub.UpdatedAt = now

	if err := s.subRepo.Update(ctx, sub); err != nil {
		s.logger.Error("cancel subscription failed",
			ports.String("subscription_id", id),
			ports.Err(err))
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}

	observability.RecordTransition("cancelled", "user")
	s.logger.Info("subscription cancelled",
		ports.String("subscription_id", sub.ID),
		ports.String("user_id", actor.ID))

	return sub, nil
}

// DeleteSubscription removes the owner's subscription
func (s *Service) DeleteSubscription(ctx context.Context, actor *domain.User, id string) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}

	if err := s.subRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	s.logger.Info("subscription deleted",
		ports.String("subscription_id", id),
		ports.String("user_id", actor.ID))
	return nil
}

// UpcomingRenewals lists the actor's Active subscriptions billing within the
// window, soonest first. DueOnly keeps only those whose reminder is due.
func (s *Service) UpcomingRenewals(ctx context.Context, actor *domain.User, query ports.UpcomingRenewalsQuery) ([]*domain.Subscription, error) {
	window := query.Window
	if window == 0 {
		window = DefaultUpcomingWindow
	}
	if window < 0 || window > MaxUpcomingWindow {
		return nil, domain.NewValidationError("days", "window must be between 1 and 365 days")
	}

	now := s.now()
	subs, err := s.subRepo.ListUpcoming(ctx, ports.UpcomingFilter{
		UserID: actor.ID,
		From:   now,
		To:     now.Add(window),
	})
	if err != nil {
		return nil, fmt.Errorf("list upcoming renewals: %w", err)
	}

	if !query.DueOnly {
		return subs, nil
	}

	due := make([]*domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsRenewalDue(now) {
			due = append(due, sub)
		}
	}
	return due, nil
}

// ListAllSubscriptions lists every subscription. Callers gate this to admins.
func (s *Service) ListAllSubscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	subs, err := s.subRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all subscriptions: %w", err)
	}
	return subs, nil
}

// SweepRenewals re-saves overdue Active subscriptions so their stored state
// is normalized without waiting for the owner to write. Each write only
// lands if the row is still Active, so a concurrent cancel wins.
func (s *Service) SweepRenewals(ctx context.Context, batchSize int) (*ports.SweepResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}

	start := time.Now()
	now := s.now()
	result := &ports.SweepResult{
		Errors: make([]ports.SweepError, 0),
	}

	subs, err := s.subRepo.ListOverdue(ctx, now, batchSize)
	if err != nil {
		observability.RecordRenewalSweep("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("list overdue subscriptions: %w", err)
	}

	result.ProcessedCount = len(subs)
	s.logger.Info("processing renewal sweep",
		ports.Time("as_of", now),
		ports.Int("count", len(subs)))

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		transition := s.normalize(sub, now, false, "sweep")
		sub.UpdatedAt = now

		written, err := s.subRepo.UpdateIfActive(ctx, sub)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, ports.SweepError{
				SubscriptionID: sub.ID,
				Error:          err.Error(),
			})
			s.logger.Error("renewal sweep failed for subscription",
				ports.String("subscription_id", sub.ID),
				ports.Err(err))
			continue
		}
		if !written {
			// cancelled or deleted by its owner since ListOverdue
			result.SkippedCount++
			s.logger.Info("renewal sweep skipped subscription changed since read",
				ports.String("subscription_id", sub.ID))
			continue
		}

		switch transition {
		case domain.TransitionRenewed:
			result.RenewedCount++
		case domain.TransitionExpired:
			result.ExpiredCount++
		}
	}

	observability.RecordRenewalSweep("success", time.Since(start).Seconds())
	s.logger.Info("renewal sweep completed",
		ports.Int("processed", result.ProcessedCount),
		ports.Int("renewed", result.RenewedCount),
		ports.Int("expired", result.ExpiredCount),
		ports.Int("skipped", result.SkippedCount),
		ports.Int("failed", result.FailedCount))

	return result, nil
}

func (s *Service) normalize(sub *domain.Subscription, now time.Time, rescheduled bool, source string) domain.Transition {
	transition := sub.Normalize(now, rescheduled)
	if transition != domain.TransitionNone {
		observability.RecordTransition(string(transition), source)
		s.logger.Info("subscription normalized",
			ports.String("subscription_id", sub.ID),
			ports.String("transition", string(transition)),
			ports.Time("next_billing", sub.NextBillingDate))
	}
	return transition
}

// loadOwned fetches a subscription the actor is allowed to modify
func (s *Service) loadOwned(ctx context.Context, actor *domain.User, id string) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub.UserID != actor.ID {
		s.logger.Warn("subscription access denied",
			ports.String("subscription_id", id),
			ports.String("user_id", actor.ID))
		return nil, domain.ErrAuthAccessDenied
	}
	return sub, nil
}

func newSubscription(userID string, req ports.CreateSubscriptionRequest) (*domain.Subscription, error) {
	sub := &domain.Subscription{
		UserID:              userID,
		Name:                strings.TrimSpace(req.Name),
		Description:         strings.TrimSpace(req.Description),
		Currency:            domain.DefaultCurrency,
		BillingCycle:        domain.DefaultBillingCycle,
		StartDate:           req.StartDate.UTC(),
		Category:            strings.TrimSpace(req.Category),
		Provider:            strings.TrimSpace(req.Provider),
		AutoRenew:           true,
		NotificationEnabled: true,
		NotificationDays:    domain.DefaultNotificationDays,
	}

	if req.Price == nil {
		return nil, domain.NewValidationError("price", "price is required")
	}
	sub.Price = *req.Price

	if req.Currency != "" {
		currency, err := domain.ParseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		sub.Currency = currency
	}
	if req.BillingCycle != "" {
		cycle, err := domain.ParseBillingCycle(req.BillingCycle)
		if err != nil {
			return nil, err
		}
		sub.BillingCycle = cycle
	}
	if sub.Category != "" {
		category, err := domain.ParseCategory(sub.Category)
		if err != nil {
			return nil, err
		}
		sub.Category = category
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}
	if req.NotificationEnabled != nil {
		sub.NotificationEnabled = *req.NotificationEnabled
	}
	if req.NotificationDays != nil {
		sub.NotificationDays = *req.NotificationDays
	}

	return sub, nil
}

// applyUpdate copies the set fields of req onto sub and reports whether the
// billing schedule (start date or cycle) changed.
func applyUpdate(sub *domain.Subscription, req ports.UpdateSubscriptionRequest) (bool, error) {
	rescheduled := false

	if req.Name != nil {
		sub.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		sub.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		sub.Price = *req.Price
	}
	if req.Currency != nil {
		currency, err := domain.ParseCurrency(*req.Currency)
		if err != nil {
			return false, err
		}
		sub.Currency = currency
	}
	if req.BillingCycle != nil {
		cycle, err := domain.ParseBillingCycle(*req.BillingCycle)
		if err != nil {
			return false, err
		}
		if cycle != sub.BillingCycle {
			rescheduled = true
		}
		sub.BillingCycle = cycle
	}
	if req.StartDate != nil {
		if req.StartDate.IsZero() {
			return false, domain.NewValidationError("startDate", "start date is required")
		}
		start := req.StartDate.UTC()
		if !start.Equal(sub.StartDate) {
			rescheduled = true
		}
		sub.StartDate = start
	}
	if req.Category != nil {
		category, err := domain.ParseCategory(*req.Category)
		if err != nil {
			return false, err
		}
		sub.Category = category
	}
	if req.Provider != nil {
		sub.Provider = strings.TrimSpace(*req.Provider)
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}
	if req.NotificationEnabled != nil {
		sub.NotificationEnabled = *req.NotificationEnabled
	}
	if req.NotificationDays != nil {
		sub.NotificationDays = *req.NotificationDays
	}

	return rescheduled, nil
}
