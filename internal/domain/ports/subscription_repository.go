package ports

import (
	"context"
	"time"

	"github.com/kevin07696/subscription-tracker/internal/domain"
)

// UpcomingFilter selects Active subscriptions billing inside [From, To].
// An empty UserID spans all users. DueOnly further keeps subscriptions whose
// reminder window has opened as of From, i.e. nextBillingDate is at most
// notificationDays days after From.
type UpcomingFilter struct {
	From              time.Time
	To                time.Time
	UserID            string
	NotificationsOnly bool
	DueOnly           bool
	Limit             int
	Offset            int
}

// SubscriptionRepository defines the interface for subscription persistence.
// Implementations return domain.ErrSubscriptionNotFound for unknown ids and
// treat concurrent writes as last-write-wins.
type SubscriptionRepository interface {
	// Create stores a new subscription. The caller assigns the ID.
	Create(ctx context.Context, subscription *domain.Subscription) error

	// GetByID retrieves a subscription by its ID
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)

	// Update replaces every mutable field of an existing subscription
	Update(ctx context.Context, subscription *domain.Subscription) error

	// UpdateIfActive is Update guarded by the stored status still being
	// Active. It reports false, without error, when the stored row has
	// since been cancelled, expired or deleted.
	UpdateIfActive(ctx context.Context, subscription *domain.Subscription) (bool, error)

	// Delete removes a subscription
	Delete(ctx context.Context, id string) error

	// ListByUser lists a user's subscriptions, newest first
	ListByUser(ctx context.Context, userID string) ([]*domain.Subscription, error)

	// ListAll lists every subscription, newest first
	ListAll(ctx context.Context) ([]*domain.Subscription, error)

	// ListUpcoming lists Active subscriptions matching the filter ordered by next billing date
	ListUpcoming(ctx context.Context, filter UpcomingFilter) ([]*domain.Subscription, error)

	// ListOverdue lists Active subscriptions whose next billing date is before asOf,
	// oldest billing date first
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error)
}
