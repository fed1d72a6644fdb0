package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

const subscriptionColumns = `id, user_id, name, description, price, currency, billing_cycle,
	start_date, next_billing_date, status, category, provider, auto_renew,
	notification_enabled, notification_days, cancelled_at, created_at, updated_at`

// SubscriptionRepository implements ports.SubscriptionRepository using PostgreSQL
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.UserID, s.Name, s.Description, decimalToNumeric(s.Price), s.Currency, string(s.BillingCycle),
		s.StartDate, s.NextBillingDate, string(s.Status), s.Category, s.Provider, s.AutoRenew,
		s.NotificationEnabled, s.NotificationDays, s.CancelledAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "insert subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get subscription", err)
	}

	sub, err := pgx.CollectExactlyOneRow(rows, scanSubscription)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan subscription", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, s *domain.Subscription) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET
			name = $2, description = $3, price = $4, currency = $5, billing_cycle = $6,
			start_date = $7, next_billing_date = $8, status = $9, category = $10, provider = $11,
			auto_renew = $12, notification_enabled = $13, notification_days = $14,
			cancelled_at = $15, updated_at = $16
		WHERE id = $1`,
		s.ID, s.Name, s.Description, decimalToNumeric(s.Price), s.Currency, string(s.BillingCycle),
		s.StartDate, s.NextBillingDate, string(s.Status), s.Category, s.Provider,
		s.AutoRenew, s.NotificationEnabled, s.NotificationDays,
		s.CancelledAt, s.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) UpdateIfActive(ctx context.Context, s *domain.Subscription) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET
			name = $2, description = $3, price = $4, currency = $5, billing_cycle = $6,
			start_date = $7, next_billing_date = $8, status = $9, category = $10, provider = $11,
			auto_renew = $12, notification_enabled = $13, notification_days = $14,
			cancelled_at = $15, updated_at = $16
		WHERE id = $1 AND status = 'Active'`,
		s.ID, s.Name, s.Description, decimalToNumeric(s.Price), s.Currency, string(s.BillingCycle),
		s.StartDate, s.NextBillingDate, string(s.Status), s.Category, s.Provider,
		s.AutoRenew, s.NotificationEnabled, s.NotificationDays,
		s.CancelledAt, s.UpdatedAt,
	)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "update active subscription", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "delete subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]*domain.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at DESC, id`)
}

func (r *SubscriptionRepository) ListUpcoming(ctx context.Context, f ports.UpcomingFilter) ([]*domain.Subscription, error) {
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}

	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'Active'
		  AND next_billing_date BETWEEN $1 AND $2
		  AND ($3 = '' OR user_id = $3)
		  AND (NOT $4 OR notification_enabled)
		  AND (NOT $5 OR next_billing_date <= $1::timestamptz + notification_days * interval '24 hours')
		ORDER BY next_billing_date, id
		LIMIT $6 OFFSET $7`,
		f.From, f.To, f.UserID, f.NotificationsOnly, f.DueOnly, limit, max(f.Offset, 0))
}

func (r *SubscriptionRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'Active' AND next_billing_date < $1
		ORDER BY next_billing_date, id
		LIMIT $2`, asOf, lim)
}

func (r *SubscriptionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list subscriptions", err)
	}

	subs, err := pgx.CollectRows(rows, scanSubscription)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan subscriptions", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.CollectableRow) (*domain.Subscription, error) {
	var (
		s            domain.Subscription
		price        pgtype.Numeric
		billingCycle string
		status       string
	)

	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Description, &price, &s.Currency, &billingCycle,
		&s.StartDate, &s.NextBillingDate, &status, &s.Category, &s.Provider, &s.AutoRenew,
		&s.NotificationEnabled, &s.NotificationDays, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Price = numericToDecimal(price)
	s.BillingCycle = domain.BillingCycle(billingCycle)
	s.Status = domain.SubscriptionStatus(status)
	s.StartDate = s.StartDate.UTC()
	s.NextBillingDate = s.NextBillingDate.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.CancelledAt != nil {
		at := s.CancelledAt.UTC()
		s.CancelledAt = &at
	}
	return &s, nil
}
