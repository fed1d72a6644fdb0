package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// SubscriptionRepository keeps subscriptions in process memory. It backs
// local development and handler tests.
type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.Subscription
}

// NewSubscriptionRepository creates an empty store
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[string]*domain.Subscription)}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID] = cloneSubscription(sub)
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return cloneSubscription(sub), nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	r.subs[sub.ID] = cloneSubscription(sub)
	return nil
}

func (r *SubscriptionRepository) UpdateIfActive(ctx context.Context, sub *domain.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.subs[sub.ID]
	if !ok || !stored.IsActive() {
		return false, nil
	}
	r.subs[sub.ID] = cloneSubscription(sub)
	return true, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	delete(r.subs, id)
	return nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Subscription, error) {
	subs := r.filter(func(s *domain.Subscription) bool { return s.UserID == userID })
	sortNewestFirst(subs)
	return subs, nil
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]*domain.Subscription, error) {
	subs := r.filter(func(*domain.Subscription) bool { return true })
	sortNewestFirst(subs)
	return subs, nil
}

func (r *SubscriptionRepository) ListUpcoming(ctx context.Context, f ports.UpcomingFilter) ([]*domain.Subscription, error) {
	subs := r.filter(func(s *domain.Subscription) bool {
		if !s.IsActive() {
			return false
		}
		if f.UserID != "" && s.UserID != f.UserID {
			return false
		}
		if f.NotificationsOnly && !s.NotificationEnabled {
			return false
		}
		if f.DueOnly && s.NextBillingDate.After(f.From.Add(time.Duration(s.NotificationDays)*24*time.Hour)) {
			return false
		}
		return !s.NextBillingDate.Before(f.From) && !s.NextBillingDate.After(f.To)
	})
	sortByBillingDate(subs)
	if f.Offset > 0 {
		if f.Offset >= len(subs) {
			return []*domain.Subscription{}, nil
		}
		subs = subs[f.Offset:]
	}
	return limit(subs, f.Limit), nil
}

func (r *SubscriptionRepository) ListOverdue(ctx context.Context, asOf time.Time, n int) ([]*domain.Subscription, error) {
	subs := r.filter(func(s *domain.Subscription) bool { return s.IsOverdue(asOf) })
	sortByBillingDate(subs)
	return limit(subs, n), nil
}

func (r *SubscriptionRepository) filter(keep func(*domain.Subscription) bool) []*domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Subscription, 0)
	for _, s := range r.subs {
		if keep(s) {
			out = append(out, cloneSubscription(s))
		}
	}
	return out
}

func cloneSubscription(s *domain.Subscription) *domain.Subscription {
	c := *s
	if s.CancelledAt != nil {
		at := *s.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

func sortNewestFirst(subs []*domain.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

func sortByBillingDate(subs []*domain.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].NextBillingDate.Equal(subs[j].NextBillingDate) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].NextBillingDate.Before(subs[j].NextBillingDate)
	})
}

func limit(subs []*domain.Subscription, n int) []*domain.Subscription {
	if n > 0 && len(subs) > n {
		return subs[:n]
	}
	return subs
}
