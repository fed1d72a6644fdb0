// Package repotest holds behaviour checks shared by every repository backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// Base is a fixed reference instant, millisecond aligned so every backend
// round-trips it exactly.
var Base = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

// NewSubscription builds a valid Active subscription for userID billing
// inDays after Base.
func NewSubscription(userID string, inDays int) *domain.Subscription {
	return &domain.Subscription{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Name:                "Cloud Storage",
		Description:         "2TB plan",
		Price:               decimal.RequireFromString("9.99"),
		Currency:            "EUR",
		BillingCycle:        domain.BillingCycleMonthly,
		StartDate:           Base.AddDate(0, -1, inDays),
		NextBillingDate:     Base.AddDate(0, 0, inDays),
		Status:              domain.SubscriptionStatusActive,
		Category:            "Internet",
		Provider:            "Dropbox",
		AutoRenew:           true,
		NotificationEnabled: true,
		NotificationDays:    7,
		CreatedAt:           Base.Add(time.Duration(inDays) * time.Minute),
		UpdatedAt:           Base,
	}
}

// NewUser builds a user whose email and username derive from name
func NewUser(name string) *domain.User {
	return &domain.User{
		ID:           uuid.New().String(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    Base,
		UpdatedAt:    Base,
	}
}

// SubscriptionRepository exercises a ports.SubscriptionRepository backend.
// The store must be empty for userIDs it has not seen.
func SubscriptionRepository(t *testing.T, repo ports.SubscriptionRepository) {
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("create and get", func(t *testing.T) {
		sub := NewSubscription(userID, 3)
		require.NoError(t, repo.Create(ctx, sub))

		got, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assertSameSubscription(t, sub, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("update", func(t *testing.T) {
		sub := NewSubscription(userID, 4)
		require.NoError(t, repo.Create(ctx, sub))

		cancelledAt := Base.Add(time.Hour)
		sub.Status = domain.SubscriptionStatusCancelled
		sub.CancelledAt = &cancelledAt
		sub.Price = decimal.RequireFromString("12.50")
		require.NoError(t, repo.Update(ctx, sub))

		got, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assertSameSubscription(t, sub, got)
	})

	t.Run("update missing", func(t *testing.T) {
		err := repo.Update(ctx, NewSubscription(userID, 1))
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		sub := NewSubscription(userID, 5)
		require.NoError(t, repo.Create(ctx, sub))
		require.NoError(t, repo.Delete(ctx, sub.ID))

		_, err := repo.GetByID(ctx, sub.ID)
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, sub.ID), domain.ErrSubscriptionNotFound)
	})

	t.Run("list upcoming and overdue", func(t *testing.T) {
		owner := uuid.New().String()

		overdue := NewSubscription(owner, -2)
		soon := NewSubscription(owner, 2)
		later := NewSubscription(owner, 20)
		muted := NewSubscription(owner, 6)
		muted.NotificationEnabled = false
		expired := NewSubscription(owner, 1)
		expired.Status = domain.SubscriptionStatusExpired

		for _, s := range []*domain.Subscription{later, overdue, muted, soon, expired} {
			require.NoError(t, repo.Create(ctx, s))
		}

		upcoming, err := repo.ListUpcoming(ctx, ports.UpcomingFilter{
			UserID: owner,
			From:   Base,
			To:     Base.AddDate(0, 0, 30),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{soon.ID, muted.ID, later.ID}, ids(upcoming))

		notifying, err := repo.ListUpcoming(ctx, ports.UpcomingFilter{
			UserID:            owner,
			From:              Base,
			To:                Base.AddDate(0, 0, 10),
			NotificationsOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{soon.ID}, ids(notifying))

		limited, err := repo.ListUpcoming(ctx, ports.UpcomingFilter{
			UserID: owner,
			From:   Base,
			To:     Base.AddDate(0, 0, 30),
			Limit:  1,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{soon.ID}, ids(limited))

		late, err := repo.ListOverdue(ctx, Base, 100)
		require.NoError(t, err)
		assert.Contains(t, ids(late), overdue.ID)
		assert.NotContains(t, ids(late), soon.ID)
		assert.NotContains(t, ids(late), expired.ID)

		mine, err := repo.ListByUser(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, mine, 5)
		assert.Equal(t, later.ID, mine[0].ID)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 5)
	})

	t.Run("update if active", func(t *testing.T) {
		sub := NewSubscription(userID, -3)
		require.NoError(t, repo.Create(ctx, sub))

		sub.NextBillingDate = Base.AddDate(0, 1, -3)
		ok, err := repo.UpdateIfActive(ctx, sub)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assertSameSubscription(t, sub, got)

		cancelled := *got
		cancelledAt := Base.Add(time.Hour)
		cancelled.Status = domain.SubscriptionStatusCancelled
		cancelled.CancelledAt = &cancelledAt
		require.NoError(t, repo.Update(ctx, &cancelled))

		stale := *got
		stale.NextBillingDate = Base.AddDate(0, 2, -3)
		ok, err = repo.UpdateIfActive(ctx, &stale)
		require.NoError(t, err)
		assert.False(t, ok)

		stored, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusCancelled, stored.Status)
		assert.True(t, got.NextBillingDate.Equal(stored.NextBillingDate))

		ok, err = repo.UpdateIfActive(ctx, NewSubscription(userID, 1))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("due only and paging", func(t *testing.T) {
		owner := uuid.New().String()

		soon := NewSubscription(owner, 2)
		soon.NotificationDays = 1
		edge := NewSubscription(owner, 7)
		wide := NewSubscription(owner, 20)
		wide.NotificationDays = 30
		narrow := NewSubscription(owner, 25)

		for _, s := range []*domain.Subscription{narrow, wide, edge, soon} {
			require.NoError(t, repo.Create(ctx, s))
		}

		filter := ports.UpcomingFilter{
			UserID:  owner,
			From:    Base,
			To:      Base.AddDate(0, 0, 90),
			DueOnly: true,
		}
		due, err := repo.ListUpcoming(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, []string{edge.ID, wide.ID}, ids(due))

		filter.DueOnly = false
		filter.Limit = 3
		first, err := repo.ListUpcoming(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, []string{soon.ID, edge.ID, wide.ID}, ids(first))

		filter.Offset = 3
		second, err := repo.ListUpcoming(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, []string{narrow.ID}, ids(second))

		filter.Offset = 4
		empty, err := repo.ListUpcoming(ctx, filter)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

// UserRepository exercises a ports.UserRepository backend
func UserRepository(t *testing.T, repo ports.UserRepository) {
	ctx := context.Background()
	name := "u" + uuid.New().String()[:8]
	user := NewUser(name)

	require.NoError(t, repo.Create(ctx, user))

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, user.PasswordHash, byID.PasswordHash)

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := repo.GetByUsername(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = repo.GetByEmail(ctx, "nobody-"+name+"@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	dupe := NewUser(name)
	assert.ErrorIs(t, repo.Create(ctx, dupe), domain.ErrUserAlreadyExists)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, userIDs(users), user.ID)
}

func assertSameSubscription(t *testing.T, want, got *domain.Subscription) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.Price.Equal(got.Price), "price %s != %s", want.Price, got.Price)
	assert.Equal(t, want.Currency, got.Currency)
	assert.Equal(t, want.BillingCycle, got.BillingCycle)
	assert.True(t, want.StartDate.Equal(got.StartDate))
	assert.True(t, want.NextBillingDate.Equal(got.NextBillingDate))
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Provider, got.Provider)
	assert.Equal(t, want.AutoRenew, got.AutoRenew)
	assert.Equal(t, want.NotificationEnabled, got.NotificationEnabled)
	assert.Equal(t, want.NotificationDays, got.NotificationDays)
	if want.CancelledAt == nil {
		assert.Nil(t, got.CancelledAt)
	} else {
		require.NotNil(t, got.CancelledAt)
		assert.True(t, want.CancelledAt.Equal(*got.CancelledAt))
	}
}

func ids(subs []*domain.Subscription) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func userIDs(users []*domain.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
