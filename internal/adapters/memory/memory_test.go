package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/subscription-tracker/internal/adapters/repotest"
)

func TestSubscriptionRepository(t *testing.T) {
	repotest.SubscriptionRepository(t, NewSubscriptionRepository())
}

func TestUserRepository(t *testing.T) {
	repotest.UserRepository(t, NewUserRepository())
}

func TestSubscriptionRepository_ReturnsCopies(t *testing.T) {
	repo := NewSubscriptionRepository()
	ctx := context.Background()
	sub := repotest.NewSubscription("u1", 3)
	require.NoError(t, repo.Create(ctx, sub))

	sub.Name = "mutated after create"
	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cloud Storage", got.Name)

	got.Name = "mutated after get"
	again, _ := repo.GetByID(ctx, sub.ID)
	assert.Equal(t, "Cloud Storage", again.Name)
}

func TestReminderLog(t *testing.T) {
	ctx := context.Background()
	log := NewReminderLog()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return now }

	first, err := log.MarkSent(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, _ := log.MarkSent(ctx, "k", time.Hour)
	assert.False(t, second)

	now = now.Add(2 * time.Hour)
	afterExpiry, _ := log.MarkSent(ctx, "k", time.Hour)
	assert.True(t, afterExpiry)

	require.NoError(t, log.Forget(ctx, "k"))
	afterForget, _ := log.MarkSent(ctx, "k", time.Hour)
	assert.True(t, afterForget)
}

func TestReminderLog_DropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	log := NewReminderLog()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		_, err := log.MarkSent(ctx, key, time.Hour)
		require.NoError(t, err)
	}
	assert.Len(t, log.entries, 3)

	now = now.Add(2 * time.Hour)
	_, err := log.MarkSent(ctx, "d", time.Hour)
	require.NoError(t, err)

	assert.Len(t, log.entries, 1)
	assert.Contains(t, log.entries, "d")
}
