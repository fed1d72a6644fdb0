package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minTTL keeps SET NX from receiving a zero expiry, which Redis treats as "keep forever"
const minTTL = time.Second

// ReminderLog implements ports.ReminderLog with SET NX and a TTL
type ReminderLog struct {
	client redis.UniversalClient
	prefix string
}

// NewReminderLog creates a reminder log whose keys are namespaced by prefix
func NewReminderLog(client redis.UniversalClient, prefix string) *ReminderLog {
	return &ReminderLog{client: client, prefix: prefix}
}

// MarkSent stores key for ttl and reports whether it was absent
func (l *ReminderLog) MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ttl = max(ttl, minTTL)

	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark reminder %s: %w", key, err)
	}
	return ok, nil
}

// Forget deletes key so the reminder can be sent again
func (l *ReminderLog) Forget(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("forget reminder %s: %w", key, err)
	}
	return nil
}
