package memory

import (
	"context"
	"sync"
	"time"
)

// ReminderLog is a process-local set-if-absent log with expiry
type ReminderLog struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewReminderLog creates an empty log
func NewReminderLog() *ReminderLog {
	return &ReminderLog{entries: make(map[string]time.Time), now: time.Now}
}

// MarkSent records key unless a live entry exists. Expired entries are
// dropped on the way.
func (l *ReminderLog) MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	if _, ok := l.entries[key]; ok {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)
	return true, nil
}

func (l *ReminderLog) evict(now time.Time) {
	for key, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, key)
		}
	}
}

// Forget removes key
func (l *ReminderLog) Forget(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
