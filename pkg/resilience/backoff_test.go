package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noDelay struct{}

func (noDelay) NextDelay(int) time.Duration { return 0 }

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{6, 6400 * time.Millisecond},
		{7, 10 * time.Second},
		{20, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	backoff := DefaultExponentialBackoff()

	for i := 0; i < 100; i++ {
		d := backoff.NextDelay(1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := Retry(context.Background(), 5, noDelay{}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_Exhausted(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	err := Retry(context.Background(), 3, noDelay{}, func(context.Context) error {
		calls++
		return boom
	}, nil)

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, boom)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), 0, noDelay{}, func(context.Context) error {
		calls++
		return errors.New("x")
	}, nil)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")

	err := Retry(ctx, 10, &ExponentialBackoff{BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}, func(context.Context) error {
		cancel()
		return boom
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, boom)
}
