// Package resilience holds retry helpers for connecting to backing services.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines retry backoff behavior
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration // delay before the second attempt
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // 0.1 spreads each delay by ±10%
}

// DefaultExponentialBackoff suits startup connection retries:
// ~500ms, ~1s, ~2s, ~4s ... capped at 15s, ±10% jitter
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay returns BaseDelay * Multiplier^attempt ± jitter, capped at MaxDelay.
// attempt is 0-indexed.
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	jitterAmount := delay * eb.Jitter
	jitter := (rand.Float64()*2 - 1) * jitterAmount

	finalDelay := time.Duration(delay + jitter)
	if finalDelay < 0 {
		finalDelay = eb.BaseDelay
	}
	return finalDelay
}

// ErrRetriesExhausted is joined with the last error when every attempt failed
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retry calls fn up to attempts times, sleeping per backoff between failures.
// It stops early when ctx is done. onRetry, when set, observes each failure
// that will be retried.
func Retry(
	ctx context.Context,
	attempts int,
	backoff BackoffStrategy,
	fn func(ctx context.Context) error,
	onRetry func(attempt int, err error, delay time.Duration),
) error {
	attempts = max(attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := backoff.NextDelay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return errors.Join(ErrRetriesExhausted, lastErr)
}
