package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
)

// ErrNotifierUnavailable is returned while the breaker is open
var ErrNotifierUnavailable = errors.New("notifier unavailable")

// BreakerConfig configures the circuit breaker around a notifier
type BreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32 `env:"NOTIFIER_BREAKER_MAX_REQUESTS" envDefault:"1"`

	// Interval is the cyclic period of the closed state for clearing counts
	Interval time.Duration `env:"NOTIFIER_BREAKER_INTERVAL" envDefault:"1m"`

	// Timeout is how long the breaker stays open
	Timeout time.Duration `env:"NOTIFIER_BREAKER_TIMEOUT" envDefault:"30s"`

	FailureThreshold uint32 `env:"NOTIFIER_BREAKER_FAILURES" envDefault:"5"`
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes after 30s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerNotifier stops calling a failing delivery channel until it recovers
type BreakerNotifier struct {
	next    ports.Notifier
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerNotifier wraps next in a circuit breaker named name
func NewBreakerNotifier(name string, next ports.Notifier, cfg BreakerConfig, logger *zap.Logger) *BreakerNotifier {
	threshold := max(cfg.FailureThreshold, 1)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Notifier circuit breaker state changed",
				zap.String("notifier", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			observability.RecordBreakerState(name, int(to))
		},
	}

	return &BreakerNotifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *BreakerNotifier) Notify(ctx context.Context, r ports.RenewalReminder) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrNotifierUnavailable, b.breaker.Name(), err)
	}
	return err
}

// State reports the breaker state
func (b *BreakerNotifier) State() gobreaker.State {
	return b.breaker.State()
}
