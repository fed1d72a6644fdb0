package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscriptionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscriptions_created_total",
		Help: "Total subscriptions created",
	}, []string{
		"billing_cycle", // Daily, Weekly, Monthly, Yearly
		"currency",
	})

	subscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "State changes applied by normalization or explicit action",
	}, []string{
		"transition", // renewed, expired, cancelled
		"source",     // write, sweep, user
	})

	renewalSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renewal_sweeps_total",
		Help: "Renewal sweep runs",
	}, []string{
		"status", // success, failed
	})

	renewalSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "renewal_sweep_duration_seconds",
		Help:    "Time taken by one renewal sweep",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	remindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renewal_reminders_total",
		Help: "Renewal reminders by outcome",
	}, []string{
		"status", // sent, skipped, failed
	})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})

	notifierBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notifier_circuit_breaker_state",
		Help: "Notifier circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{
		"notifier",
	})

	usersRegisteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "users_registered_total",
		Help: "User accounts created",
	}, []string{
		"role", // user, admin
	})
)

// RecordSubscriptionCreated records a new subscription
func RecordSubscriptionCreated(billingCycle, currency string) {
	subscriptionsCreatedTotal.WithLabelValues(billingCycle, currency).Inc()
}

// RecordTransition records a status or billing-date change
func RecordTransition(transition, source string) {
	subscriptionTransitionsTotal.WithLabelValues(transition, source).Inc()
}

// RecordRenewalSweep records one sweep run and its duration in seconds
func RecordRenewalSweep(status string, duration float64) {
	renewalSweepsTotal.WithLabelValues(status).Inc()
	renewalSweepDuration.Observe(duration)
}

// RecordReminder records the outcome for one reminder candidate
func RecordReminder(status string) {
	remindersTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited records one rejected request
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// RecordUserRegistered records a new account
func RecordUserRegistered(role string) {
	usersRegisteredTotal.WithLabelValues(role).Inc()
}

// RecordBreakerState records the current state of a notifier circuit breaker
func RecordBreakerState(notifier string, state int) {
	notifierBreakerState.WithLabelValues(notifier).Set(float64(state))
}
