// Package middleware holds HTTP middleware shared by every router.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
)

// RateLimitConfig describes a per-IP token bucket
type RateLimitConfig struct {
	// RefillInterval is the time to regain one token
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"5s"`

	// Capacity is the bucket size
	Capacity int `env:"RATE_LIMIT_CAPACITY" envDefault:"5"`

	// Cost is the number of tokens each request consumes
	Cost int `env:"RATE_LIMIT_COST" envDefault:"2"`

	// MaxClients caps the number of tracked IPs
	MaxClients int `env:"RATE_LIMIT_MAX_CLIENTS" envDefault:"10000"`

	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
}

// DefaultRateLimitConfig refills 2 tokens every 10s into a bucket of 5 and
// charges 2 tokens per request.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RefillInterval:  5 * time.Second,
		Capacity:        5,
		Cost:            2,
		MaxClients:      10000,
		CleanupInterval: 5 * time.Minute,
	}
}

// ipLimiter tracks a rate limiter and its last access time
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter provides rate limiting functionality with automatic cleanup
type RateLimiter struct {
	limiters        map[string]*ipLimiter
	mu              sync.Mutex
	rate            rate.Limit
	burst           int
	cost            int
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = def.RefillInterval
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Cost <= 0 {
		cfg.Cost = 1
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &RateLimiter{
		limiters:        make(map[string]*ipLimiter),
		rate:            rate.Every(cfg.RefillInterval),
		burst:           cfg.Capacity,
		cost:            min(cfg.Cost, cfg.Capacity),
		maxSize:         cfg.MaxClients,
		cleanupInterval: cfg.CleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// cleanupLoop periodically removes stale entries from the rate limiter cache
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes entries that haven't been accessed in the last cleanup interval
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cleanupInterval)
	for ip, limiter := range rl.limiters {
		if limiter.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Shutdown stops the cleanup goroutine
func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow reports whether a request from ip may proceed and charges its cost
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	limiter, exists := rl.limiters[ip]
	if !exists {
		if len(rl.limiters) >= rl.maxSize {
			rl.evictOldest()
		}
		limiter = &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = limiter
	}
	limiter.lastAccess = now

	return limiter.limiter.AllowN(now, rl.cost)
}

func (rl *RateLimiter) evictOldest() {
	var (
		oldestIP   string
		oldestTime time.Time
	)
	for ip, lim := range rl.limiters {
		if oldestIP == "" || lim.lastAccess.Before(oldestTime) {
			oldestIP = ip
			oldestTime = lim.lastAccess
		}
	}
	delete(rl.limiters, oldestIP)
}

// Middleware returns HTTP middleware that applies rate limiting by client IP.
// Run it after chi's RealIP so proxies are accounted for.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			observability.RecordRateLimited()
			w.Header().Set("Retry-After", "10")
			httputil.Error(w, r, zap.NewNop(), domain.ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
