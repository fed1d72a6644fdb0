package cron

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
)

// Batch size bounds for the renewal sweep
const (
	DefaultBatchSize = 500
	MaxBatchSize     = 5000
)

// Handler exposes the scheduled jobs over HTTP so an external scheduler can
// trigger them
type Handler struct {
	subscriptions ports.SubscriptionService
	reminders     ports.ReminderService
	logger        *zap.Logger
	secret        []byte
	timeout       time.Duration
}

// NewHandler creates a new cron handler. An empty secret rejects every request.
func NewHandler(
	subscriptions ports.SubscriptionService,
	reminders ports.ReminderService,
	logger *zap.Logger,
	secret string,
	timeout time.Duration,
) *Handler {
	return &Handler{
		subscriptions: subscriptions,
		reminders:     reminders,
		logger:        logger,
		secret:        []byte(secret),
		timeout:       timeout,
	}
}

// SweepRequest is the optional body of POST /cron/renewals
type SweepRequest struct {
	BatchSize *int `json:"batch_size"`
}

// jobResponse wraps a job result with the common cron fields
type jobResponse struct {
	Result      any    `json:"result"`
	ProcessedAt string `json:"processed_at"`
	Success     bool   `json:"success"`
}

// Authorize rejects requests that do not carry the cron secret
func (h *Handler) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authenticateRequest(r) {
			h.logger.Warn("Unauthorized cron request",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			httputil.Error(w, r, h.logger, domain.ErrAuthInvalid)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SweepRenewals handles POST /cron/renewals
func (h *Handler) SweepRenewals(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Renewal sweep triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	var req SweepRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.Error(w, r, h.logger, err)
			return
		}
	}

	batchSize := DefaultBatchSize
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > MaxBatchSize {
			httputil.Error(w, r, h.logger, domain.NewValidationError("batch_size", "batch_size must be between 1 and 5000"))
			return
		}
		batchSize = *req.BatchSize
	}

	// The job outlives a dropped client connection but not the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	result, err := h.subscriptions.SweepRenewals(ctx, batchSize)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info("Renewal sweep completed",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("renewed", result.RenewedCount),
		zap.Int("expired", result.ExpiredCount),
		zap.Int("failed", result.FailedCount),
	)
	h.respond(w, result.FailedCount == 0, result)
}

// DispatchReminders handles POST /cron/reminders
func (h *Handler) DispatchReminders(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Reminder dispatch triggered",
		zap.String("remote_addr", r.RemoteAddr),
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	result, err := h.reminders.DispatchDueReminders(ctx)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info("Reminder dispatch completed",
		zap.Int("scanned", result.ScannedCount),
		zap.Int("sent", result.SentCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)
	h.respond(w, result.FailedCount == 0, result)
}

// respond writes 200 on full success and 206 when some items failed
func (h *Handler) respond(w http.ResponseWriter, ok bool, result any) {
	status := http.StatusOK
	if !ok {
		status = http.StatusPartialContent
	}
	httputil.WriteJSON(w, status, jobResponse{
		Success:     ok,
		Result:      result,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheck handles GET /cron/health for monitoring
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// authenticateRequest accepts X-Cron-Secret or Authorization: Bearer <secret>
func (h *Handler) authenticateRequest(r *http.Request) bool {
	if len(h.secret) == 0 {
		return false
	}

	if provided := r.Header.Get("X-Cron-Secret"); provided != "" {
		return subtle.ConstantTimeCompare([]byte(provided), h.secret) == 1
	}

	authHeader := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), h.secret) == 1
	}
	return false
}
