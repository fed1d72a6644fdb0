// Package subscriptions serves the /api/v1/subscriptions endpoints.
package subscriptions

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
	"github.com/kevin07696/subscription-tracker/internal/middleware"
	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// Accepted startDate layouts, tried in order
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Handler serves subscription CRUD and the upcoming-renewals view
type Handler struct {
	service ports.SubscriptionService
	logger  *zap.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(service ports.SubscriptionService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// subscriptionInput is the wire shape of create and update bodies. startDate
// arrives as a string so both date-only and RFC3339 values are accepted.
// nextBillingDate and status are never read from callers.
type subscriptionInput struct {
	StartDate           *string          `json:"startDate"`
	Price               *decimal.Decimal `json:"price"`
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Currency            *string          `json:"currency"`
	BillingCycle        *string          `json:"billingCycle"`
	Category            *string          `json:"category"`
	Provider            *string          `json:"provider"`
	AutoRenew           *bool            `json:"autoRenew"`
	NotificationEnabled *bool            `json:"notificationEnabled"`
	NotificationDays    *int             `json:"notificationDays"`
}

func (in *subscriptionInput) startDate() (*time.Time, error) {
	if in.StartDate == nil {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := timeutil.ParseDate(layout, *in.StartDate); err == nil {
			return &t, nil
		}
	}
	return nil, domain.NewValidationError("startDate", "start date must be a valid date (YYYY-MM-DD or RFC3339)")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (in *subscriptionInput) toCreate() (ports.CreateSubscriptionRequest, error) {
	start, err := in.startDate()
	if err != nil {
		return ports.CreateSubscriptionRequest{}, err
	}
	if start == nil {
		return ports.CreateSubscriptionRequest{}, domain.NewValidationError("startDate", "start date is required")
	}
	return ports.CreateSubscriptionRequest{
		StartDate:           *start,
		Price:               in.Price,
		AutoRenew:           in.AutoRenew,
		NotificationEnabled: in.NotificationEnabled,
		NotificationDays:    in.NotificationDays,
		Name:                deref(in.Name),
		Description:         deref(in.Description),
		Currency:            deref(in.Currency),
		BillingCycle:        deref(in.BillingCycle),
		Category:            deref(in.Category),
		Provider:            deref(in.Provider),
	}, nil
}

func (in *subscriptionInput) toUpdate() (ports.UpdateSubscriptionRequest, error) {
	start, err := in.startDate()
	if err != nil {
		return ports.UpdateSubscriptionRequest{}, err
	}
	return ports.UpdateSubscriptionRequest{
		StartDate:           start,
		Price:               in.Price,
		Name:                in.Name,
		Description:         in.Description,
		Currency:            in.Currency,
		BillingCycle:        in.BillingCycle,
		Category:            in.Category,
		Provider:            in.Provider,
		AutoRenew:           in.AutoRenew,
		NotificationEnabled: in.NotificationEnabled,
		NotificationDays:    in.NotificationDays,
	}, nil
}

// createdResponse mirrors the create payload shape {"subscription": {...}}
type createdResponse struct {
	Subscription *domain.Subscription `json:"subscription"`
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, r, h.logger, domain.ErrAuthMissing)
		return nil, false
	}
	return user, true
}

// Create handles POST /api/v1/subscriptions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var in subscriptionInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	req, err := in.toCreate()
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), actor, req)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusCreated, createdResponse{Subscription: sub}, "Subscription created successfully")
}

// Get handles GET /api/v1/subscriptions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, sub, "Subscription fetched successfully")
}

// ListByUser handles GET /api/v1/subscriptions/user/{id}
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListUserSubscriptions(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, subs, "Subscriptions fetched successfully")
}

// ListAll handles GET /api/v1/subscriptions/all (admin)
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListAllSubscriptions(r.Context())
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, subs, "Subscriptions fetched successfully")
}

// Update handles PUT /api/v1/subscriptions/update/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var in subscriptionInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	req, err := in.toUpdate()
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	sub, err := h.service.UpdateSubscription(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, sub, "Subscription updated successfully")
}

// Cancel handles PUT /api/v1/subscriptions/cancel/{id}
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	sub, err := h.service.CancelSubscription(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, sub, "Subscription cancelled successfully")
}

// Delete handles DELETE /api/v1/subscriptions/delete/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSubscription(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, struct{}{}, "Subscription deleted successfully")
}

// Upcoming handles GET /api/v1/subscriptions/renewals/upcoming?days=N&dueOnly=true
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var query ports.UpcomingRenewalsQuery
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			httputil.Error(w, r, h.logger, domain.NewValidationError("days", "days must be a positive integer"))
			return
		}
		query.Window = time.Duration(days) * 24 * time.Hour
	}
	if raw := r.URL.Query().Get("dueOnly"); raw != "" {
		dueOnly, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.Error(w, r, h.logger, domain.NewValidationError("dueOnly", "dueOnly must be true or false"))
			return
		}
		query.DueOnly = dueOnly
	}

	subs, err := h.service.UpcomingRenewals(r.Context(), actor, query)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, subs, "Upcoming renewals fetched successfully")
}
