// Package users serves the read-only account endpoints.
package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
	"github.com/kevin07696/subscription-tracker/internal/middleware"
)

// Handler serves /api/v1/users
type Handler struct {
	users  ports.UserService
	logger *zap.Logger
}

// NewHandler creates a new users handler
func NewHandler(users ports.UserService, logger *zap.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// List handles GET /api/v1/users (admin)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, users, "Users fetched successfully")
}

// Get handles GET /api/v1/users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, r, h.logger, domain.ErrAuthMissing)
		return
	}

	user, err := h.users.GetUser(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}
	httputil.Success(w, http.StatusOK, user, "User fetched successfully")
}
