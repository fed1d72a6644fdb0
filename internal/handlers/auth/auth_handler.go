// Package auth serves the sign-up, sign-in, sign-out and admin bootstrap endpoints.
package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
)

// Handler serves /api/v1/auth
type Handler struct {
	auth   ports.AuthService
	logger *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(auth ports.AuthService, logger *zap.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// SignUp handles POST /api/v1/auth/sign-up
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req ports.SignUpRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	result, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusCreated, result, "User created successfully")
}

// SignIn handles POST /api/v1/auth/sign-in
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req ports.SignInRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	result, err := h.auth.SignIn(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, result, "User logged in successfully")
}

// SignOut handles POST /api/v1/auth/sign-out. Tokens are stateless, so the
// client discards its copy.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, nil, "User signed out successfully")
}

// CreateAdmin handles POST /api/v1/auth/create-admin
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req ports.SignUpRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	result, err := h.auth.CreateAdmin(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info("Admin account created",
		zap.String("user_id", result.User.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)
	httputil.Success(w, http.StatusCreated, result.User, "Admin user created successfully")
}
