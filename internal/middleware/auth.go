// Package middleware authenticates API requests and attaches the caller to
// the request context.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a bearer token to a live user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// Auth guards routes behind a JWT bearer token
type Auth struct {
	auth   Authenticator
	logger *zap.Logger
}

// NewAuth creates the JWT middleware
func NewAuth(auth Authenticator, logger *zap.Logger) *Auth {
	return &Auth{auth: auth, logger: logger}
}

// Protect rejects requests without a valid token for an existing user
func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.Error(w, r, a.logger, domain.ErrAuthMissing)
			return
		}

		user, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			a.logger.Debug("Token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			httputil.Error(w, r, a.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// AdminOnly allows only admins through. It must run after Protect.
func (a *Auth) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			httputil.Error(w, r, a.logger, domain.ErrAuthMissing)
			return
		}
		if !user.IsAdmin {
			a.logger.Warn("Admin route denied",
				zap.String("user_id", user.ID),
				zap.String("path", r.URL.Path),
			)
			httputil.Error(w, r, a.logger, domain.ErrAuthAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
