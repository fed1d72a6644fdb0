// Package handlers assembles the HTTP surface of the service.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/handlers/auth"
	"github.com/kevin07696/subscription-tracker/internal/handlers/cron"
	"github.com/kevin07696/subscription-tracker/internal/handlers/httputil"
	"github.com/kevin07696/subscription-tracker/internal/handlers/subscriptions"
	"github.com/kevin07696/subscription-tracker/internal/handlers/users"
	"github.com/kevin07696/subscription-tracker/internal/middleware"
	pkgmw "github.com/kevin07696/subscription-tracker/pkg/middleware"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
)

// RouterDeps are the collaborators the router mounts
type RouterDeps struct {
	Auth          *auth.Handler
	Users         *users.Handler
	Subscriptions *subscriptions.Handler
	Cron          *cron.Handler
	Guard         *middleware.Auth
	RateLimiter   *pkgmw.RateLimiter
	Logger        *zap.Logger
	Development   bool
}

// NewRouter builds the chi router with the middleware chain and all routes
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(observability.HTTPMetrics)
	r.Use(middleware.SecurityHeaders(deps.Development))
	r.Use(middleware.RequestLogger(deps.Logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "route not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:   "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the subscription tracker api"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", deps.Auth.SignUp)
			r.Post("/sign-in", deps.Auth.SignIn)
			r.Post("/create-admin", deps.Auth.CreateAdmin)
			r.With(deps.Guard.Protect).Post("/sign-out", deps.Auth.SignOut)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.Guard.Protect)
			r.With(deps.Guard.AdminOnly).Get("/", deps.Users.List)
			r.Get("/{id}", deps.Users.Get)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(deps.Guard.Protect)
			r.Post("/", deps.Subscriptions.Create)
			r.With(deps.Guard.AdminOnly).Get("/all", deps.Subscriptions.ListAll)
			r.Get("/renewals/upcoming", deps.Subscriptions.Upcoming)
			r.Get("/user/{id}", deps.Subscriptions.ListByUser)
			r.Put("/update/{id}", deps.Subscriptions.Update)
			r.Put("/cancel/{id}", deps.Subscriptions.Cancel)
			r.Delete("/delete/{id}", deps.Subscriptions.Delete)
			r.Get("/{id}", deps.Subscriptions.Get)
		})
	})

	if deps.Cron != nil {
		r.Route("/cron", func(r chi.Router) {
			r.Get("/health", deps.Cron.HealthCheck)
			r.Group(func(r chi.Router) {
				r.Use(deps.Cron.Authorize)
				r.Post("/renewals", deps.Cron.SweepRenewals)
				r.Post("/reminders", deps.Cron.DispatchReminders)
			})
		})
	}

	return r
}

