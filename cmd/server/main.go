package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/app"
	"github.com/kevin07696/subscription-tracker/internal/config"
	"github.com/kevin07696/subscription-tracker/internal/handlers"
	authHandler "github.com/kevin07696/subscription-tracker/internal/handlers/auth"
	cronHandler "github.com/kevin07696/subscription-tracker/internal/handlers/cron"
	subscriptionHandler "github.com/kevin07696/subscription-tracker/internal/handlers/subscriptions"
	userHandler "github.com/kevin07696/subscription-tracker/internal/handlers/users"
	"github.com/kevin07696/subscription-tracker/internal/middleware"
	"github.com/kevin07696/subscription-tracker/internal/scheduler"
	"github.com/kevin07696/subscription-tracker/pkg/logging"
	pkgmiddleware "github.com/kevin07696/subscription-tracker/pkg/middleware"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
	"github.com/kevin07696/subscription-tracker/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Server.Environment, cfg.Logger.Level)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting subscription tracker",
		zap.String("environment", cfg.Server.Environment),
		zap.String("storage", cfg.Storage.Driver),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Registration order is the reverse of stop order: storage first, HTTP last.
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	for _, c := range a.Closers() {
		sm.Register(c.Name, c.Fn)
	}

	rateLimiter := pkgmiddleware.NewRateLimiter(cfg.RateLimit)
	sm.RegisterFunc("rate_limiter", rateLimiter.Shutdown)

	if cfg.Cron.Enabled {
		sched, err := scheduler.New(a.Subscriptions, a.Reminders, scheduler.Config{
			RenewalSchedule:  cfg.Cron.RenewalSchedule,
			ReminderSchedule: cfg.Cron.ReminderSchedule,
			SweepBatchSize:   cfg.Cron.SweepBatchSize,
			JobTimeout:       cfg.Cron.JobTimeout,
		}, logger)
		if err != nil {
			sm.Shutdown()
			return err
		}
		sched.Start()
		sm.Register("scheduler", sched.Stop)
	}

	if cfg.Cron.Secret == "" {
		logger.Warn("CRON_SECRET not set, /cron job endpoints reject every request")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:          authHandler.NewHandler(a.Auth, logger),
		Users:         userHandler.NewHandler(a.Users, logger),
		Subscriptions: subscriptionHandler.NewHandler(a.Subscriptions, logger),
		Cron:          cronHandler.NewHandler(a.Subscriptions, a.Reminders, logger, cfg.Cron.Secret, cfg.Cron.JobTimeout),
		Guard:         middleware.NewAuth(a.Auth, logger),
		RateLimiter:   rateLimiter,
		Logger:        logger,
		Development:   !cfg.IsProduction(),
	})

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), a.Health, logger)
	sm.Register("metrics_server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	sm.Register("http_server", httpServer.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-serverErr; err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	return sm.Wait(waitCtx)
}
