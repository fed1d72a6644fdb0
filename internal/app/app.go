// Package app wires storage, notifiers and services from configuration.
// Both the server and the admin CLI build on it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/adapters/memory"
	"github.com/kevin07696/subscription-tracker/internal/adapters/mongo"
	"github.com/kevin07696/subscription-tracker/internal/adapters/notify"
	"github.com/kevin07696/subscription-tracker/internal/adapters/postgres"
	"github.com/kevin07696/subscription-tracker/internal/adapters/redis"
	"github.com/kevin07696/subscription-tracker/internal/adapters/secrets"
	"github.com/kevin07696/subscription-tracker/internal/config"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/internal/services/auth"
	"github.com/kevin07696/subscription-tracker/internal/services/reminder"
	"github.com/kevin07696/subscription-tracker/internal/services/subscription"
	"github.com/kevin07696/subscription-tracker/internal/services/user"
	"github.com/kevin07696/subscription-tracker/pkg/logging"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// App holds the wired services and everything that must be closed on exit
type App struct {
	Subscriptions *subscription.Service
	Reminders     *reminder.Service
	Auth          *auth.Service
	Users         *user.Service
	Health        *observability.HealthChecker

	closers []Closer
}

// Closer is a named shutdown hook
type Closer struct {
	Name string
	Fn   func(context.Context) error
}

// Closers returns shutdown hooks in creation order
func (a *App) Closers() []Closer {
	return append([]Closer(nil), a.closers...)
}

// Close runs every shutdown hook in reverse creation order
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Fn(ctx)
	}
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, Closer{Name: name, Fn: fn})
}

// New builds the application graph. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{Health: observability.NewHealthChecker()}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	svcLogger := logging.NewZapLogger(logger)

	subRepo, userRepo, err := a.storage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	secret, err := jwtSecret(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	jm, err := auth.NewJWTManager(secret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}

	sent, err := a.reminderLog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier, err := a.notifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Auth = auth.NewService(userRepo, jm, auth.Config{
		AllowAdminBootstrap: cfg.Auth.AllowAdminBootstrap,
		BcryptCost:          cfg.Auth.BcryptCost,
	}, svcLogger, timeutil.Now)
	a.Users = user.NewService(userRepo, svcLogger)
	a.Subscriptions = subscription.NewService(subRepo, svcLogger, timeutil.Now)
	a.Reminders = reminder.NewService(subRepo, userRepo, notifier, sent, cfg.Reminder.ServiceConfig(), svcLogger, timeutil.Now)

	return a, nil
}

func (a *App) storage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SubscriptionRepository, ports.UserRepository, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		a.onClose("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}

		monitorCtx, stopMonitor := context.WithCancel(context.Background())
		postgres.MonitorPool(monitorCtx, pool, cfg.Database.PoolMonitorInterval, logger)
		a.onClose("postgres_monitor", func(context.Context) error {
			stopMonitor()
			return nil
		})

		a.Health.Register("postgres", observability.PingFunc(pool.Ping))
		return postgres.NewSubscriptionRepository(pool), postgres.NewUserRepository(pool), nil

	case config.StorageMongo:
		client, err := mongo.New(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		a.onClose("mongo", client.Disconnect)

		db := client.Database(cfg.Mongo.Database)
		subs := mongo.NewSubscriptionRepository(db)
		users := mongo.NewUserRepository(db)
		if err := subs.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("subscription indexes: %w", err)
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("user indexes: %w", err)
		}

		a.Health.Register("mongo", observability.PingFunc(mongo.Healthcheck(client)))
		return subs, users, nil

	default:
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewSubscriptionRepository(), memory.NewUserRepository(), nil
	}
}

func (a *App) reminderLog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ReminderLog, error) {
	if cfg.Redis.ConnectionURL == "" {
		logger.Info("REDIS_URL not set, reminder dedupe is process-local")
		return memory.NewReminderLog(), nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.onClose("redis", func(context.Context) error { return client.Close() })
	a.Health.Register("redis", observability.PingFunc(redis.Healthcheck(client)))

	return redis.NewReminderLog(client, cfg.Redis.KeyPrefix), nil
}

// notifier fans reminders out to every configured channel, each behind its
// own circuit breaker. With nothing configured reminders are only logged.
func (a *App) notifier(cfg *config.Config, logger *zap.Logger) (ports.Notifier, error) {
	var fanout notify.Fanout

	if cfg.Postmark.ServerToken != "" {
		pm, err := notify.NewPostmarkNotifier(cfg.Postmark)
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, notify.NewBreakerNotifier("postmark", pm, cfg.Breaker, logger))
	}

	if cfg.AMQP.URL != "" {
		mq, err := notify.NewAMQPNotifier(cfg.AMQP, logger)
		if err != nil {
			return nil, err
		}
		a.onClose("amqp", func(context.Context) error { return mq.Close() })
		fanout = append(fanout, notify.NewBreakerNotifier("amqp", mq, cfg.Breaker, logger))
	}

	if len(fanout) == 0 {
		return notify.NewLogNotifier(logger), nil
	}
	return fanout, nil
}

// jwtSecret prefers the secret manager when JWT_SECRET_PATH is set
func jwtSecret(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]byte, error) {
	if cfg.Auth.JWTSecretPath == "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}

	sm, err := secrets.New(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("secret manager: %w", err)
	}
	secret, err := sm.GetSecret(ctx, cfg.Auth.JWTSecretPath)
	if err != nil {
		return nil, fmt.Errorf("load jwt secret %q: %w", cfg.Auth.JWTSecretPath, err)
	}

	logger.Info("JWT secret loaded from secret manager",
		zap.String("provider", cfg.Secrets.Provider),
		zap.String("version", secret.Version),
	)
	return []byte(secret.Value), nil
}
