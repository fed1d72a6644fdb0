package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/kevin07696/subscription-tracker/internal/adapters/mongo"
	"github.com/kevin07696/subscription-tracker/internal/adapters/notify"
	"github.com/kevin07696/subscription-tracker/internal/adapters/postgres"
	"github.com/kevin07696/subscription-tracker/internal/adapters/redis"
	"github.com/kevin07696/subscription-tracker/internal/adapters/secrets"
	"github.com/kevin07696/subscription-tracker/internal/services/reminder"
	"github.com/kevin07696/subscription-tracker/pkg/middleware"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Database  postgres.Config
	Mongo     mongo.Config
	Redis     redis.Config
	Secrets   secrets.Config
	Postmark  notify.PostmarkConfig
	AMQP      notify.AMQPConfig
	Breaker   notify.BreakerConfig
	RateLimit middleware.RateLimitConfig
	Reminder  ReminderConfig
	Cron      CronConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"5500"`
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9090"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"` // debug, info, warn, error
}

// AuthConfig holds token and account settings. The signing secret comes
// either from JWT_SECRET or, when JWT_SECRET_PATH is set, from the secret manager.
type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET"`
	JWTSecretPath       string        `env:"JWT_SECRET_PATH"`
	JWTIssuer           string        `env:"JWT_ISSUER" envDefault:"subscription-tracker"`
	JWTExpiresIn        time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`
	AllowAdminBootstrap bool          `env:"AUTH_ALLOW_ADMIN_BOOTSTRAP" envDefault:"false"`
	BcryptCost          int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"memory"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// ReminderConfig controls renewal reminder dispatch
type ReminderConfig struct {
	Horizon     time.Duration `env:"REMINDER_HORIZON" envDefault:"2160h"`
	DedupeGrace time.Duration `env:"REMINDER_DEDUPE_GRACE" envDefault:"24h"`
	BatchSize   int           `env:"REMINDER_BATCH_SIZE" envDefault:"1000"`
}

// CronConfig controls the in-process scheduler and the /cron endpoints
type CronConfig struct {
	Secret           string        `env:"CRON_SECRET"`
	Enabled          bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	RenewalSchedule  string        `env:"RENEWAL_SWEEP_SCHEDULE" envDefault:"@every 1h"`
	ReminderSchedule string        `env:"REMINDER_SCHEDULE" envDefault:"0 8 * * *"`
	SweepBatchSize   int           `env:"RENEWAL_SWEEP_BATCH_SIZE" envDefault:"500"`
	JobTimeout       time.Duration `env:"CRON_JOB_TIMEOUT" envDefault:"5m"`
}

// ServiceConfig converts the env settings into the reminder service's config
func (c ReminderConfig) ServiceConfig() reminder.Config {
	return reminder.Config{
		Horizon:     c.Horizon,
		DedupeGrace: c.DedupeGrace,
		BatchSize:   c.BatchSize,
	}
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvProduction)
}

// LoadFromEnv loads configuration from environment variables, reading a .env
// file first when one exists
func LoadFromEnv() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses configuration from an explicit environment map
func Load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and cross-field rules
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" && c.Auth.JWTSecretPath == "" {
		errs = append(errs, errors.New("JWT_SECRET or JWT_SECRET_PATH is required"))
	}
	if c.Auth.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}

	switch c.Storage.Driver {
	case StorageMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
	case StoragePostgres:
		if c.Database.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case StorageMongo:
		if c.Mongo.ConnectionURL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of memory, postgres, mongo", c.Storage.Driver))
	}

	if c.Postmark.ServerToken != "" && c.Postmark.SenderEmail == "" {
		errs = append(errs, errors.New("EMAIL_SENDER is required when POSTMARK_SERVER_TOKEN is set"))
	}
	if c.Cron.SweepBatchSize < 1 {
		errs = append(errs, errors.New("RENEWAL_SWEEP_BATCH_SIZE must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
