package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(map[string]string{"JWT_SECRET": "secret"})
	require.NoError(t, err)

	assert.Equal(t, 5500, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5500", cfg.Server.Addr())
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiresIn)
	assert.False(t, cfg.Auth.AllowAdminBootstrap)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 2, cfg.RateLimit.Cost)
	assert.Equal(t, "subtracker:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "env", cfg.Secrets.Provider)
	assert.Equal(t, 500, cfg.Cron.SweepBatchSize)
	assert.Equal(t, 90*24*time.Hour, cfg.Reminder.ServiceConfig().Horizon)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(map[string]string{
		"JWT_SECRET_PATH":            "subtracker/jwt",
		"JWT_EXPIRES_IN":             "1h",
		"STORAGE_DRIVER":             "postgres",
		"DATABASE_URL":               "postgres://localhost/subs",
		"ENVIRONMENT":                "production",
		"AUTH_ALLOW_ADMIN_BOOTSTRAP": "true",
		"RATE_LIMIT_CAPACITY":        "10",
		"REMINDER_SCHEDULE":          "@daily",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpiresIn)
	assert.True(t, cfg.Auth.AllowAdminBootstrap)
	assert.Equal(t, "postgres://localhost/subs", cfg.Database.DatabaseURL)
	assert.Equal(t, 10, cfg.RateLimit.Capacity)
	assert.Equal(t, "@daily", cfg.Cron.ReminderSchedule)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantMsg string
	}{
		{
			name:    "missing jwt secret",
			environ: map[string]string{},
			wantMsg: "JWT_SECRET",
		},
		{
			name:    "unknown driver",
			environ: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "sqlite"},
			wantMsg: "STORAGE_DRIVER",
		},
		{
			name:    "postgres without url",
			environ: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "postgres"},
			wantMsg: "DATABASE_URL",
		},
		{
			name:    "mongo without url",
			environ: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "mongo"},
			wantMsg: "MONGODB_URL",
		},
		{
			name:    "memory in production",
			environ: map[string]string{"JWT_SECRET": "s", "ENVIRONMENT": "production"},
			wantMsg: "memory",
		},
		{
			name:    "postmark without sender",
			environ: map[string]string{"JWT_SECRET": "s", "POSTMARK_SERVER_TOKEN": "tok"},
			wantMsg: "EMAIL_SENDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.environ)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(map[string]string{"JWT_SECRET": "s", "PORT": "not-a-number"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
