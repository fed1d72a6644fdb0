// Package secrets loads signing keys and other credentials from a secret
// manager. Backends are AWS Secrets Manager, HashiCorp Vault, local files and
// the process environment; any of them can sit behind an expiring LRU cache.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// ErrSecretNotFound is returned when the backend has no secret at the path
var ErrSecretNotFound = errors.New("secret not found")

// Provider names accepted by Config.Provider
const (
	ProviderEnv   = "env"
	ProviderLocal = "local"
	ProviderAWS   = "aws"
	ProviderVault = "vault"
)

// Config selects and configures the secret manager backend
type Config struct {
	Provider  string        `env:"SECRET_MANAGER" envDefault:"env"`
	LocalPath string        `env:"SECRET_LOCAL_PATH" envDefault:"./secrets"`
	CacheTTL  time.Duration `env:"SECRET_CACHE_TTL" envDefault:"5m"`
	CacheSize int           `env:"SECRET_CACHE_SIZE" envDefault:"128"`

	AWS   AWSConfig
	Vault VaultConfig
}

// New builds the configured backend and wraps it in a cache when CacheTTL is positive
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	var (
		backend ports.SecretManagerAdapter
		err     error
	)

	switch cfg.Provider {
	case ProviderEnv, "":
		backend = NewEnvSecretManager(logger)
	case ProviderLocal:
		logger.Warn("Using local filesystem secret manager, not for production use",
			zap.String("path", cfg.LocalPath))
		backend = NewLocalSecretManager(cfg.LocalPath, logger)
	case ProviderAWS:
		backend, err = NewAWSSecretsManager(ctx, cfg.AWS, logger)
	case ProviderVault:
		backend, err = NewVaultAdapter(ctx, cfg.Vault, logger)
	default:
		return nil, fmt.Errorf("unknown secret manager %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL <= 0 {
		return backend, nil
	}
	return NewCachedSecretManager(backend, cfg.CacheSize, cfg.CacheTTL), nil
}
