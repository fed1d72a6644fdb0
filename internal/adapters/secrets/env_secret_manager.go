package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// EnvSecretManager resolves a secret path to an environment variable:
// "subscription-tracker/jwt" reads SUBSCRIPTION_TRACKER_JWT.
type EnvSecretManager struct {
	logger *zap.Logger
	lookup func(string) (string, bool)
}

// NewEnvSecretManager creates a secret manager backed by the process environment
func NewEnvSecretManager(logger *zap.Logger) *EnvSecretManager {
	return &EnvSecretManager{logger: logger, lookup: os.LookupEnv}
}

// EnvName returns the variable name a path maps to
func EnvName(path string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, strings.Trim(path, "/"))
}

func (m *EnvSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name := EnvName(path)
	value, ok := m.lookup(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s (env %s)", ErrSecretNotFound, path, name)
	}

	m.logger.Debug("Secret read from environment", zap.String("variable", name))
	return &ports.Secret{Value: value, Version: "env"}, nil
}

func (m *EnvSecretManager) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	return m.GetSecret(ctx, path)
}
