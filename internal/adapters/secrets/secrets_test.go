package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "SUBSCRIPTION_TRACKER_JWT", EnvName("subscription-tracker/jwt"))
	assert.Equal(t, "JWT_SECRET", EnvName("/jwt_secret/"))
}

func TestEnvSecretManager(t *testing.T) {
	m := NewEnvSecretManager(zap.NewNop())
	m.lookup = func(name string) (string, bool) {
		if name == "APP_JWT" {
			return "from-env", true
		}
		return "", false
	}

	secret, err := m.GetSecret(context.Background(), "app/jwt")
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret.Value)

	_, err = m.GetSecretVersion(context.Background(), "app/missing", "1")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestLocalSecretManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain"), []byte("plain-value\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "structured"),
		[]byte(`{"value":"json-value","tags":{"env":"dev"},"created_at":"2024-01-01T00:00:00Z"}`), 0o600))

	m := NewLocalSecretManager(dir, zap.NewNop())
	ctx := context.Background()

	t.Run("plain text", func(t *testing.T) {
		secret, err := m.GetSecret(ctx, "plain")
		require.NoError(t, err)
		assert.Equal(t, "plain-value", secret.Value)
	})

	t.Run("json", func(t *testing.T) {
		secret, err := m.GetSecret(ctx, "structured")
		require.NoError(t, err)
		assert.Equal(t, "json-value", secret.Value)
		assert.Equal(t, "dev", secret.Metadata["env"])
	})

	t.Run("missing", func(t *testing.T) {
		_, err := m.GetSecret(ctx, "nope")
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("cannot escape base path", func(t *testing.T) {
		_, err := m.GetSecret(ctx, "../"+filepath.Base(dir)+"/plain")
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})
}

type countingBackend struct {
	calls atomic.Int32
	err   error
}

func (b *countingBackend) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return &ports.Secret{Value: "v-" + path, Version: "latest"}, nil
}

func (b *countingBackend) GetSecretVersion(ctx context.Context, path, version string) (*ports.Secret, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return &ports.Secret{Value: "v-" + path, Version: version}, nil
}

func TestCachedSecretManager(t *testing.T) {
	ctx := context.Background()

	t.Run("hits are served from cache", func(t *testing.T) {
		backend := &countingBackend{}
		c := NewCachedSecretManager(backend, 10, time.Minute)

		for range 3 {
			secret, err := c.GetSecret(ctx, "jwt")
			require.NoError(t, err)
			assert.Equal(t, "v-jwt", secret.Value)
		}
		assert.Equal(t, int32(1), backend.calls.Load())

		v, err := c.GetSecretVersion(ctx, "jwt", "2")
		require.NoError(t, err)
		assert.Equal(t, "2", v.Version)
		assert.Equal(t, int32(2), backend.calls.Load())
	})

	t.Run("entries expire", func(t *testing.T) {
		backend := &countingBackend{}
		c := NewCachedSecretManager(backend, 10, 20*time.Millisecond)

		_, err := c.GetSecret(ctx, "jwt")
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
		_, err = c.GetSecret(ctx, "jwt")
		require.NoError(t, err)
		assert.Equal(t, int32(2), backend.calls.Load())
	})

	t.Run("invalidate drops all versions", func(t *testing.T) {
		backend := &countingBackend{}
		c := NewCachedSecretManager(backend, 10, time.Minute)

		_, _ = c.GetSecret(ctx, "jwt")
		_, _ = c.GetSecretVersion(ctx, "jwt", "1")
		_, _ = c.GetSecret(ctx, "jwt-other")
		c.Invalidate("jwt")

		_, _ = c.GetSecret(ctx, "jwt")
		_, _ = c.GetSecretVersion(ctx, "jwt", "1")
		_, _ = c.GetSecret(ctx, "jwt-other")
		assert.Equal(t, int32(5), backend.calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		backend := &countingBackend{err: errors.New("boom")}
		c := NewCachedSecretManager(backend, 10, time.Minute)

		_, err := c.GetSecret(ctx, "jwt")
		assert.Error(t, err)
		_, err = c.GetSecret(ctx, "jwt")
		assert.Error(t, err)
		assert.Equal(t, int32(2), backend.calls.Load())
	})
}

type fakeSecretsManager struct {
	values map[string]string
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	key := aws.ToString(in.SecretId) + "@" + aws.ToString(in.VersionId)
	value, ok := f.values[key]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(value),
		VersionId:    aws.String("ver-" + aws.ToString(in.VersionId)),
		ARN:          aws.String("arn:aws:secretsmanager:us-east-1:1:secret:" + aws.ToString(in.SecretId)),
		Name:         in.SecretId,
		CreatedDate:  &created,
	}, nil
}

func TestAWSSecretsManager(t *testing.T) {
	m := &AWSSecretsManager{
		client: &fakeSecretsManager{values: map[string]string{
			"app/jwt@":   "current",
			"app/jwt@v1": "previous",
		}},
		logger: zap.NewNop(),
	}
	ctx := context.Background()

	secret, err := m.GetSecret(ctx, "app/jwt")
	require.NoError(t, err)
	assert.Equal(t, "current", secret.Value)
	assert.Equal(t, "2024-01-02T03:04:05Z", secret.CreatedAt)
	assert.Equal(t, "app/jwt", secret.Metadata["name"])

	old, err := m.GetSecretVersion(ctx, "app/jwt", "v1")
	require.NoError(t, err)
	assert.Equal(t, "previous", old.Value)

	_, err = m.GetSecret(ctx, "app/missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestVaultAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path != "/v1/secret/data/app/jwt" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"data":{"value":"vault-value","kid":"k1"},` +
			`"metadata":{"created_time":"2024-01-02T03:04:05Z","deletion_time":"","destroyed":false,"version":3}}}`))
	}))
	defer srv.Close()

	cfg := DefaultVaultConfig(srv.URL)
	cfg.Token = "test-token"
	m, err := NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	secret, err := m.GetSecret(context.Background(), "app/jwt")
	require.NoError(t, err)
	assert.Equal(t, "vault-value", secret.Value)
	assert.Equal(t, "3", secret.Version)
	assert.Equal(t, "k1", secret.Metadata["kid"])

	_, err = m.GetSecret(context.Background(), "app/missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = m.GetSecretVersion(context.Background(), "app/jwt", "latest")
	assert.Error(t, err)
}

func TestVaultAdapter_AuthValidation(t *testing.T) {
	_, err := NewVaultAdapter(context.Background(), DefaultVaultConfig("http://127.0.0.1:1"), zap.NewNop())
	assert.ErrorContains(t, err, "token is required")

	cfg := DefaultVaultConfig("http://127.0.0.1:1")
	cfg.AuthMethod = "ldap"
	_, err = NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported auth method")
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, Config{Provider: ProviderEnv, CacheTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &CachedSecretManager{}, m)

	m, err = New(ctx, Config{Provider: ProviderLocal, LocalPath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalSecretManager{}, m)

	_, err = New(ctx, Config{Provider: "gcp"}, zap.NewNop())
	assert.Error(t, err)
}
