package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// VaultConfig contains configuration for the HashiCorp Vault backend
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string `env:"VAULT_ADDR"`

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string `env:"VAULT_AUTH_METHOD" envDefault:"token"`

	Token string `env:"VAULT_TOKEN"`

	RoleID   string `env:"VAULT_ROLE_ID"`
	SecretID string `env:"VAULT_SECRET_ID"`

	K8sTokenPath string `env:"VAULT_K8S_TOKEN_PATH" envDefault:"/var/run/secrets/kubernetes.io/serviceaccount/token"`
	K8sRole      string `env:"VAULT_K8S_ROLE"`

	// Vault Enterprise namespace
	Namespace string `env:"VAULT_NAMESPACE"`

	MountPath string `env:"VAULT_MOUNT_PATH" envDefault:"secret"`
	KVVersion string `env:"VAULT_KV_VERSION" envDefault:"v2"`

	TLSSkipVerify bool `env:"VAULT_TLS_SKIP_VERIFY"`
}

// DefaultVaultConfig returns token auth against a KV v2 engine mounted at "secret"
func DefaultVaultConfig(address string) VaultConfig {
	return VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
	}
}

// VaultAdapter implements ports.SecretManagerAdapter for a Vault KV engine.
// The secret value is read from the "value" key.
type VaultAdapter struct {
	client *vault.Client
	config VaultConfig
	logger *zap.Logger
}

// NewVaultAdapter creates a client and authenticates it
func NewVaultAdapter(ctx context.Context, cfg VaultConfig, logger *zap.Logger) (*VaultAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &VaultAdapter{client: client, config: cfg, logger: logger}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return errors.New("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return errors.New("role_id and secret_id are required for AppRole auth")
		}
		return login(ctx, client, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})

	case "kubernetes":
		if cfg.K8sRole == "" {
			return errors.New("k8s_role is required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read k8s token: %w", err)
		}
		return login(ctx, client, "auth/kubernetes/login", map[string]interface{}{
			"jwt":  string(jwt),
			"role": cfg.K8sRole,
		})

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func login(ctx context.Context, client *vault.Client, path string, data map[string]interface{}) error {
	resp, err := client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return fmt.Errorf("login at %s failed: %w", path, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("login at %s returned no auth info", path)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret retrieves the latest version of a secret, e.g. "subscription-tracker/jwt"
func (a *VaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if a.config.KVVersion != "v2" {
		kv, err := a.client.KVv1(a.config.MountPath).Get(ctx, path)
		if err != nil {
			return nil, a.readError(path, err)
		}
		return secretFromData(kv.Data, "1", time.Time{})
	}

	kv, err := a.client.KVv2(a.config.MountPath).Get(ctx, path)
	if err != nil {
		return nil, a.readError(path, err)
	}
	return secretFromKVv2(kv)
}

// GetSecretVersion retrieves a specific version of a secret (KV v2 only)
func (a *VaultAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	if a.config.KVVersion != "v2" {
		return nil, errors.New("GetSecretVersion requires KV v2")
	}

	v, err := strconv.Atoi(version)
	if err != nil {
		return nil, fmt.Errorf("invalid vault secret version %q: %w", version, err)
	}

	kv, err := a.client.KVv2(a.config.MountPath).GetVersion(ctx, path, v)
	if err != nil {
		return nil, a.readError(path, err)
	}
	return secretFromKVv2(kv)
}

func (a *VaultAdapter) readError(path string, err error) error {
	if errors.Is(err, vault.ErrSecretNotFound) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}
	a.logger.Error("Failed to retrieve secret from Vault",
		zap.String("path", path),
		zap.Error(err),
	)
	return fmt.Errorf("failed to read secret from Vault: %w", err)
}

func secretFromKVv2(kv *vault.KVSecret) (*ports.Secret, error) {
	var (
		version string
		created time.Time
	)
	if kv.VersionMetadata != nil {
		version = strconv.Itoa(kv.VersionMetadata.Version)
		created = kv.VersionMetadata.CreatedTime
	}
	return secretFromData(kv.Data, version, created)
}

func secretFromData(data map[string]interface{}, version string, created time.Time) (*ports.Secret, error) {
	value, _ := data["value"].(string)
	if value == "" {
		return nil, errors.New("secret value is empty or not found")
	}

	secret := &ports.Secret{
		Value:    value,
		Version:  version,
		Metadata: make(map[string]string),
	}
	if !created.IsZero() {
		secret.CreatedAt = created.UTC().Format(time.RFC3339)
	}
	for k, v := range data {
		if str, ok := v.(string); ok && k != "value" {
			secret.Metadata[k] = str
		}
	}
	return secret, nil
}
