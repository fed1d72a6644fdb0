package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g. JWT signing key)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter retrieves secrets from a secret management service.
// Backends: AWS Secrets Manager, HashiCorp Vault, local files.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "subscription-tracker/jwt"
	//   - Vault: "secret/data/subscription-tracker/jwt"
	//   - Local: file name under the base directory
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// GetSecretVersion retrieves a specific version of a secret
	GetSecretVersion(ctx context.Context, path string, version string) (*Secret, error)
}
