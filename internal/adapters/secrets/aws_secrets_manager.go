package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// AWSConfig contains configuration for the AWS Secrets Manager backend
type AWSConfig struct {
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Optional: AWS profile name (for local development)
	Profile string `env:"AWS_PROFILE"`

	// Optional: custom endpoint (for LocalStack testing)
	Endpoint string `env:"AWS_SECRETS_ENDPOINT"`
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager implements ports.SecretManagerAdapter for AWS Secrets Manager
type AWSSecretsManager struct {
	client secretsManagerAPI
	logger *zap.Logger
}

// NewAWSSecretsManager loads the default AWS credential chain and creates a client
func NewAWSSecretsManager(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSSecretsManager, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager initialized", zap.String("region", cfg.Region))

	return &AWSSecretsManager{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		logger: logger,
	}, nil
}

// GetSecret retrieves the current version of a secret.
// Path is the secret name or full ARN, e.g. "subscription-tracker/jwt".
func (a *AWSSecretsManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	return a.get(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
}

// GetSecretVersion retrieves a specific version of a secret
func (a *AWSSecretsManager) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	return a.get(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:  aws.String(path),
		VersionId: aws.String(version),
	})
}

func (a *AWSSecretsManager) get(ctx context.Context, input *secretsmanager.GetSecretValueInput) (*ports.Secret, error) {
	path := aws.ToString(input.SecretId)
	start := time.Now()

	result, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		a.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	a.logger.Debug("Secret retrieved",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)

	secret := &ports.Secret{
		Value:    aws.ToString(result.SecretString),
		Version:  aws.ToString(result.VersionId),
		Metadata: make(map[string]string),
	}
	if result.CreatedDate != nil {
		secret.CreatedAt = result.CreatedDate.UTC().Format(time.RFC3339)
	}
	if result.ARN != nil {
		secret.Metadata["arn"] = *result.ARN
	}
	if result.Name != nil {
		secret.Metadata["name"] = *result.Name
	}
	return secret, nil
}
