package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// SecretsManagerClient is the subset of the AWS Secrets Manager API used by
// the backend. *secretsmanager.Client satisfies it; tests substitute a mock.
type SecretsManagerClient interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(
		ctx context.Context,
		params *secretsmanager.ListSecretsInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.ListSecretsOutput, error)
	CreateSecret(
		ctx context.Context,
		params *secretsmanager.CreateSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(
		ctx context.Context,
		params *secretsmanager.PutSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.PutSecretValueOutput, error)
}

// smPayload is the JSON document stored as the remote secret value.
type smPayload struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt string `json:"createdAt"`
}

// SecretsManagerBackend stores secrets in AWS Secrets Manager, scoped by
// organization and project identifiers. Cold lookups list-then-filter by
// logical key; every successful fetch populates the process-local secret
// cache by ID (and remembers the remote ARN) to amortize the list call.
type SecretsManagerBackend struct {
	client         SecretsManagerClient
	cache          *Cache
	organizationID string
	projectID      string
	arns           sync.Map // map[string]string: remote name -> ARN
}

// SecretsManagerConfig holds the settings for the Secrets Manager backend.
type SecretsManagerConfig struct {
	Region          string
	Endpoint        string // optional, for LocalStack or testing
	AccessKeyID     string // optional static credentials
	SecretAccessKey string
	OrganizationID  string
	ProjectID       string
}

// SecretsManagerOption is a functional option for configuring the backend.
type SecretsManagerOption func(*SecretsManagerBackend)

// WithSecretsManagerClient sets a custom client (for testing).
func WithSecretsManagerClient(client SecretsManagerClient) SecretsManagerOption {
	return func(b *SecretsManagerBackend) {
		b.client = client
	}
}

// NewSecretsManagerBackend creates a Secrets Manager backend. When no client
// is injected through options, a real AWS client is built from the config.
func NewSecretsManagerBackend(
	ctx context.Context,
	cfg SecretsManagerConfig,
	cache *Cache,
	opts ...SecretsManagerOption,
) (*SecretsManagerBackend, error) {
	b := &SecretsManagerBackend{
		cache:          cache,
		organizationID: cfg.OrganizationID,
		projectID:      cfg.ProjectID,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		configOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			})
		}
		b.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
	}

	return b, nil
}

// remoteName builds the organization/project scoped name for a logical key.
func (b *SecretsManagerBackend) remoteName(logicalKey string) string {
	return fmt.Sprintf("%s/%s/%s", b.organizationID, b.projectID, logicalKey)
}

// Get retrieves the secret stored under the given logical key.
func (b *SecretsManagerBackend) Get(
	ctx context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	name := b.remoteName(logicalKey)

	// Use the cached remote ID when available, skipping the list call.
	secretID := name
	if arn, ok := b.arns.Load(name); ok {
		secretID = arn.(string)
	} else {
		arn, err := b.findARN(ctx, name)
		if err != nil {
			return nil, err
		}
		secretID = arn
	}

	output, err := b.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if apperrors.As(err, &notFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, operationFailure(err, "failed to get secret value")
	}

	var payload smPayload
	if err := json.Unmarshal([]byte(aws.ToString(output.SecretString)), &payload); err != nil {
		return nil, operationFailure(err, "failed to decode secret payload")
	}

	secret := &secretDomain.Secret{
		ID:         payload.ID,
		LogicalKey: payload.Key,
		Value:      payload.Value,
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, payload.CreatedAt); err == nil {
		secret.CreatedAt = createdAt
	}

	b.arns.Store(name, aws.ToString(output.ARN))
	b.cache.Put(secret)

	return secret, nil
}

// findARN lists project secrets and filters by the remote name.
// A missing entry maps to ErrNotFound, the expected bootstrap branch.
func (b *SecretsManagerBackend) findARN(ctx context.Context, name string) (string, error) {
	input := &secretsmanager.ListSecretsInput{
		Filters: []types.Filter{
			{
				Key:    types.FilterNameStringTypeTagKey,
				Values: []string{"project"},
			},
			{
				Key:    types.FilterNameStringTypeTagValue,
				Values: []string{b.projectID},
			},
		},
	}

	for {
		output, err := b.client.ListSecrets(ctx, input)
		if err != nil {
			return "", operationFailure(err, "failed to list secrets")
		}

		for _, entry := range output.SecretList {
			if aws.ToString(entry.Name) == name {
				return aws.ToString(entry.ARN), nil
			}
		}

		if output.NextToken == nil {
			return "", apperrors.ErrNotFound
		}
		input.NextToken = output.NextToken
	}
}

// Put stores a new secret under the given logical key, creating the remote
// entry on first write and updating it afterwards.
func (b *SecretsManagerBackend) Put(
	ctx context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	name := b.remoteName(logicalKey)
	secret := secretDomain.NewSecret(logicalKey, value, note)

	payload, err := json.Marshal(smPayload{
		ID:        secret.ID,
		Key:       secret.LogicalKey,
		Value:     secret.Value,
		CreatedAt: secret.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, operationFailure(err, "failed to encode secret payload")
	}

	createOutput, err := b.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(payload)),
		Description:  aws.String(note),
		Tags: []types.Tag{
			{Key: aws.String("organization"), Value: aws.String(b.organizationID)},
			{Key: aws.String("project"), Value: aws.String(b.projectID)},
		},
	})
	if err != nil {
		var exists *types.ResourceExistsException
		if !apperrors.As(err, &exists) {
			return nil, operationFailure(err, "failed to create secret")
		}

		if _, err := b.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(name),
			SecretString: aws.String(string(payload)),
		}); err != nil {
			return nil, operationFailure(err, "failed to update secret")
		}
	} else if createOutput.ARN != nil {
		b.arns.Store(name, aws.ToString(createOutput.ARN))
	}

	b.cache.Put(secret)

	return secret, nil
}
