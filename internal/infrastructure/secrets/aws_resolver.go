// Package secrets resolves secret references stored in connection
// credentials.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReferencePrefix marks a credential value stored in AWS Secrets Manager
const ReferencePrefix = "aws-sm://"

var (
	// ErrInvalidReference is returned for a malformed aws-sm:// value
	ErrInvalidReference = errors.New("secrets: invalid secret reference")
	// ErrSecretNotFound is returned when the secret does not exist
	ErrSecretNotFound = errors.New("secrets: secret not found")
	// ErrKeyNotFound is returned when the secret has no such JSON key
	ErrKeyNotFound = errors.New("secrets: key not found in secret")
	// ErrResolverDisabled is returned when a reference is found but no
	// secret backend is configured
	ErrResolverDisabled = errors.New("secrets: secret references are not enabled")
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Reference is a parsed aws-sm://<secret-id>#<json-key> value. An empty Key
// selects the whole secret string.
type Reference struct {
	SecretID string
	Key      string
}

// IsReference reports whether value points into Secrets Manager
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// ParseReference parses an aws-sm:// value
func ParseReference(value string) (Reference, error) {
	if !IsReference(value) {
		return Reference{}, fmt.Errorf("%w: missing %s prefix", ErrInvalidReference, ReferencePrefix)
	}
	id, key, _ := strings.Cut(strings.TrimPrefix(value, ReferencePrefix), "#")
	if id == "" {
		return Reference{}, fmt.Errorf("%w: empty secret id", ErrInvalidReference)
	}
	return Reference{SecretID: id, Key: key}, nil
}

type cachedSecret struct {
	raw       string
	fields    map[string]any
	expiresAt time.Time
}

// AWSCredentialResolver replaces aws-sm:// credential values with secrets
// from AWS Secrets Manager. Secrets are cached per id for the TTL.
type AWSCredentialResolver struct {
	api    SecretsManagerAPI
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedSecret
}

// ResolverOption configures an AWSCredentialResolver
type ResolverOption func(*AWSCredentialResolver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *AWSCredentialResolver) {
		r.logger = logger
	}
}

// WithClock sets the time source used for cache expiry
func WithClock(now func() time.Time) ResolverOption {
	return func(r *AWSCredentialResolver) {
		r.now = now
	}
}

// NewAWSCredentialResolver builds a Secrets Manager client from cfg
func NewAWSCredentialResolver(ctx context.Context, cfg *config.SecretsConfig, opts ...ResolverOption) (*AWSCredentialResolver, error) {
	if cfg == nil {
		return nil, errors.New("secrets configuration is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewAWSCredentialResolverWithAPI(client, cfg.CacheTTL, opts...), nil
}

// NewAWSCredentialResolverWithAPI creates a resolver on an existing client.
// ttl <= 0 disables caching.
func NewAWSCredentialResolverWithAPI(api SecretsManagerAPI, ttl time.Duration, opts ...ResolverOption) *AWSCredentialResolver {
	r := &AWSCredentialResolver{
		api:    api,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
		cache:  make(map[string]cachedSecret),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a copy of creds with every reference replaced. Metadata
// string values are resolved too; other values pass through.
func (r *AWSCredentialResolver) Resolve(ctx context.Context, creds integration.Credentials) (integration.Credentials, error) {
	out := creds
	var err error
	if out.APIKey, err = r.resolveValue(ctx, "apiKey", creds.APIKey); err != nil {
		return integration.Credentials{}, err
	}
	if out.APIToken, err = r.resolveValue(ctx, "apiToken", creds.APIToken); err != nil {
		return integration.Credentials{}, err
	}
	if out.StoreName, err = r.resolveValue(ctx, "storeName", creds.StoreName); err != nil {
		return integration.Credentials{}, err
	}

	if creds.Metadata != nil {
		out.Metadata = make(map[string]any, len(creds.Metadata))
		for k, v := range creds.Metadata {
			s, ok := v.(string)
			if !ok {
				out.Metadata[k] = v
				continue
			}
			resolved, err := r.resolveValue(ctx, "metadata."+k, s)
			if err != nil {
				return integration.Credentials{}, err
			}
			out.Metadata[k] = resolved
		}
	}
	return out, nil
}

func (r *AWSCredentialResolver) resolveValue(ctx context.Context, field, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	ref, err := ParseReference(value)
	if err != nil {
		return "", fmt.Errorf("credential %s: %w", field, err)
	}

	secret, err := r.secret(ctx, ref.SecretID)
	if err != nil {
		return "", fmt.Errorf("credential %s: %w", field, err)
	}
	if ref.Key == "" {
		return secret.raw, nil
	}
	if secret.fields == nil {
		return "", fmt.Errorf("credential %s: %w: secret %s is not a JSON object", field, ErrKeyNotFound, ref.SecretID)
	}
	v, ok := secret.fields[ref.Key]
	if !ok {
		return "", fmt.Errorf("credential %s: %w: %s#%s", field, ErrKeyNotFound, ref.SecretID, ref.Key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func (r *AWSCredentialResolver) secret(ctx context.Context, id string) (cachedSecret, error) {
	now := r.now()
	r.mu.Lock()
	cached, ok := r.cache[id]
	r.mu.Unlock()
	if ok && now.Before(cached.expiresAt) {
		return cached, nil
	}

	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return cachedSecret{}, fmt.Errorf("%w: %s", ErrSecretNotFound, id)
		}
		return cachedSecret{}, fmt.Errorf("get secret %s: %w", id, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" && len(out.SecretBinary) > 0 {
		raw = string(out.SecretBinary)
	}
	secret := cachedSecret{raw: raw, expiresAt: now.Add(r.ttl)}
	var fields map[string]any
	if json.Unmarshal([]byte(raw), &fields) == nil {
		secret.fields = fields
	}

	if r.ttl > 0 {
		r.mu.Lock()
		r.cache[id] = secret
		r.mu.Unlock()
	}
	r.logger.Debug("Resolved secret reference", zap.String("secret_id", id))
	return secret, nil
}

// Invalidate drops every cached secret
func (r *AWSCredentialResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cachedSecret)
}

// PlainResolver passes plain values through and rejects secret references.
// It serves deployments without a secret backend.
type PlainResolver struct{}

// Resolve implements the credential resolver port
func (PlainResolver) Resolve(_ context.Context, creds integration.Credentials) (integration.Credentials, error) {
	for field, value := range map[string]string{
		"apiKey":    creds.APIKey,
		"apiToken":  creds.APIToken,
		"storeName": creds.StoreName,
	} {
		if IsReference(value) {
			return integration.Credentials{}, fmt.Errorf("credential %s: %w", field, ErrResolverDisabled)
		}
	}
	for k, v := range creds.Metadata {
		if s, ok := v.(string); ok && IsReference(s) {
			return integration.Credentials{}, fmt.Errorf("credential metadata.%s: %w", k, ErrResolverDisabled)
		}
	}
	return creds, nil
}
