package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	appintegration "github.com/santi-naranjo/catalog-ai/internal/application/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ appintegration.CredentialResolver = (*AWSCredentialResolver)(nil)
	_ appintegration.CredentialResolver = PlainResolver{}
)

// fakeSecretsManager serves secrets from a map and counts calls per id
type fakeSecretsManager struct {
	mu      sync.Mutex
	secrets map[string]string
	calls   map[string]int
	err     error
}

func newFakeSecretsManager(secrets map[string]string) *fakeSecretsManager {
	return &fakeSecretsManager{secrets: secrets, calls: map[string]int{}}
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.SecretId)
	f.calls[id]++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.secrets[id]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: aws.String(v)}, nil
}

func (f *fakeSecretsManager) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Reference
		wantErr bool
	}{
		{name: "id and key", value: "aws-sm://prod/shopify#token", want: Reference{SecretID: "prod/shopify", Key: "token"}},
		{name: "id only", value: "aws-sm://prod/vtex-app-key", want: Reference{SecretID: "prod/vtex-app-key"}},
		{name: "arn with key", value: "aws-sm://arn:aws:secretsmanager:us-east-1:123:secret:meli#client_secret",
			want: Reference{SecretID: "arn:aws:secretsmanager:us-east-1:123:secret:meli", Key: "client_secret"}},
		{name: "empty id", value: "aws-sm://#key", wantErr: true},
		{name: "plain value", value: "shpat_123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAWSCredentialResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	api := newFakeSecretsManager(map[string]string{
		"prod/shopify": `{"token":"shpat_secret","store":"acme-store","retries":3}`,
		"prod/raw":     "raw-api-key",
	})
	r := NewAWSCredentialResolverWithAPI(api, time.Minute)

	t.Run("replaces references and keeps plain values", func(t *testing.T) {
		in := integration.Credentials{
			APIKey:    "plain-key",
			APIToken:  "aws-sm://prod/shopify#token",
			StoreName: "aws-sm://prod/shopify#store",
			Metadata: map[string]any{
				"appKey":   "aws-sm://prod/raw",
				"retries":  "aws-sm://prod/shopify#retries",
				"sellerId": "A1B2",
				"sandbox":  true,
			},
		}

		out, err := r.Resolve(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, "plain-key", out.APIKey)
		assert.Equal(t, "shpat_secret", out.APIToken)
		assert.Equal(t, "acme-store", out.StoreName)
		assert.Equal(t, "raw-api-key", out.Metadata["appKey"])
		assert.Equal(t, "3", out.Metadata["retries"])
		assert.Equal(t, "A1B2", out.Metadata["sellerId"])
		assert.Equal(t, true, out.Metadata["sandbox"])

		// the input map is not modified
		assert.Equal(t, "aws-sm://prod/raw", in.Metadata["appKey"])
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := r.Resolve(ctx, integration.Credentials{APIToken: "aws-sm://prod/unknown#token"})
		assert.ErrorIs(t, err, ErrSecretNotFound)
		assert.Contains(t, err.Error(), "apiToken")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := r.Resolve(ctx, integration.Credentials{APIKey: "aws-sm://prod/shopify#nope"})
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("key on a non-JSON secret", func(t *testing.T) {
		_, err := r.Resolve(ctx, integration.Credentials{APIKey: "aws-sm://prod/raw#field"})
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("malformed reference", func(t *testing.T) {
		_, err := r.Resolve(ctx, integration.Credentials{APIKey: "aws-sm://#field"})
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestAWSCredentialResolver_Cache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	api := newFakeSecretsManager(map[string]string{"prod/vtex": `{"key":"k","token":"t"}`})
	r := NewAWSCredentialResolverWithAPI(api, 5*time.Minute, WithClock(func() time.Time { return now }))

	creds := integration.Credentials{APIKey: "aws-sm://prod/vtex#key", APIToken: "aws-sm://prod/vtex#token"}

	_, err := r.Resolve(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("prod/vtex"))

	now = now.Add(4 * time.Minute)
	_, err = r.Resolve(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("prod/vtex"))

	now = now.Add(2 * time.Minute)
	_, err = r.Resolve(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 2, api.callCount("prod/vtex"))

	r.Invalidate()
	_, err = r.Resolve(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 3, api.callCount("prod/vtex"))
}

func TestAWSCredentialResolver_NoCache(t *testing.T) {
	api := newFakeSecretsManager(map[string]string{"s": "v"})
	r := NewAWSCredentialResolverWithAPI(api, 0)

	for i := 0; i < 3; i++ {
		out, err := r.Resolve(context.Background(), integration.Credentials{APIKey: "aws-sm://s"})
		require.NoError(t, err)
		assert.Equal(t, "v", out.APIKey)
	}
	assert.Equal(t, 3, api.callCount("s"))
}

func TestAWSCredentialResolver_APIError(t *testing.T) {
	api := newFakeSecretsManager(nil)
	api.err = errors.New("AccessDeniedException")
	r := NewAWSCredentialResolverWithAPI(api, time.Minute)

	_, err := r.Resolve(context.Background(), integration.Credentials{APIKey: "aws-sm://prod/x#k"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
	assert.ErrorIs(t, err, api.err)
}

func TestPlainResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("plain values pass through", func(t *testing.T) {
		in := integration.Credentials{APIKey: "k", APIToken: "t", Metadata: map[string]any{"sellerId": "S1"}}
		out, err := PlainResolver{}.Resolve(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("rejects references", func(t *testing.T) {
		_, err := PlainResolver{}.Resolve(ctx, integration.Credentials{APIToken: "aws-sm://prod/x#t"})
		assert.ErrorIs(t, err, ErrResolverDisabled)

		_, err = PlainResolver{}.Resolve(ctx, integration.Credentials{Metadata: map[string]any{"appKey": "aws-sm://k"}})
		assert.ErrorIs(t, err, ErrResolverDisabled)
	})
}

func TestNewAWSCredentialResolver(t *testing.T) {
	_, err := NewAWSCredentialResolver(context.Background(), nil)
	require.Error(t, err)

	r, err := NewAWSCredentialResolver(context.Background(), &config.SecretsConfig{
		Region:    "us-east-1",
		Endpoint:  "http://localhost:4566",
		CacheTTL:  time.Minute,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, r.ttl)
}
