package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// newTestRegistry points every platform at baseURL without rate limits
func newTestRegistry(baseURL string) *Registry {
	endpoints := map[integration.PlatformKind]EndpointConfig{}
	for _, kind := range integration.AllPlatformKinds() {
		endpoints[kind] = EndpointConfig{BaseURL: baseURL}
	}
	return NewRegistry(RegistryConfig{RequestTimeout: 5 * time.Second, Endpoints: endpoints})
}

func validCredentials(kind integration.PlatformKind) integration.Credentials {
	switch kind {
	case integration.PlatformShopify:
		return integration.Credentials{StoreName: "acme", APIToken: "shpat_123"}
	case integration.PlatformVTEX:
		return integration.Credentials{StoreName: "acme", APIKey: "vtexappkey-acme", APIToken: "secret"}
	case integration.PlatformMercadoLibre:
		return integration.Credentials{APIToken: "APP_USR-1"}
	case integration.PlatformAmazon:
		return integration.Credentials{APIKey: "amzn1.app", APIToken: "Atza|x", Metadata: map[string]any{"seller_id": "A1SELLER"}}
	default:
		return integration.Credentials{}
	}
}

func TestRegistry_Build(t *testing.T) {
	r := newTestRegistry("http://localhost")

	for _, kind := range integration.AllPlatformKinds() {
		t.Run(string(kind), func(t *testing.T) {
			adapter, err := r.Build(kind, validCredentials(kind))
			require.NoError(t, err)
			assert.Equal(t, kind, adapter.Kind())
		})
	}
}

func TestRegistry_Build_UnsupportedPlatform(t *testing.T) {
	r := newTestRegistry("http://localhost")

	_, err := r.Build(integration.PlatformKind("woocommerce"), integration.Credentials{APIToken: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnsupportedPlatform)
	assert.Contains(t, err.Error(), `"woocommerce"`)
}

func TestRegistry_Build_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name    string
		kind    integration.PlatformKind
		creds   integration.Credentials
		missing string
	}{
		{
			name:    "shopify without store",
			kind:    integration.PlatformShopify,
			creds:   integration.Credentials{APIToken: "shpat_123"},
			missing: "storeName",
		},
		{
			name:    "vtex without app key and token",
			kind:    integration.PlatformVTEX,
			creds:   integration.Credentials{StoreName: "acme"},
			missing: "apiKey, apiToken",
		},
		{
			name:    "mercadolibre without token",
			kind:    integration.PlatformMercadoLibre,
			creds:   integration.Credentials{StoreName: "ignored"},
			missing: "apiToken",
		},
		{
			name:    "amazon without seller id",
			kind:    integration.PlatformAmazon,
			creds:   integration.Credentials{APIKey: "k", APIToken: "t"},
			missing: "metadata.seller_id",
		},
	}

	r := newTestRegistry("http://localhost")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.kind, tt.creds)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestRegistry_StorePlaceholder(t *testing.T) {
	cfg := RegistryConfig{}
	cfg.applyDefaults()

	assert.Equal(t, "https://acme.myshopify.com/admin/api/2024-10", cfg.baseURL(integration.PlatformShopify, "acme"))
	assert.Equal(t, "https://acme.vtexcommercestable.com.br", cfg.baseURL(integration.PlatformVTEX, "acme"))
	assert.Equal(t, MercadoLibreDefaultBaseURL, cfg.baseURL(integration.PlatformMercadoLibre, ""))
	assert.Equal(t, AmazonDefaultMarketplaceID, cfg.AmazonMarketplaceID)
}

func TestRegistry_SharesLimiterPerPlatform(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig())

	a1, err := r.Build(integration.PlatformShopify, validCredentials(integration.PlatformShopify))
	require.NoError(t, err)
	a2, err := r.Build(integration.PlatformShopify, integration.Credentials{StoreName: "other", APIToken: "t"})
	require.NoError(t, err)
	vtex, err := r.Build(integration.PlatformVTEX, validCredentials(integration.PlatformVTEX))
	require.NoError(t, err)

	s1 := a1.(*ShopifyAdapter)
	s2 := a2.(*ShopifyAdapter)
	assert.Same(t, s1.client.limiter, s2.client.limiter)
	assert.Same(t, s1.client.httpClient, vtex.(*VTEXAdapter).client.httpClient)
	assert.NotSame(t, s1.client.limiter, vtex.(*VTEXAdapter).client.limiter)
}

func TestRegistry_RateLimitRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"MLA1"}`))
	}))
	defer server.Close()

	r := NewRegistry(RegistryConfig{
		Endpoints: map[integration.PlatformKind]EndpointConfig{
			integration.PlatformMercadoLibre: {BaseURL: server.URL, RequestsPerSecond: 0.001, Burst: 1},
		},
	})
	adapter, err := r.Build(integration.PlatformMercadoLibre, validCredentials(integration.PlatformMercadoLibre))
	require.NoError(t, err)

	result, err := adapter.UpdateProduct(context.Background(), nil, integration.ProductPayload{Name: "first"})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = adapter.UpdateProduct(ctx, nil, integration.ProductPayload{Name: "second"})
	assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
}
