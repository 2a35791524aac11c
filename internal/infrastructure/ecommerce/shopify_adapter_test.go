package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

func newShopifyTestAdapter(t *testing.T, handler http.HandlerFunc) integration.Integration {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := newTestRegistry(server.URL).Build(integration.PlatformShopify, validCredentials(integration.PlatformShopify))
	require.NoError(t, err)
	return adapter
}

func TestShopifyAdapter_Create(t *testing.T) {
	var got shopifyProductRequest
	adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products.json", r.URL.Path)
		assert.Equal(t, "shpat_123", r.Header.Get("X-Shopify-Access-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"product":{"id":632910392,"status":"active"}}`))
	})

	result, err := adapter.UpdateProduct(context.Background(), nil, integration.ProductPayload{
		Name:        "Linen Shirt",
		Description: "Breathable",
		Metadata: map[string]any{
			"base_price": decimal.RequireFromString("49.9"),
			"image_url":  "https://img.example.com/shirt.jpg",
			"sku":        "SH-1",
			"vendor":     "Acme",
		},
	})
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "632910392", result.ExternalID())

	assert.Equal(t, "Linen Shirt", got.Product.Title)
	assert.Equal(t, "Breathable", got.Product.BodyHTML)
	assert.Equal(t, "Acme", got.Product.Vendor)
	assert.Equal(t, shopifyStatusActive, got.Product.Status)
	require.Len(t, got.Product.Variants, 1)
	assert.Equal(t, "49.90", got.Product.Variants[0].Price)
	assert.Equal(t, "SH-1", got.Product.Variants[0].SKU)
	require.Len(t, got.Product.Images, 1)
	assert.Equal(t, "https://img.example.com/shirt.jpg", got.Product.Images[0].Src)
}

func TestShopifyAdapter_Update(t *testing.T) {
	t.Run("Existing product is updated in place", func(t *testing.T) {
		var got shopifyProductRequest
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/products/632910392.json", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"product":{"id":632910392}}`))
		})

		ext := "632910392"
		result, err := adapter.UpdateProduct(context.Background(), &ext, integration.ProductPayload{Name: "Renamed"})
		require.NoError(t, err)
		assert.Equal(t, "632910392", result.ExternalID())
		assert.Equal(t, int64(632910392), got.Product.ID)
		assert.Empty(t, got.Product.Variants)
	})

	t.Run("Inactive marker drafts the product", func(t *testing.T) {
		var got shopifyProductRequest
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"product":{"id":1,"status":"draft"}}`))
		})

		ext := "1"
		result, err := adapter.UpdateProduct(context.Background(), &ext, integration.ProductPayload{
			Description: "[INACTIVE] ",
			Metadata:    map[string]any{"status": "inactive"},
		})
		require.NoError(t, err)
		assert.True(t, result.IsSuccess())
		assert.Equal(t, shopifyStatusDraft, got.Product.Status)
		assert.Empty(t, got.Product.Title)
	})

	t.Run("Non-numeric id is a failure", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})

		ext := "gid://shopify/Product/1"
		result, err := adapter.UpdateProduct(context.Background(), &ext, integration.ProductPayload{Name: "x"})
		require.NoError(t, err)
		assert.False(t, result.IsSuccess())
	})
}

func TestShopifyAdapter_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{
			name:       "field errors",
			status:     http.StatusUnprocessableEntity,
			body:       `{"errors":{"title":["can't be blank"],"body_html":["is too long"]}}`,
			wantReason: "HTTP 422: body_html is too long; title can't be blank",
		},
		{
			name:       "string error",
			status:     http.StatusUnauthorized,
			body:       `{"errors":"[API] Invalid API key or access token"}`,
			wantReason: "HTTP 401: [API] Invalid API key or access token",
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"errors":"Exceeded 2 calls per second for api client."}`,
			wantReason: "HTTP 429: Exceeded 2 calls per second for api client.",
		},
		{
			name:       "server error with empty body",
			status:     http.StatusBadGateway,
			body:       ``,
			wantReason: "HTTP 502: Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := adapter.UpdateProduct(context.Background(), nil, integration.ProductPayload{Name: "x"})
			require.NoError(t, err)
			assert.False(t, result.IsSuccess())
			assert.Equal(t, tt.wantReason, result.Reason())
		})
	}
}

func TestShopifyAdapter_TransportFaults(t *testing.T) {
	t.Run("Malformed success body", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		})

		_, err := adapter.UpdateProduct(context.Background(), nil, integration.ProductPayload{Name: "x"})
		assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
	})

	t.Run("Unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		adapter, err := newTestRegistry(url).Build(integration.PlatformShopify, validCredentials(integration.PlatformShopify))
		require.NoError(t, err)

		_, err = adapter.UpdateProduct(context.Background(), nil, integration.ProductPayload{Name: "x"})
		assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	})
}
