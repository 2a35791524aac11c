package ecommerce

import (
	"strings"
	"time"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

const (
	// ShopifyDefaultBaseURL is the Admin REST endpoint template; {store} is
	// replaced by the connection's store name
	ShopifyDefaultBaseURL = "https://{store}.myshopify.com/admin/api/2024-10"
	// VTEXDefaultBaseURL is the catalog endpoint template for a VTEX account
	VTEXDefaultBaseURL = "https://{store}.vtexcommercestable.com.br"
	// MercadoLibreDefaultBaseURL is the MercadoLibre public API
	MercadoLibreDefaultBaseURL = "https://api.mercadolibre.com"
	// AmazonDefaultBaseURL is the North America Selling Partner API
	AmazonDefaultBaseURL = "https://sellingpartnerapi-na.amazon.com"
	// AmazonDefaultMarketplaceID is amazon.com
	AmazonDefaultMarketplaceID = "ATVPDKIKX0DER"

	// DefaultRequestTimeout bounds a single HTTP request to a platform
	DefaultRequestTimeout = 30 * time.Second

	storePlaceholder = "{store}"
)

// EndpointConfig holds per-platform endpoint and rate limit settings
type EndpointConfig struct {
	// BaseURL may contain {store}
	BaseURL string
	// RequestsPerSecond limits outbound calls across all connections of the
	// platform. Zero or negative means unlimited.
	RequestsPerSecond float64
	// Burst is the limiter bucket size
	Burst int
}

// RegistryConfig holds configuration for the adapter registry
type RegistryConfig struct {
	RequestTimeout      time.Duration
	AmazonMarketplaceID string
	Endpoints           map[integration.PlatformKind]EndpointConfig
}

// DefaultRegistryConfig returns production endpoints with conservative limits
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		RequestTimeout:      DefaultRequestTimeout,
		AmazonMarketplaceID: AmazonDefaultMarketplaceID,
		Endpoints: map[integration.PlatformKind]EndpointConfig{
			integration.PlatformShopify:      {BaseURL: ShopifyDefaultBaseURL, RequestsPerSecond: 2, Burst: 4},
			integration.PlatformVTEX:         {BaseURL: VTEXDefaultBaseURL, RequestsPerSecond: 10, Burst: 10},
			integration.PlatformMercadoLibre: {BaseURL: MercadoLibreDefaultBaseURL, RequestsPerSecond: 5, Burst: 5},
			integration.PlatformAmazon:       {BaseURL: AmazonDefaultBaseURL, RequestsPerSecond: 5, Burst: 10},
		},
	}
}

// applyDefaults fills unset fields from DefaultRegistryConfig
func (c *RegistryConfig) applyDefaults() {
	defaults := DefaultRegistryConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.AmazonMarketplaceID == "" {
		c.AmazonMarketplaceID = defaults.AmazonMarketplaceID
	}
	if c.Endpoints == nil {
		c.Endpoints = map[integration.PlatformKind]EndpointConfig{}
	}
	for kind, def := range defaults.Endpoints {
		ep := c.Endpoints[kind]
		if ep.BaseURL == "" {
			ep.BaseURL = def.BaseURL
		}
		if ep.Burst <= 0 {
			ep.Burst = def.Burst
		}
		c.Endpoints[kind] = ep
	}
}

// baseURL resolves the endpoint for a platform and store
func (c *RegistryConfig) baseURL(kind integration.PlatformKind, store string) string {
	base := strings.ReplaceAll(c.Endpoints[kind].BaseURL, storePlaceholder, store)
	return strings.TrimRight(base, "/")
}
