package ecommerce

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Credential shapes
// ---------------------------------------------------------------------------

type shopifyCredentials struct {
	StoreName string `json:"storeName" validate:"required"`
	APIToken  string `json:"apiToken" validate:"required"`
}

type vtexCredentials struct {
	StoreName string `json:"storeName" validate:"required"`
	APIKey    string `json:"apiKey" validate:"required"`
	APIToken  string `json:"apiToken" validate:"required"`
}

type mercadoLibreCredentials struct {
	APIToken string `json:"apiToken" validate:"required"`
}

type amazonCredentials struct {
	APIKey        string `json:"apiKey" validate:"required"`
	APIToken      string `json:"apiToken" validate:"required"`
	SellerID      string `json:"metadata.seller_id" validate:"required"`
	MarketplaceID string `json:"metadata.marketplace_id"`
}

var credentialValidator = newCredentialValidator()

func newCredentialValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// validateCredentials returns an INVALID_CREDENTIALS error naming every
// missing field
func validateCredentials(kind integration.PlatformKind, creds any) error {
	err := credentialValidator.Struct(creds)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapDomainError(shared.CodeInvalidCredentials,
			fmt.Sprintf("%s credentials are invalid", kind.DisplayName()), err)
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return shared.NewDomainError(shared.CodeInvalidCredentials,
		fmt.Sprintf("%s credentials missing required fields: %s", kind.DisplayName(), strings.Join(missing, ", ")))
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// RegistryOption is a functional option for configuring the registry
type RegistryOption func(*Registry)

// WithHTTPClient sets the HTTP client shared by every adapter
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// Registry builds platform adapters. Adapters are built per call and share
// the registry's HTTP client and per-platform rate limiters.
type Registry struct {
	config     RegistryConfig
	httpClient *http.Client
	limiters   map[integration.PlatformKind]*rate.Limiter
}

// NewRegistry creates a new adapter registry
func NewRegistry(config RegistryConfig, opts ...RegistryOption) *Registry {
	config.applyDefaults()

	r := &Registry{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiters:   make(map[integration.PlatformKind]*rate.Limiter, len(config.Endpoints)),
	}
	for _, kind := range integration.AllPlatformKinds() {
		ep := config.Endpoints[kind]
		limit := rate.Inf
		if ep.RequestsPerSecond > 0 {
			limit = rate.Limit(ep.RequestsPerSecond)
		}
		r.limiters[kind] = rate.NewLimiter(limit, ep.Burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build returns an adapter for kind bound to creds
func (r *Registry) Build(kind integration.PlatformKind, creds integration.Credentials) (integration.Integration, error) {
	switch kind {
	case integration.PlatformShopify:
		c := shopifyCredentials{StoreName: creds.StoreName, APIToken: creds.APIToken}
		if err := validateCredentials(kind, c); err != nil {
			return nil, err
		}
		return newShopifyAdapter(r.client(kind), r.config.baseURL(kind, c.StoreName), c.APIToken), nil

	case integration.PlatformVTEX:
		c := vtexCredentials{StoreName: creds.StoreName, APIKey: creds.APIKey, APIToken: creds.APIToken}
		if err := validateCredentials(kind, c); err != nil {
			return nil, err
		}
		return newVTEXAdapter(r.client(kind), r.config.baseURL(kind, c.StoreName), c.APIKey, c.APIToken), nil

	case integration.PlatformMercadoLibre:
		c := mercadoLibreCredentials{APIToken: creds.APIToken}
		if err := validateCredentials(kind, c); err != nil {
			return nil, err
		}
		return newMercadoLibreAdapter(r.client(kind), r.config.baseURL(kind, ""), c.APIToken), nil

	case integration.PlatformAmazon:
		c := amazonCredentials{
			APIKey:        creds.APIKey,
			APIToken:      creds.APIToken,
			SellerID:      creds.MetadataString("seller_id"),
			MarketplaceID: creds.MetadataString("marketplace_id"),
		}
		if err := validateCredentials(kind, c); err != nil {
			return nil, err
		}
		if c.MarketplaceID == "" {
			c.MarketplaceID = r.config.AmazonMarketplaceID
		}
		return newAmazonAdapter(r.client(kind), r.config.baseURL(kind, ""), AmazonAccount{
			APIKey:        c.APIKey,
			AccessToken:   c.APIToken,
			SellerID:      c.SellerID,
			MarketplaceID: c.MarketplaceID,
		}), nil

	default:
		return nil, shared.NewDomainError(shared.CodeUnsupportedPlatform,
			fmt.Sprintf("Platform %q is not supported", kind.String()))
	}
}

func (r *Registry) client(kind integration.PlatformKind) *platformClient {
	return &platformClient{
		kind:       kind,
		httpClient: r.httpClient,
		limiter:    r.limiters[kind],
	}
}

// Ensure Registry implements IntegrationFactory interface
var _ integration.IntegrationFactory = (*Registry)(nil)
