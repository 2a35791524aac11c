package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// Shopify product statuses
const (
	shopifyStatusActive = "active"
	shopifyStatusDraft  = "draft"
)

// shopifyProductRequest is the body of products.json create/update
type shopifyProductRequest struct {
	Product shopifyProduct `json:"product"`
}

type shopifyProduct struct {
	ID          int64            `json:"id,omitempty"`
	Title       string           `json:"title,omitempty"`
	BodyHTML    string           `json:"body_html,omitempty"`
	Vendor      string           `json:"vendor,omitempty"`
	ProductType string           `json:"product_type,omitempty"`
	Tags        string           `json:"tags,omitempty"`
	Status      string           `json:"status,omitempty"`
	Variants    []shopifyVariant `json:"variants,omitempty"`
	Images      []shopifyImage   `json:"images,omitempty"`
}

type shopifyVariant struct {
	Price string `json:"price,omitempty"`
	SKU   string `json:"sku,omitempty"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyProductResponse struct {
	Product struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"product"`
}

// ShopifyAdapter pushes products to a Shopify store through the Admin REST API
type ShopifyAdapter struct {
	client  *platformClient
	baseURL string
	token   string
}

func newShopifyAdapter(client *platformClient, baseURL, token string) *ShopifyAdapter {
	return &ShopifyAdapter{client: client, baseURL: baseURL, token: token}
}

// Kind returns the platform this adapter handles
func (a *ShopifyAdapter) Kind() integration.PlatformKind {
	return integration.PlatformShopify
}

// UpdateProduct creates or updates a Shopify product. The inactive marker
// moves the product to draft.
func (a *ShopifyAdapter) UpdateProduct(ctx context.Context, externalID *string, payload integration.ProductPayload) (integration.SyncResult, error) {
	product := shopifyProduct{
		Title:       payload.Name,
		BodyHTML:    payload.Description,
		Vendor:      metaString(payload.Metadata, metaVendor),
		ProductType: metaString(payload.Metadata, metaProduct),
		Tags:        metaString(payload.Metadata, metaTags),
		Status:      shopifyStatusActive,
	}
	if isInactive(payload) {
		product.Status = shopifyStatusDraft
	}

	method := http.MethodPost
	endpoint := a.baseURL + "/products.json"
	if externalID != nil && *externalID != "" {
		id, err := strconv.ParseInt(*externalID, 10, 64)
		if err != nil {
			return integration.Failed(fmt.Sprintf("invalid Shopify product id %q", *externalID)), nil
		}
		product.ID = id
		method = http.MethodPut
		endpoint = a.baseURL + "/products/" + url.PathEscape(*externalID) + ".json"
	} else {
		// Variants and images are only sent on create; updates leave them to
		// the variant endpoints.
		variant := shopifyVariant{SKU: metaString(payload.Metadata, metaSKU)}
		if price, ok := metaDecimal(payload.Metadata, metaBasePrice); ok {
			variant.Price = price.StringFixed(2)
		}
		product.Variants = []shopifyVariant{variant}
		if img := metaString(payload.Metadata, metaImageURL); img != "" {
			product.Images = []shopifyImage{{Src: img}}
		}
	}

	resp, err := a.client.doJSON(ctx, method, endpoint, map[string]string{
		"X-Shopify-Access-Token": a.token,
	}, shopifyProductRequest{Product: product})
	if err != nil {
		return integration.SyncResult{}, err
	}
	if !resp.OK() {
		return failure(resp, shopifyErrorMessage), nil
	}

	var out shopifyProductResponse
	if err := decode(a.Kind(), resp.Body, &out); err != nil {
		return integration.SyncResult{}, err
	}
	if out.Product.ID == 0 {
		return integration.SyncResult{}, fmt.Errorf("%w: shopify: response has no product id", integration.ErrPlatformInvalidResponse)
	}
	return integration.Succeeded(strconv.FormatInt(out.Product.ID, 10)), nil
}

// shopifyErrorMessage flattens Shopify's "errors" field, which is either a
// string or a map of field to messages
func shopifyErrorMessage(body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Errors, &text); err == nil {
		return text
	}

	var fields map[string][]string
	if err := json.Unmarshal(envelope.Errors, &fields); err != nil {
		return string(envelope.Errors)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, msg := range fields[k] {
			parts = append(parts, k+" "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Ensure ShopifyAdapter implements Integration interface
var _ integration.Integration = (*ShopifyAdapter)(nil)
