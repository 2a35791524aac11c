package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// vtexProduct is the catalog product body for create and update
type vtexProduct struct {
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	RefID       string `json:"RefId,omitempty"`
	CategoryID  int64  `json:"CategoryId,omitempty"`
	BrandID     int64  `json:"BrandId,omitempty"`
	IsVisible   bool   `json:"IsVisible"`
	IsActive    bool   `json:"IsActive"`
}

type vtexProductResponse struct {
	ID int64 `json:"Id"`
}

// VTEXAdapter pushes products to a VTEX account through the catalog API
type VTEXAdapter struct {
	client   *platformClient
	baseURL  string
	appKey   string
	appToken string
}

func newVTEXAdapter(client *platformClient, baseURL, appKey, appToken string) *VTEXAdapter {
	return &VTEXAdapter{client: client, baseURL: baseURL, appKey: appKey, appToken: appToken}
}

// Kind returns the platform this adapter handles
func (a *VTEXAdapter) Kind() integration.PlatformKind {
	return integration.PlatformVTEX
}

// UpdateProduct creates or updates a VTEX catalog product. The inactive
// marker hides and deactivates it.
func (a *VTEXAdapter) UpdateProduct(ctx context.Context, externalID *string, payload integration.ProductPayload) (integration.SyncResult, error) {
	active := !isInactive(payload)
	product := vtexProduct{
		Name:        payload.Name,
		Description: payload.Description,
		RefID:       metaString(payload.Metadata, metaSKU),
		IsVisible:   active,
		IsActive:    active,
	}
	if id, ok := metaInt(payload.Metadata, metaCategoryID); ok {
		product.CategoryID = id
	}
	if id, ok := metaInt(payload.Metadata, metaBrandID); ok {
		product.BrandID = id
	}

	method := http.MethodPost
	endpoint := a.baseURL + "/api/catalog/pvt/product"
	if externalID != nil && *externalID != "" {
		method = http.MethodPut
		endpoint += "/" + url.PathEscape(*externalID)
	}

	resp, err := a.client.doJSON(ctx, method, endpoint, map[string]string{
		"X-VTEX-API-AppKey":   a.appKey,
		"X-VTEX-API-AppToken": a.appToken,
	}, product)
	if err != nil {
		return integration.SyncResult{}, err
	}
	if !resp.OK() {
		return failure(resp, vtexErrorMessage), nil
	}

	var out vtexProductResponse
	if err := decode(a.Kind(), resp.Body, &out); err != nil {
		return integration.SyncResult{}, err
	}
	if out.ID == 0 {
		return integration.SyncResult{}, fmt.Errorf("%w: vtex: response has no product id", integration.ErrPlatformInvalidResponse)
	}
	return integration.Succeeded(strconv.FormatInt(out.ID, 10)), nil
}

// vtexErrorMessage reads the Message field VTEX sets on JSON errors. Plain
// text bodies are handled by the caller.
func vtexErrorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"Message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error.Message
}

// Ensure VTEXAdapter implements Integration interface
var _ integration.Integration = (*VTEXAdapter)(nil)
