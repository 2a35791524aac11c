package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

const (
	amazonListingsPath         = "/listings/2021-08-01/items/"
	amazonStatusAccepted       = "ACCEPTED"
	amazonDefaultProductType   = "PRODUCT"
	amazonDefaultCurrency      = "USD"
	amazonFulfillmentChannel   = "DEFAULT"
	amazonRequirementsListing  = "LISTING"
	amazonPatchReplace         = "replace"
	amazonAttrItemName         = "item_name"
	amazonAttrDescription      = "product_description"
	amazonAttrPurchasableOffer = "purchasable_offer"
	amazonAttrFulfillment      = "fulfillment_availability"
)

// AmazonAccount identifies the seller account an adapter acts for
type AmazonAccount struct {
	APIKey        string
	AccessToken   string
	SellerID      string
	MarketplaceID string
}

type amazonListingRequest struct {
	ProductType  string         `json:"productType"`
	Requirements string         `json:"requirements,omitempty"`
	Attributes   map[string]any `json:"attributes"`
}

type amazonPatchRequest struct {
	ProductType string             `json:"productType"`
	Patches     []amazonPatchEntry `json:"patches"`
}

type amazonPatchEntry struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type amazonListingResponse struct {
	SKU          string        `json:"sku"`
	Status       string        `json:"status"`
	SubmissionID string        `json:"submissionId"`
	Issues       []amazonIssue `json:"issues"`
}

type amazonIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// AmazonAdapter manages listings through the Selling Partner Listings Items API.
// The listing SKU is the external product id.
type AmazonAdapter struct {
	client  *platformClient
	baseURL string
	account AmazonAccount
}

func newAmazonAdapter(client *platformClient, baseURL string, account AmazonAccount) *AmazonAdapter {
	return &AmazonAdapter{client: client, baseURL: baseURL, account: account}
}

// Kind returns the platform this adapter handles
func (a *AmazonAdapter) Kind() integration.PlatformKind {
	return integration.PlatformAmazon
}

// UpdateProduct puts a full listing when externalID is nil and patches the
// listing otherwise. The inactive marker sets fulfillable quantity to zero.
func (a *AmazonAdapter) UpdateProduct(ctx context.Context, externalID *string, payload integration.ProductPayload) (integration.SyncResult, error) {
	productType := metaString(payload.Metadata, metaProduct)
	if productType == "" {
		productType = amazonDefaultProductType
	}

	sku := metaString(payload.Metadata, metaSKU)
	method := http.MethodPut
	var body any
	if externalID != nil && *externalID != "" {
		sku = *externalID
		method = http.MethodPatch
		body = amazonPatchRequest{ProductType: productType, Patches: a.patches(payload)}
	} else {
		if sku == "" {
			return integration.Failed("Amazon listing requires a sku in platform metadata"), nil
		}
		body = amazonListingRequest{
			ProductType:  productType,
			Requirements: amazonRequirementsListing,
			Attributes:   a.attributes(payload),
		}
	}

	endpoint := a.baseURL + amazonListingsPath + url.PathEscape(a.account.SellerID) + "/" + url.PathEscape(sku) +
		"?" + url.Values{"marketplaceIds": {a.account.MarketplaceID}}.Encode()

	resp, err := a.client.doJSON(ctx, method, endpoint, map[string]string{
		"x-amz-access-token": a.account.AccessToken,
		"x-api-key":          a.account.APIKey,
	}, body)
	if err != nil {
		return integration.SyncResult{}, err
	}
	if !resp.OK() {
		return failure(resp, amazonErrorMessage), nil
	}

	var out amazonListingResponse
	if err := decode(a.Kind(), resp.Body, &out); err != nil {
		return integration.SyncResult{}, err
	}
	if out.Status != amazonStatusAccepted {
		return integration.Failed("listing " + strings.ToLower(out.Status) + ": " + joinIssues(out.Issues)), nil
	}
	if out.SKU == "" {
		out.SKU = sku
	}
	return integration.Succeeded(out.SKU), nil
}

func (a *AmazonAdapter) localized(value string) []map[string]any {
	return []map[string]any{{"value": value, "marketplace_id": a.account.MarketplaceID}}
}

func (a *AmazonAdapter) offer(payload integration.ProductPayload) ([]map[string]any, bool) {
	price, ok := metaDecimal(payload.Metadata, metaBasePrice)
	if !ok {
		return nil, false
	}
	currency := metaString(payload.Metadata, metaCurrency)
	if currency == "" {
		currency = amazonDefaultCurrency
	}
	return []map[string]any{{
		"marketplace_id": a.account.MarketplaceID,
		"currency":       currency,
		"our_price": []map[string]any{{
			"schedule": []map[string]any{{"value_with_tax": price.InexactFloat64()}},
		}},
	}}, true
}

func (a *AmazonAdapter) attributes(payload integration.ProductPayload) map[string]any {
	attrs := map[string]any{}
	if payload.Name != "" {
		attrs[amazonAttrItemName] = a.localized(payload.Name)
	}
	if payload.Description != "" {
		attrs[amazonAttrDescription] = a.localized(payload.Description)
	}
	if offer, ok := a.offer(payload); ok {
		attrs[amazonAttrPurchasableOffer] = offer
	}
	if qty, ok := metaInt(payload.Metadata, metaQuantity); ok {
		attrs[amazonAttrFulfillment] = []map[string]any{{
			"fulfillment_channel_code": amazonFulfillmentChannel,
			"quantity":                 qty,
		}}
	}
	return attrs
}

func (a *AmazonAdapter) patches(payload integration.ProductPayload) []amazonPatchEntry {
	attrs := a.attributes(payload)
	if isInactive(payload) {
		attrs[amazonAttrFulfillment] = []map[string]any{{
			"fulfillment_channel_code": amazonFulfillmentChannel,
			"quantity":                 0,
		}}
	}

	order := []string{amazonAttrItemName, amazonAttrDescription, amazonAttrPurchasableOffer, amazonAttrFulfillment}
	patches := make([]amazonPatchEntry, 0, len(attrs))
	for _, name := range order {
		if v, ok := attrs[name]; ok {
			patches = append(patches, amazonPatchEntry{Op: amazonPatchReplace, Path: "/attributes/" + name, Value: v})
		}
	}
	return patches
}

func joinIssues(issues []amazonIssue) string {
	msgs := make([]string, 0, len(issues))
	for _, i := range issues {
		if i.Severity == "" || i.Severity == "ERROR" {
			msgs = append(msgs, i.Message)
		}
	}
	if len(msgs) == 0 {
		return "no issues reported"
	}
	return strings.Join(msgs, "; ")
}

// amazonErrorMessage reads the SP-API error list
func amazonErrorMessage(body []byte) string {
	var envelope struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(envelope.Errors))
	for _, e := range envelope.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Ensure AmazonAdapter implements Integration interface
var _ integration.Integration = (*AmazonAdapter)(nil)
