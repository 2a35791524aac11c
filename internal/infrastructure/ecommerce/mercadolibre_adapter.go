package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// MercadoLibre item statuses
const (
	mercadoLibreStatusActive = "active"
	mercadoLibreStatusPaused = "paused"

	mercadoLibreDefaultCurrency    = "ARS"
	mercadoLibreDefaultListingType = "gold_special"
	mercadoLibreDefaultCondition   = "new"
)

type mercadoLibreItem struct {
	Title             string                   `json:"title,omitempty"`
	CategoryID        string                   `json:"category_id,omitempty"`
	Price             *float64                 `json:"price,omitempty"`
	CurrencyID        string                   `json:"currency_id,omitempty"`
	AvailableQuantity *int64                   `json:"available_quantity,omitempty"`
	BuyingMode        string                   `json:"buying_mode,omitempty"`
	ListingTypeID     string                   `json:"listing_type_id,omitempty"`
	Condition         string                   `json:"condition,omitempty"`
	Status            string                   `json:"status,omitempty"`
	SellerCustomField string                   `json:"seller_custom_field,omitempty"`
	Description       *mercadoLibreDescription `json:"description,omitempty"`
	Pictures          []mercadoLibrePicture    `json:"pictures,omitempty"`
}

type mercadoLibreDescription struct {
	PlainText string `json:"plain_text"`
}

type mercadoLibrePicture struct {
	Source string `json:"source"`
}

type mercadoLibreItemResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MercadoLibreAdapter publishes listings on MercadoLibre
type MercadoLibreAdapter struct {
	client  *platformClient
	baseURL string
	token   string
}

func newMercadoLibreAdapter(client *platformClient, baseURL, token string) *MercadoLibreAdapter {
	return &MercadoLibreAdapter{client: client, baseURL: baseURL, token: token}
}

// Kind returns the platform this adapter handles
func (a *MercadoLibreAdapter) Kind() integration.PlatformKind {
	return integration.PlatformMercadoLibre
}

// UpdateProduct creates or updates a MercadoLibre item. The inactive marker
// pauses the listing. Descriptions are only accepted on create.
func (a *MercadoLibreAdapter) UpdateProduct(ctx context.Context, externalID *string, payload integration.ProductPayload) (integration.SyncResult, error) {
	item := mercadoLibreItem{
		Title:             payload.Name,
		SellerCustomField: metaString(payload.Metadata, metaSKU),
	}
	if price, ok := metaDecimal(payload.Metadata, metaBasePrice); ok {
		f := price.InexactFloat64()
		item.Price = &f
	}
	if qty, ok := metaInt(payload.Metadata, metaQuantity); ok {
		item.AvailableQuantity = &qty
	}

	method := http.MethodPut
	endpoint := a.baseURL + "/items"
	if externalID != nil && *externalID != "" {
		endpoint += "/" + url.PathEscape(*externalID)
		item.Status = mercadoLibreStatusActive
		if isInactive(payload) {
			item = mercadoLibreItem{Status: mercadoLibreStatusPaused}
		}
	} else {
		method = http.MethodPost
		item.CategoryID = metaString(payload.Metadata, metaCategoryID)
		item.CurrencyID = metaString(payload.Metadata, metaCurrency)
		if item.CurrencyID == "" {
			item.CurrencyID = mercadoLibreDefaultCurrency
		}
		item.BuyingMode = "buy_it_now"
		item.ListingTypeID = mercadoLibreDefaultListingType
		item.Condition = mercadoLibreDefaultCondition
		if payload.Description != "" {
			item.Description = &mercadoLibreDescription{PlainText: payload.Description}
		}
		if img := metaString(payload.Metadata, metaImageURL); img != "" {
			item.Pictures = []mercadoLibrePicture{{Source: img}}
		}
	}

	resp, err := a.client.doJSON(ctx, method, endpoint, map[string]string{
		"Authorization": "Bearer " + a.token,
	}, item)
	if err != nil {
		return integration.SyncResult{}, err
	}
	if !resp.OK() {
		return failure(resp, mercadoLibreErrorMessage), nil
	}

	var out mercadoLibreItemResponse
	if err := decode(a.Kind(), resp.Body, &out); err != nil {
		return integration.SyncResult{}, err
	}
	if out.ID == "" {
		return integration.SyncResult{}, fmt.Errorf("%w: mercadolibre: response has no item id", integration.ErrPlatformInvalidResponse)
	}
	return integration.Succeeded(out.ID), nil
}

// mercadoLibreErrorMessage joins the top-level message with each cause
func mercadoLibreErrorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Cause   []struct {
			Message string `json:"message"`
		} `json:"cause"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	parts := make([]string, 0, len(envelope.Cause)+1)
	switch {
	case envelope.Message != "":
		parts = append(parts, envelope.Message)
	case envelope.Error != "":
		parts = append(parts, envelope.Error)
	}
	for _, c := range envelope.Cause {
		if c.Message != "" {
			parts = append(parts, c.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// Ensure MercadoLibreAdapter implements Integration interface
var _ integration.Integration = (*MercadoLibreAdapter)(nil)
