package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Published Product DTOs
// ---------------------------------------------------------------------------

// PublishedProductResponse represents a published product in API responses
type PublishedProductResponse struct {
	ID                        uuid.UUID              `json:"id"`
	TenantID                  uuid.UUID              `json:"tenant_id"`
	MasterProductID           uuid.UUID              `json:"master_product_id"`
	ConnectionID              uuid.UUID              `json:"connection_id"`
	ExternalProductID         *string                `json:"external_product_id"`
	Status                    integration.Status     `json:"status"`
	SyncStatus                integration.SyncStatus `json:"sync_status"`
	PlatformSpecificOverrides integration.Overrides  `json:"platform_specific_overrides"`
	PlatformMetadata          map[string]any         `json:"platform_metadata"`
	PlatformResponse          map[string]any         `json:"platform_response,omitempty"`
	ErrorMessage              *string                `json:"error_message"`
	RetryCount                int                    `json:"retry_count"`
	NextRetryAt               *time.Time             `json:"next_retry_at"`
	PublishedAt               *time.Time             `json:"published_at"`
	LastSyncedAt              *time.Time             `json:"last_synced_at"`
	CreatedAt                 time.Time              `json:"created_at"`
	UpdatedAt                 time.Time              `json:"updated_at"`
}

// ToPublishedProductResponse converts a domain record to its response DTO
func ToPublishedProductResponse(p *integration.PublishedProduct) PublishedProductResponse {
	return PublishedProductResponse{
		ID:                        p.ID,
		TenantID:                  p.TenantID,
		MasterProductID:           p.MasterProductID,
		ConnectionID:              p.ConnectionID,
		ExternalProductID:         p.ExternalProductID,
		Status:                    p.Status(),
		SyncStatus:                p.SyncStatus(),
		PlatformSpecificOverrides: p.Overrides,
		PlatformMetadata:          p.MetadataCopy(),
		PlatformResponse:          p.PlatformResponse,
		ErrorMessage:              p.ErrorMessage,
		RetryCount:                p.RetryCount,
		NextRetryAt:               p.NextRetryAt,
		PublishedAt:               p.PublishedAt,
		LastSyncedAt:              p.LastSyncedAt,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}

// SyncResponse is returned by sync, force-resync and unpublish
type SyncResponse struct {
	Success    bool                      `json:"success"`
	Message    string                    `json:"message,omitempty"`
	ExternalID string                    `json:"external_id,omitempty"`
	Error      string                    `json:"error,omitempty"`
	Product    *PublishedProductResponse `json:"product,omitempty"`
}

// ToSyncResponse converts an outcome to its response DTO
func ToSyncResponse(outcome *SyncOutcome, message string) SyncResponse {
	resp := SyncResponse{
		Success:    outcome.Success,
		ExternalID: outcome.ExternalID,
	}
	if outcome.Success {
		resp.Message = message
	} else {
		resp.Error = outcome.Reason
	}
	if outcome.Record != nil {
		view := ToPublishedProductResponse(outcome.Record)
		resp.Product = &view
	}
	return resp
}
