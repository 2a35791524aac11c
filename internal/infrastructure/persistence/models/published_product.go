package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"gorm.io/datatypes"
)

// PublishedProductModel is the persistence model for the PublishedProduct domain entity.
type PublishedProductModel struct {
	TenantModel
	MasterProductID   uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_published_products_product_connection,priority:1"`
	ConnectionID      uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_published_products_product_connection,priority:2"`
	ExternalProductID *string                `gorm:"type:varchar(255)"`
	Status            integration.Status     `gorm:"type:varchar(20);not null;default:'queued';index:idx_published_products_retry,priority:1"`
	SyncStatus        integration.SyncStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Overrides         datatypes.JSONMap      `gorm:"column:platform_specific_overrides;type:jsonb"`
	PlatformMetadata  datatypes.JSONMap      `gorm:"type:jsonb"`
	PlatformResponse  datatypes.JSONMap      `gorm:"type:jsonb"`
	ErrorMessage      *string                `gorm:"type:text"`
	RetryCount        int                    `gorm:"not null;default:0"`
	NextRetryAt       *time.Time             `gorm:"index:idx_published_products_retry,priority:2"`
	PublishedAt       *time.Time
	LastSyncedAt      *time.Time
}

// TableName returns the table name for GORM
func (PublishedProductModel) TableName() string {
	return "published_products"
}

// ToDomain converts the persistence model to a domain PublishedProduct entity.
func (m *PublishedProductModel) ToDomain() (*integration.PublishedProduct, error) {
	return integration.RehydratePublishedProduct(integration.PublishedProduct{
		TenantEntity:      m.ToTenantEntity(),
		MasterProductID:   m.MasterProductID,
		ConnectionID:      m.ConnectionID,
		ExternalProductID: m.ExternalProductID,
		Overrides:         overridesFromJSON(m.Overrides),
		PlatformMetadata:  jsonToMap(m.PlatformMetadata),
		PlatformResponse:  jsonToMap(m.PlatformResponse),
		ErrorMessage:      m.ErrorMessage,
		RetryCount:        m.RetryCount,
		NextRetryAt:       utcPtr(m.NextRetryAt),
		PublishedAt:       utcPtr(m.PublishedAt),
		LastSyncedAt:      utcPtr(m.LastSyncedAt),
	}, m.Status, m.SyncStatus)
}

// FromDomain populates the persistence model from a domain PublishedProduct entity.
func (m *PublishedProductModel) FromDomain(p *integration.PublishedProduct) {
	m.FromTenantEntity(p.TenantEntity)
	m.MasterProductID = p.MasterProductID
	m.ConnectionID = p.ConnectionID
	m.ExternalProductID = p.ExternalProductID
	m.Status = p.Status()
	m.SyncStatus = p.SyncStatus()
	m.Overrides = overridesToJSON(p.Overrides)
	m.PlatformMetadata = mapToJSON(p.PlatformMetadata)
	m.PlatformResponse = mapToJSON(p.PlatformResponse)
	m.ErrorMessage = p.ErrorMessage
	m.RetryCount = p.RetryCount
	m.NextRetryAt = p.NextRetryAt
	m.PublishedAt = p.PublishedAt
	m.LastSyncedAt = p.LastSyncedAt
}

// MutableColumns returns the columns a conditional update rewrites, keyed
// by column name
func (m *PublishedProductModel) MutableColumns() map[string]any {
	return map[string]any{
		"external_product_id":         m.ExternalProductID,
		"status":                      m.Status,
		"sync_status":                 m.SyncStatus,
		"platform_specific_overrides": m.Overrides,
		"platform_metadata":           m.PlatformMetadata,
		"platform_response":           m.PlatformResponse,
		"error_message":               m.ErrorMessage,
		"retry_count":                 m.RetryCount,
		"next_retry_at":               m.NextRetryAt,
		"published_at":                m.PublishedAt,
		"last_synced_at":              m.LastSyncedAt,
		"updated_at":                  m.UpdatedAt,
		"version":                     m.Version,
	}
}

func overridesFromJSON(j datatypes.JSONMap) integration.Overrides {
	var o integration.Overrides
	if j == nil {
		return o
	}
	o.Name, _ = j["name"].(string)
	o.Description, _ = j["description"].(string)
	return o
}

func overridesToJSON(o integration.Overrides) datatypes.JSONMap {
	j := datatypes.JSONMap{}
	if o.Name != "" {
		j["name"] = o.Name
	}
	if o.Description != "" {
		j["description"] = o.Description
	}
	return j
}

func jsonToMap(j datatypes.JSONMap) map[string]any {
	if j == nil {
		return nil
	}
	return map[string]any(j)
}

func mapToJSON(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
