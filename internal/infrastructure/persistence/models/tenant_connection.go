package models

import (
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"gorm.io/datatypes"
)

// Credential keys inside the credentials column
const (
	credentialAPIKey    = "apiKey"
	credentialAPIToken  = "apiToken"
	credentialStoreName = "storeName"
	credentialMetadata  = "metadata"
)

// TenantConnectionModel is the persistence model for the Connection domain entity.
// Credential fields may hold secret references instead of raw values.
type TenantConnectionModel struct {
	TenantModel
	Name        string            `gorm:"type:varchar(255);not null"`
	Platform    string            `gorm:"type:varchar(50);not null;index"`
	Credentials datatypes.JSONMap `gorm:"type:jsonb;not null"`
	IsActive    bool              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantConnectionModel) TableName() string {
	return "tenant_connections"
}

// ToDomain converts the persistence model to a domain Connection entity.
func (m *TenantConnectionModel) ToDomain() *integration.Connection {
	creds := integration.Credentials{}
	if m.Credentials != nil {
		creds.APIKey, _ = m.Credentials[credentialAPIKey].(string)
		creds.APIToken, _ = m.Credentials[credentialAPIToken].(string)
		creds.StoreName, _ = m.Credentials[credentialStoreName].(string)
		if meta, ok := m.Credentials[credentialMetadata].(map[string]any); ok {
			creds.Metadata = meta
		}
	}
	return &integration.Connection{
		TenantEntity: m.ToTenantEntity(),
		Name:         m.Name,
		Platform:     m.Platform,
		Credentials:  creds,
		Active:       m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Connection entity.
func (m *TenantConnectionModel) FromDomain(c *integration.Connection) {
	m.FromTenantEntity(c.TenantEntity)
	m.Name = c.Name
	m.Platform = c.Platform
	m.IsActive = c.Active
	m.Credentials = datatypes.JSONMap{
		credentialAPIKey:    c.Credentials.APIKey,
		credentialAPIToken:  c.Credentials.APIToken,
		credentialStoreName: c.Credentials.StoreName,
	}
	if c.Credentials.Metadata != nil {
		m.Credentials[credentialMetadata] = c.Credentials.Metadata
	}
}
