package integration

import (
	"context"
	"maps"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// Credentials is the secret material of a connection. Any field may hold a
// secret reference that is resolved before the adapter is built.
type Credentials struct {
	APIKey    string
	APIToken  string
	StoreName string
	Metadata  map[string]any
}

// MetadataString returns a string metadata value, or "" when absent
func (c Credentials) MetadataString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[key].(string)
	return s
}

// Clone returns a copy that can be modified without touching c
func (c Credentials) Clone() Credentials {
	out := c
	if c.Metadata != nil {
		out.Metadata = maps.Clone(c.Metadata)
	}
	return out
}

// Connection is a tenant's stored credential set for one platform
type Connection struct {
	shared.TenantEntity
	Name        string
	Platform    string
	Credentials Credentials
	Active      bool
}

// ConnectionReader loads connections for the publication lifecycle
type ConnectionReader interface {
	// FindByIDForTenant returns shared.ErrNotFound when the connection does
	// not exist or belongs to another tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Connection, error)
}
