package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MasterProductReader loads master products for payload assembly
type MasterProductReader interface {
	// FindByIDForTenant returns shared.ErrNotFound when the product does not
	// exist or belongs to another tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*MasterProduct, error)
}

// MasterProductRepository adds the writes used by seeding and tests
type MasterProductRepository interface {
	MasterProductReader
	Create(ctx context.Context, p *MasterProduct) error
}
