package catalog

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrMasterProductInvalidName  = errors.New("catalog: product name is required")
	ErrMasterProductInvalidPrice = errors.New("catalog: base price cannot be negative")
)

// MasterProduct is the tenant's canonical product, the source of truth for
// name, description and price before per-platform overrides
type MasterProduct struct {
	shared.TenantEntity
	Name        string
	Description string
	BasePrice   decimal.Decimal
	ImageURL    string
	Attributes  map[string]any
}

// NewMasterProduct creates a master product
func NewMasterProduct(tenantID uuid.UUID, name, description string, basePrice decimal.Decimal, now time.Time) (*MasterProduct, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMasterProductInvalidName
	}
	if basePrice.IsNegative() {
		return nil, ErrMasterProductInvalidPrice
	}
	return &MasterProduct{
		TenantEntity: shared.NewTenantEntity(tenantID, now),
		Name:         name,
		Description:  description,
		BasePrice:    basePrice,
		Attributes:   map[string]any{},
	}, nil
}

// AttributesCopy returns a copy of the free-form attributes
func (p *MasterProduct) AttributesCopy() map[string]any {
	if p.Attributes == nil {
		return map[string]any{}
	}
	return maps.Clone(p.Attributes)
}
