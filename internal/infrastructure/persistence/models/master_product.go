package models

import (
	"github.com/santi-naranjo/catalog-ai/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MasterProductModel is the persistence model for the MasterProduct domain entity.
type MasterProductModel struct {
	TenantModel
	Name        string            `gorm:"type:varchar(255);not null"`
	Description string            `gorm:"type:text"`
	BasePrice   decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ImageURL    string            `gorm:"type:text"`
	Attributes  datatypes.JSONMap `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (MasterProductModel) TableName() string {
	return "master_products"
}

// ToDomain converts the persistence model to a domain MasterProduct entity.
func (m *MasterProductModel) ToDomain() *catalog.MasterProduct {
	return &catalog.MasterProduct{
		TenantEntity: m.ToTenantEntity(),
		Name:         m.Name,
		Description:  m.Description,
		BasePrice:    m.BasePrice,
		ImageURL:     m.ImageURL,
		Attributes:   jsonToMap(m.Attributes),
	}
}

// FromDomain populates the persistence model from a domain MasterProduct entity.
func (m *MasterProductModel) FromDomain(p *catalog.MasterProduct) {
	m.FromTenantEntity(p.TenantEntity)
	m.Name = p.Name
	m.Description = p.Description
	m.BasePrice = p.BasePrice
	m.ImageURL = p.ImageURL
	m.Attributes = mapToJSON(p.Attributes)
}
