package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel provides common persistence fields for tenant-scoped rows
// guarded by an optimistic-lock version
type TenantModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Version  int       `gorm:"not null;default:1"`
}

// ToTenantEntity converts TenantModel to domain TenantEntity
func (m *TenantModel) ToTenantEntity() shared.TenantEntity {
	return shared.TenantEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		Version:    m.Version,
	}
}

// FromTenantEntity populates TenantModel from domain TenantEntity
func (m *TenantModel) FromTenantEntity(e shared.TenantEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.Version = e.Version
}
