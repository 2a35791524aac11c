package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// NewBaseEntity creates a new base entity with generated ID stamped at now
func NewBaseEntity(now time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TenantEntity is an entity owned by a single tenant and guarded by an
// optimistic-lock version
type TenantEntity struct {
	BaseEntity
	TenantID uuid.UUID
	Version  int
}

// NewTenantEntity creates a tenant-scoped entity at version 1
func NewTenantEntity(tenantID uuid.UUID, now time.Time) TenantEntity {
	return TenantEntity{
		BaseEntity: NewBaseEntity(now),
		TenantID:   tenantID,
		Version:    1,
	}
}

// BelongsTo reports whether the entity is owned by tenantID
func (e *TenantEntity) BelongsTo(tenantID uuid.UUID) bool {
	return e.TenantID == tenantID
}
