package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantConnectionRepository implements ConnectionReader using GORM
type GormTenantConnectionRepository struct {
	db *gorm.DB
}

// NewGormTenantConnectionRepository creates a new GormTenantConnectionRepository
func NewGormTenantConnectionRepository(db *gorm.DB) *GormTenantConnectionRepository {
	return &GormTenantConnectionRepository{db: db}
}

// Ensure GormTenantConnectionRepository implements ConnectionReader interface
var _ integration.ConnectionReader = (*GormTenantConnectionRepository)(nil)

// FindByIDForTenant finds a connection by ID within a specific tenant
func (r *GormTenantConnectionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.Connection, error) {
	var model models.TenantConnectionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find connection %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new connection
func (r *GormTenantConnectionRepository) Create(ctx context.Context, c *integration.Connection) error {
	model := &models.TenantConnectionModel{}
	model.FromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}
