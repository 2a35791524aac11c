package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/catalog"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMasterProductRepository implements MasterProductRepository using GORM
type GormMasterProductRepository struct {
	db *gorm.DB
}

// NewGormMasterProductRepository creates a new GormMasterProductRepository
func NewGormMasterProductRepository(db *gorm.DB) *GormMasterProductRepository {
	return &GormMasterProductRepository{db: db}
}

// Ensure GormMasterProductRepository implements MasterProductRepository interface
var _ catalog.MasterProductRepository = (*GormMasterProductRepository)(nil)

// FindByIDForTenant finds a master product by ID within a specific tenant
func (r *GormMasterProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.MasterProduct, error) {
	var model models.MasterProductModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find master product %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new master product
func (r *GormMasterProductRepository) Create(ctx context.Context, p *catalog.MasterProduct) error {
	model := &models.MasterProductModel{}
	model.FromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create master product: %w", err)
	}
	return nil
}
