package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPublishedProductRepository implements PublishedProductRepository using GORM
type GormPublishedProductRepository struct {
	db *gorm.DB
}

// NewGormPublishedProductRepository creates a new GormPublishedProductRepository
func NewGormPublishedProductRepository(db *gorm.DB) *GormPublishedProductRepository {
	return &GormPublishedProductRepository{db: db}
}

// Ensure GormPublishedProductRepository implements PublishedProductRepository interface
var _ integration.PublishedProductRepository = (*GormPublishedProductRepository)(nil)

// ---------------------------------------------------------------------------
// PublishedProductReader implementation
// ---------------------------------------------------------------------------

// FindByIDForTenant finds a record by ID within a specific tenant
func (r *GormPublishedProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error) {
	var model models.PublishedProductModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find published product %s: %w", id, err)
	}
	return toPublishedProduct(&model)
}

// ---------------------------------------------------------------------------
// PublishedProductFinder implementation
// ---------------------------------------------------------------------------

// FindDueForRetry returns failed records whose retry time is not after now, oldest first
func (r *GormPublishedProductRepository) FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]*integration.PublishedProduct, error) {
	var rows []models.PublishedProductModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND sync_status = ?", integration.StatusFailed, integration.SyncStatusFailed).
		Where("next_retry_at IS NOT NULL AND next_retry_at <= ?", now.UTC()).
		Order("next_retry_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find published products due for retry: %w", err)
	}

	out := make([]*integration.PublishedProduct, 0, len(rows))
	for i := range rows {
		p, err := toPublishedProduct(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// PublishedProductWriter implementation
// ---------------------------------------------------------------------------

// Create inserts a new record
func (r *GormPublishedProductRepository) Create(ctx context.Context, p *integration.PublishedProduct) error {
	model := &models.PublishedProductModel{}
	model.FromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create published product: %w", err)
	}
	return nil
}

// CompareAndSwap writes p only when the stored row still carries the
// expected status, sync status and version. Zero rows matched means another
// writer moved the record first.
func (r *GormPublishedProductRepository) CompareAndSwap(ctx context.Context, p *integration.PublishedProduct, expected integration.Precondition) error {
	model := &models.PublishedProductModel{}
	model.FromDomain(p)

	result := r.db.WithContext(ctx).
		Model(&models.PublishedProductModel{}).
		Where("id = ? AND tenant_id = ?", p.ID, p.TenantID).
		Where("status = ? AND sync_status = ? AND version = ?",
			expected.State.Status(), expected.State.SyncStatus(), expected.Version).
		Updates(model.MutableColumns())
	if result.Error != nil {
		return fmt.Errorf("update published product %s: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			"Product state changed concurrently, operation not applied")
	}
	return nil
}

func toPublishedProduct(model *models.PublishedProductModel) (*integration.PublishedProduct, error) {
	p, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("published product %s: %w", model.ID, err)
	}
	return p, nil
}

// tenantScope restricts a query to rows owned by tenantID
func tenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}
