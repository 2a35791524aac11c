package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PublishedProductReader defines read operations for published products
type PublishedProductReader interface {
	// FindByIDForTenant returns shared.ErrNotFound when the record does not
	// exist or belongs to another tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PublishedProduct, error)
}

// PublishedProductFinder defines cross-tenant queries used by background work
type PublishedProductFinder interface {
	// FindDueForRetry returns failed records whose NextRetryAt is not after
	// now, oldest first, at most limit of them
	FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]*PublishedProduct, error)
}

// PublishedProductWriter defines write operations for published products
type PublishedProductWriter interface {
	// Create inserts a new record
	Create(ctx context.Context, p *PublishedProduct) error
	// CompareAndSwap persists p only if the stored row still matches
	// expected. It returns an INVALID_STATE domain error when another
	// writer got there first.
	CompareAndSwap(ctx context.Context, p *PublishedProduct, expected Precondition) error
}

// PublishedProductRepository combines all published product operations
type PublishedProductRepository interface {
	PublishedProductReader
	PublishedProductFinder
	PublishedProductWriter
}
