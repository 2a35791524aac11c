package integration

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// PublishedProduct Errors
// ---------------------------------------------------------------------------

var (
	ErrPublishedProductInvalidTenantID   = errors.New("integration: invalid tenant ID")
	ErrPublishedProductInvalidProductID  = errors.New("integration: invalid master product ID")
	ErrPublishedProductInvalidConnection = errors.New("integration: invalid connection ID")
)

// DefaultRetryDelay is the delay used when no retry policy is supplied or the
// policy yields a non-positive delay
const DefaultRetryDelay = 5 * time.Minute

// RetryPolicy computes how long to wait before the attempt following the
// given number of failures
type RetryPolicy interface {
	Delay(retryCount int) time.Duration
}

// Overrides are per-platform field overrides layered over the master product
type Overrides struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Precondition is the state a conditional update expects to find in storage
type Precondition struct {
	State   PublicationState
	Version int
}

// ---------------------------------------------------------------------------
// PublishedProduct entity
// ---------------------------------------------------------------------------

// PublishedProduct tracks one master product on one platform connection.
// The status/sync-status pair changes only through the methods below, each of
// which applies one event of the transition table.
type PublishedProduct struct {
	shared.TenantEntity
	MasterProductID   uuid.UUID
	ConnectionID      uuid.UUID
	ExternalProductID *string
	state             PublicationState
	Overrides         Overrides
	PlatformMetadata  map[string]any
	PlatformResponse  map[string]any
	ErrorMessage      *string
	RetryCount        int
	NextRetryAt       *time.Time
	PublishedAt       *time.Time
	LastSyncedAt      *time.Time
}

// NewPublishedProduct creates a record queued for its first sync
func NewPublishedProduct(tenantID, masterProductID, connectionID uuid.UUID, now time.Time) (*PublishedProduct, error) {
	if tenantID == uuid.Nil {
		return nil, ErrPublishedProductInvalidTenantID
	}
	if masterProductID == uuid.Nil {
		return nil, ErrPublishedProductInvalidProductID
	}
	if connectionID == uuid.Nil {
		return nil, ErrPublishedProductInvalidConnection
	}
	return &PublishedProduct{
		TenantEntity:     shared.NewTenantEntity(tenantID, now),
		MasterProductID:  masterProductID,
		ConnectionID:     connectionID,
		state:            StateQueued,
		PlatformMetadata: map[string]any{},
	}, nil
}

// RehydratePublishedProduct rebuilds a record read from storage with its
// persisted state pair
func RehydratePublishedProduct(p PublishedProduct, status Status, syncStatus SyncStatus) (*PublishedProduct, error) {
	state, err := RestorePublicationState(status, syncStatus)
	if err != nil {
		return nil, err
	}
	p.state = state
	return &p, nil
}

// State returns the current status/sync-status pair
func (p *PublishedProduct) State() PublicationState {
	return p.state
}

// Status returns the publication status
func (p *PublishedProduct) Status() Status {
	return p.state.Status()
}

// SyncStatus returns the sync status
func (p *PublishedProduct) SyncStatus() SyncStatus {
	return p.state.SyncStatus()
}

// Precondition captures the current state and version for a conditional update
func (p *PublishedProduct) Precondition() Precondition {
	return Precondition{State: p.state, Version: p.Version}
}

// HasExternalID reports whether the platform has assigned an id
func (p *PublishedProduct) HasExternalID() bool {
	return p.ExternalProductID != nil && *p.ExternalProductID != ""
}

// IsDueForRetry reports whether an automatic retry may run at now
func (p *PublishedProduct) IsDueForRetry(now time.Time) bool {
	return p.state == StateFailed && p.NextRetryAt != nil && !p.NextRetryAt.After(now)
}

// IsStale reports whether the record has not been touched for at least d
func (p *PublishedProduct) IsStale(now time.Time, d time.Duration) bool {
	return !p.UpdatedAt.Add(d).After(now)
}

func (p *PublishedProduct) apply(event Event, now time.Time) error {
	next, err := p.state.Apply(event)
	if err != nil {
		return err
	}
	p.state = next
	p.UpdatedAt = now
	p.Version++
	return nil
}

// BeginSync moves a queued or published record into publishing/syncing
func (p *PublishedProduct) BeginSync(now time.Time) error {
	return p.apply(EventBeginSync, now)
}

// ForceResync re-enters publishing/syncing for a record stuck there for at
// least stuckAfter, so a normal sync can run again
func (p *PublishedProduct) ForceResync(now time.Time, stuckAfter time.Duration) error {
	if p.state != StateInFlight || !p.IsStale(now, stuckAfter) {
		return shared.NewDomainError(shared.CodeInvalidState,
			"Product is not stuck in publishing")
	}
	return p.apply(EventForceResync, now)
}

// CompleteSync records a successful platform update.
// An empty externalID keeps the id already assigned.
func (p *PublishedProduct) CompleteSync(externalID string, now time.Time) error {
	if err := p.apply(EventSyncSucceeded, now); err != nil {
		return err
	}
	if externalID != "" {
		id := externalID
		p.ExternalProductID = &id
	}
	if p.PublishedAt == nil {
		p.PublishedAt = &now
	}
	p.LastSyncedAt = &now
	p.ErrorMessage = nil
	p.NextRetryAt = nil
	p.PlatformResponse = map[string]any{
		"success":     true,
		"external_id": externalID,
		"synced_at":   now.Format(time.RFC3339),
	}
	return nil
}

// FailSync records a failed platform update and schedules the next attempt
// strictly after now
func (p *PublishedProduct) FailSync(reason string, policy RetryPolicy, now time.Time) error {
	if err := p.apply(EventSyncFailed, now); err != nil {
		return err
	}
	p.RetryCount++
	delay := DefaultRetryDelay
	if policy != nil {
		if d := policy.Delay(p.RetryCount); d > 0 {
			delay = d
		}
	}
	next := now.Add(delay)
	p.NextRetryAt = &next
	p.ErrorMessage = &reason
	p.PlatformResponse = map[string]any{
		"success":   false,
		"error":     reason,
		"failed_at": now.Format(time.RFC3339),
	}
	return nil
}

// Requeue moves a failed record back to queued/pending. RetryCount is kept.
func (p *PublishedProduct) Requeue(now time.Time) error {
	if p.state.Status() != StatusFailed {
		return shared.NewDomainError(shared.CodeInvalidState, "Product is not in failed state")
	}
	if err := p.apply(EventRetry, now); err != nil {
		return err
	}
	p.ErrorMessage = nil
	p.NextRetryAt = nil
	return nil
}

// BeginUnpublish locks a published record while the platform is told to
// deactivate it
func (p *PublishedProduct) BeginUnpublish(now time.Time) error {
	if p.state.Status() != StatusPublished {
		return shared.NewDomainError(shared.CodeInvalidState, "Product is not published")
	}
	if !p.HasExternalID() {
		return shared.NewDomainError(shared.CodeInvalidState, "Product has no external product ID")
	}
	return p.apply(EventBeginUnpublish, now)
}

// CompleteUnpublish records that the platform deactivated the product
func (p *PublishedProduct) CompleteUnpublish(externalID string, now time.Time) error {
	if err := p.apply(EventUnpublishSucceeded, now); err != nil {
		return err
	}
	p.PlatformResponse = map[string]any{
		"success":        true,
		"external_id":    externalID,
		"unpublished_at": now.Format(time.RFC3339),
	}
	return nil
}

// AbortUnpublish returns a locked record to published/synced and restores
// the update timestamp it had before BeginUnpublish
func (p *PublishedProduct) AbortUnpublish(previousUpdatedAt time.Time) error {
	return p.apply(EventUnpublishFailed, previousUpdatedAt)
}

// MetadataCopy returns a copy of the platform metadata
func (p *PublishedProduct) MetadataCopy() map[string]any {
	if p.PlatformMetadata == nil {
		return map[string]any{}
	}
	return maps.Clone(p.PlatformMetadata)
}
