package integration

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformTimeout         = errors.New("integration: platform call timed out")
	ErrAdapterPanicked         = errors.New("integration: adapter panicked")
)

// ---------------------------------------------------------------------------
// Integration port
// ---------------------------------------------------------------------------

// ProductPayload is the platform-neutral product update sent to an adapter.
// An empty Name or Description leaves that field unchanged on the platform.
type ProductPayload struct {
	Name        string
	Description string
	Metadata    map[string]any
}

// SyncResult is the tagged outcome of an adapter call: either a success
// carrying the platform's product id or a failure carrying a reason.
type SyncResult struct {
	success    bool
	externalID string
	reason     string
}

// Succeeded builds a success outcome
func Succeeded(externalID string) SyncResult {
	return SyncResult{success: true, externalID: externalID}
}

// Failed builds a failure outcome
func Failed(reason string) SyncResult {
	if reason == "" {
		reason = "unknown platform error"
	}
	return SyncResult{reason: reason}
}

// IsSuccess reports whether the platform accepted the update
func (r SyncResult) IsSuccess() bool {
	return r.success
}

// ExternalID returns the platform product id of a success, or ""
func (r SyncResult) ExternalID() string {
	return r.externalID
}

// Reason returns the failure reason of a failure, or ""
func (r SyncResult) Reason() string {
	return r.reason
}

// Integration is the port every platform adapter implements.
//
// UpdateProduct creates the product when externalID is nil and updates it
// otherwise. Expected remote rejections (auth, validation, rate limits,
// server errors) come back as Failed results; only transport faults and
// programming errors are returned as error.
type Integration interface {
	Kind() PlatformKind
	UpdateProduct(ctx context.Context, externalID *string, payload ProductPayload) (SyncResult, error)
}

// IntegrationFactory builds an Integration for a platform kind and credentials.
// It fails with an UNSUPPORTED_PLATFORM or INVALID_CREDENTIALS domain error.
type IntegrationFactory interface {
	Build(kind PlatformKind, creds Credentials) (Integration, error)
}
