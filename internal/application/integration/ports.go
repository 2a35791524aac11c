package integration

import (
	"context"
	"time"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// CredentialResolver replaces secret references in connection credentials
// with their values
type CredentialResolver interface {
	Resolve(ctx context.Context, creds integration.Credentials) (integration.Credentials, error)
}

// ImageURLResolver turns a stored master image reference into a URL the
// platform can fetch
type ImageURLResolver interface {
	ResolveImageURL(ctx context.Context, ref string) (string, error)
}

// Outcome labels used by SyncRecorder
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SyncRecorder receives lifecycle measurements
type SyncRecorder interface {
	RecordAdapterCall(ctx context.Context, platform, operation, outcome string, d time.Duration)
	RecordSweep(ctx context.Context, selected, requeued int)
}

type noopRecorder struct{}

func (noopRecorder) RecordAdapterCall(context.Context, string, string, string, time.Duration) {}
func (noopRecorder) RecordSweep(context.Context, int, int) {}
