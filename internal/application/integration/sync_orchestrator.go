package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/catalog"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultAdapterTimeout bounds a single platform call
	DefaultAdapterTimeout = 30 * time.Second
	// DefaultStuckAfter is how long a record must sit in publishing before
	// ForceResync accepts it
	DefaultStuckAfter = 10 * time.Minute
	// DefaultPersistTimeout bounds the terminal write after a platform call
	DefaultPersistTimeout = 10 * time.Second

	operationSync      = "sync"
	operationUnpublish = "unpublish"
)

// SyncOutcome is what a sync or unpublish reports back to its caller.
// The record reflects what was persisted.
type SyncOutcome struct {
	Record     *integration.PublishedProduct
	Success    bool
	ExternalID string
	Reason     string
}

// OrchestratorOption configures a SyncOrchestrator
type OrchestratorOption func(*SyncOrchestrator)

// WithClock sets the time source
func WithClock(clock shared.Clock) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.clock = clock
	}
}

// WithRetryPolicy sets the policy used to schedule the next attempt
func WithRetryPolicy(policy integration.RetryPolicy) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.policy = policy
	}
}

// WithCredentialResolver resolves secret references before adapters are built
func WithCredentialResolver(r CredentialResolver) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.credentials = r
	}
}

// WithImageURLResolver resolves master image references into URLs
func WithImageURLResolver(r ImageURLResolver) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.images = r
	}
}

// WithRecorder sets the metrics sink
func WithRecorder(r SyncRecorder) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.logger = logger
	}
}

// WithAdapterTimeout bounds each platform call
func WithAdapterTimeout(d time.Duration) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		if d > 0 {
			o.adapterTimeout = d
		}
	}
}

// WithStuckAfter sets how stale a publishing record must be for ForceResync
func WithStuckAfter(d time.Duration) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		if d > 0 {
			o.stuckAfter = d
		}
	}
}

// WithPersistTimeout bounds the write that settles a record after the
// platform call
func WithPersistTimeout(d time.Duration) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}

// SyncOrchestrator drives published products through their lifecycle.
//
// Every operation validates the current state before any remote call,
// persists the transitional state with a conditional update, calls the
// platform adapter, then persists the terminal state with a second
// conditional update. Only one operation per record can hold the
// publishing/syncing lock at a time.
type SyncOrchestrator struct {
	products    integration.PublishedProductRepository
	connections integration.ConnectionReader
	masters     catalog.MasterProductReader
	factory     integration.IntegrationFactory

	credentials CredentialResolver
	images      ImageURLResolver
	policy      integration.RetryPolicy
	clock       shared.Clock
	recorder    SyncRecorder
	logger      *zap.Logger

	adapterTimeout time.Duration
	stuckAfter     time.Duration
	persistTimeout time.Duration
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(
	products integration.PublishedProductRepository,
	connections integration.ConnectionReader,
	masters catalog.MasterProductReader,
	factory integration.IntegrationFactory,
	opts ...OrchestratorOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		products:       products,
		connections:    connections,
		masters:        masters,
		factory:        factory,
		policy:         FixedBackoff{Interval: integration.DefaultRetryDelay},
		clock:          shared.SystemClock{},
		recorder:       noopRecorder{},
		logger:         zap.NewNop(),
		adapterTimeout: DefaultAdapterTimeout,
		stuckAfter:     DefaultStuckAfter,
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Get returns a published product owned by tenantID
func (o *SyncOrchestrator) Get(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	return o.load(ctx, tenantID, id)
}

// Retry requeues a failed record. The retry count is kept.
func (o *SyncOrchestrator) Retry(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "published_product", "retry",
		telemetry.WithAttribute(telemetry.SpanAttrPublishedProductID, id.String()))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	record, err := o.load(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	expected := record.Precondition()
	if err := record.Requeue(o.clock.Now()); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(ctx, record, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "requeued", "retry_count", record.RetryCount)

	o.logger.Info("Published product requeued",
		zap.String("published_product_id", record.ID.String()),
		zap.String("tenant_id", record.TenantID.String()),
		zap.Int("retry_count", record.RetryCount),
	)
	return record, nil
}

// Sync pushes the current master product state to the platform.
//
// Precondition errors (UNAUTHORIZED, NOT_FOUND, INVALID_STATE) leave the
// record untouched. Once the record is locked, every adapter failure is
// persisted as failed/failed and returned together with the outcome.
func (o *SyncOrchestrator) Sync(ctx context.Context, tenantID, id uuid.UUID) (*SyncOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "published_product", "sync",
		telemetry.WithAttribute(telemetry.SpanAttrPublishedProductID, id.String()))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	record, err := o.load(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !record.State().CanApply(integration.EventBeginSync) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Product cannot be synced while %s", record.State()))
	}

	conn, master, err := o.resolveSources(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payload := o.syncPayload(ctx, record, master)

	expected := record.Precondition()
	if err := record.BeginSync(o.clock.Now()); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(ctx, record, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	outcome, err := o.settleSync(ctx, record, conn, payload)
	recordSettled(span, outcome, err)
	return outcome, err
}

// ForceResync re-runs a sync for a record stuck in publishing/syncing after
// a crash between the adapter call and the terminal write
func (o *SyncOrchestrator) ForceResync(ctx context.Context, tenantID, id uuid.UUID) (*SyncOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "published_product", "force_resync",
		telemetry.WithAttribute(telemetry.SpanAttrPublishedProductID, id.String()))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	record, err := o.load(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !record.IsStale(o.clock.Now(), o.stuckAfter) || record.State() != integration.StateInFlight {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Product is not stuck in publishing")
	}

	conn, master, err := o.resolveSources(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payload := o.syncPayload(ctx, record, master)

	expected := record.Precondition()
	if err := record.ForceResync(o.clock.Now(), o.stuckAfter); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(ctx, record, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	o.logger.Warn("Forcing re-sync of stuck published product",
		zap.String("published_product_id", record.ID.String()),
		zap.String("tenant_id", record.TenantID.String()),
	)

	outcome, err := o.settleSync(ctx, record, conn, payload)
	recordSettled(span, outcome, err)
	return outcome, err
}

// Unpublish asks the platform to deactivate the product. On failure the
// record is restored to published/synced and the error is only returned.
func (o *SyncOrchestrator) Unpublish(ctx context.Context, tenantID, id uuid.UUID) (*SyncOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "published_product", "unpublish",
		telemetry.WithAttribute(telemetry.SpanAttrPublishedProductID, id.String()))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	record, err := o.load(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if record.Status() != integration.StatusPublished {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Product is not published")
	}

	conn, err := o.resolveConnection(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := o.clock.Now()
	payload := BuildUnpublishPayload(record, now)
	previousUpdatedAt := record.UpdatedAt

	expected := record.Precondition()
	if err := record.BeginUnpublish(now); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(ctx, record, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	started := o.clock.Now()
	result, callErr := o.invoke(ctx, conn, record.ExternalProductID, payload)
	platform := conn.Platform

	settleCtx, cancel := o.settleContext(ctx)
	defer cancel()

	expected = record.Precondition()
	if callErr == nil && result.IsSuccess() {
		externalID := result.ExternalID()
		if externalID == "" {
			externalID = *record.ExternalProductID
		}
		if err := record.CompleteUnpublish(externalID, o.clock.Now()); err != nil {
			return nil, err
		}
		if err := o.products.CompareAndSwap(settleCtx, record, expected); err != nil {
			o.logPersistFailure(ctx, record, operationUnpublish, err)
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("persist unpublish result: %w", err)
		}
		o.recorder.RecordAdapterCall(ctx, platform, operationUnpublish, OutcomeSuccess, o.clock.Now().Sub(started))
		o.logger.Info("Published product unpublished",
			zap.String("published_product_id", record.ID.String()),
			zap.String("platform", platform),
		)
		return &SyncOutcome{Record: record, Success: true, ExternalID: externalID}, nil
	}

	failure := classifyFailure("Platform unpublish failed", result, callErr)
	if err := record.AbortUnpublish(previousUpdatedAt); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(settleCtx, record, expected); err != nil {
		o.logPersistFailure(ctx, record, operationUnpublish, err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("restore published state: %w", err)
	}
	o.recorder.RecordAdapterCall(ctx, platform, operationUnpublish, OutcomeFailure, o.clock.Now().Sub(started))
	o.logger.Warn("Platform unpublish failed",
		zap.String("published_product_id", record.ID.String()),
		zap.String("platform", platform),
		zap.String("reason", failure.Message),
	)
	telemetry.RecordError(span, failure)
	return &SyncOutcome{Record: record, Reason: failure.Message}, failure
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (o *SyncOrchestrator) load(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error) {
	record, err := o.products.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !record.BelongsTo(tenantID) {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Published product not found")
	}
	return record, nil
}

func (o *SyncOrchestrator) resolveConnection(ctx context.Context, record *integration.PublishedProduct) (*integration.Connection, error) {
	conn, err := o.connections.FindByIDForTenant(ctx, record.TenantID, record.ConnectionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Connection not found")
		}
		return nil, err
	}
	if !conn.BelongsTo(record.TenantID) || !conn.Active {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Connection not found")
	}
	return conn, nil
}

func (o *SyncOrchestrator) resolveSources(ctx context.Context, record *integration.PublishedProduct) (*integration.Connection, *catalog.MasterProduct, error) {
	conn, err := o.resolveConnection(ctx, record)
	if err != nil {
		return nil, nil, err
	}
	master, err := o.masters.FindByIDForTenant(ctx, record.TenantID, record.MasterProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NewDomainError(shared.CodeNotFound, "Master product not found")
		}
		return nil, nil, err
	}
	if !master.BelongsTo(record.TenantID) {
		return nil, nil, shared.NewDomainError(shared.CodeNotFound, "Master product not found")
	}
	return conn, master, nil
}

func (o *SyncOrchestrator) syncPayload(ctx context.Context, record *integration.PublishedProduct, master *catalog.MasterProduct) integration.ProductPayload {
	imageURL := master.ImageURL
	if o.images != nil && imageURL != "" {
		resolved, err := o.images.ResolveImageURL(ctx, imageURL)
		if err != nil {
			o.logger.Warn("Failed to resolve master image, sending stored value",
				zap.String("master_product_id", master.ID.String()),
				zap.Error(err),
			)
		} else {
			imageURL = resolved
		}
	}
	return BuildSyncPayload(record, master, imageURL)
}

// settleSync calls the adapter for a locked record and writes the terminal state
func (o *SyncOrchestrator) settleSync(
	ctx context.Context,
	record *integration.PublishedProduct,
	conn *integration.Connection,
	payload integration.ProductPayload,
) (*SyncOutcome, error) {
	started := o.clock.Now()
	result, callErr := o.invoke(ctx, conn, record.ExternalProductID, payload)
	now := o.clock.Now()
	platform := conn.Platform

	settleCtx, cancel := o.settleContext(ctx)
	defer cancel()

	expected := record.Precondition()
	if callErr == nil && result.IsSuccess() {
		if err := record.CompleteSync(result.ExternalID(), now); err != nil {
			return nil, err
		}
		if err := o.products.CompareAndSwap(settleCtx, record, expected); err != nil {
			o.logPersistFailure(ctx, record, operationSync, err)
			return nil, fmt.Errorf("persist sync result: %w", err)
		}
		o.recorder.RecordAdapterCall(ctx, platform, operationSync, OutcomeSuccess, now.Sub(started))
		externalID := result.ExternalID()
		if externalID == "" && record.HasExternalID() {
			externalID = *record.ExternalProductID
		}
		o.logger.Info("Published product synced",
			zap.String("published_product_id", record.ID.String()),
			zap.String("platform", platform),
			zap.String("external_id", externalID),
		)
		return &SyncOutcome{Record: record, Success: true, ExternalID: externalID}, nil
	}

	failure := classifyFailure("Platform sync failed", result, callErr)
	if err := record.FailSync(failure.Message, o.policy, now); err != nil {
		return nil, err
	}
	if err := o.products.CompareAndSwap(settleCtx, record, expected); err != nil {
		o.logPersistFailure(ctx, record, operationSync, err)
		return nil, fmt.Errorf("persist sync failure: %w", err)
	}
	o.recorder.RecordAdapterCall(ctx, platform, operationSync, OutcomeFailure, now.Sub(started))
	o.logger.Warn("Platform sync failed",
		zap.String("published_product_id", record.ID.String()),
		zap.String("platform", platform),
		zap.String("reason", failure.Message),
		zap.Int("retry_count", record.RetryCount),
		zap.Timep("next_retry_at", record.NextRetryAt),
	)
	return &SyncOutcome{Record: record, Reason: failure.Message}, failure
}

// recordSettled annotates the operation span with the settled outcome
func recordSettled(span trace.Span, outcome *SyncOutcome, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
	}
	if outcome != nil && outcome.Record != nil && !outcome.Success {
		telemetry.AddEvent(span, "retry_scheduled", "retry_count", outcome.Record.RetryCount)
	}
}

// settleContext detaches the terminal write from the caller. Once the
// platform has been called the record must leave publishing/syncing even if
// the request or sweep that started it is gone.
func (o *SyncOrchestrator) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.persistTimeout)
}

// invoke builds the adapter and runs one bounded call. Construction errors,
// adapter errors, panics and timeouts all come back as error.
func (o *SyncOrchestrator) invoke(
	ctx context.Context,
	conn *integration.Connection,
	externalID *string,
	payload integration.ProductPayload,
) (integration.SyncResult, error) {
	creds := conn.Credentials
	if o.credentials != nil {
		resolved, err := o.credentials.Resolve(ctx, creds)
		if err != nil {
			return integration.SyncResult{}, shared.WrapDomainError(shared.CodeInvalidCredentials,
				fmt.Sprintf("Failed to resolve connection credentials: %v", err), err)
		}
		creds = resolved
	}

	kind, _ := integration.ParsePlatformKind(conn.Platform)
	adapter, err := o.factory.Build(kind, creds)
	if err != nil {
		return integration.SyncResult{}, err
	}

	// The caller's cancellation must not abandon an issued call; only the
	// adapter timeout ends it early.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.adapterTimeout)
	defer cancel()
	return callAdapter(callCtx, adapter, externalID, payload, o.adapterTimeout)
}

type adapterReply struct {
	result integration.SyncResult
	err    error
}

func callAdapter(
	ctx context.Context,
	adapter integration.Integration,
	externalID *string,
	payload integration.ProductPayload,
	timeout time.Duration,
) (integration.SyncResult, error) {
	done := make(chan adapterReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- adapterReply{err: fmt.Errorf("%w: %v", integration.ErrAdapterPanicked, r)}
			}
		}()
		result, err := adapter.UpdateProduct(ctx, externalID, payload)
		done <- adapterReply{result: result, err: err}
	}()

	select {
	case reply := <-done:
		if reply.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return integration.SyncResult{}, fmt.Errorf("%w after %s", integration.ErrPlatformTimeout, timeout)
		}
		return reply.result, reply.err
	case <-ctx.Done():
		return integration.SyncResult{}, fmt.Errorf("%w after %s", integration.ErrPlatformTimeout, timeout)
	}
}

// classifyFailure maps an adapter outcome into the error taxonomy.
// Construction errors keep their own code; everything else is REMOTE_FAILURE.
func classifyFailure(prefix string, result integration.SyncResult, callErr error) *shared.DomainError {
	if callErr == nil {
		return shared.NewDomainError(shared.CodeRemoteFailure, prefix+": "+result.Reason())
	}
	var de *shared.DomainError
	if errors.As(callErr, &de) {
		switch de.Code {
		case shared.CodeUnsupportedPlatform, shared.CodeInvalidCredentials:
			return shared.WrapDomainError(de.Code, de.Message, callErr)
		}
	}
	return shared.WrapDomainError(shared.CodeRemoteFailure, prefix+": "+callErr.Error(), callErr)
}

func (o *SyncOrchestrator) logPersistFailure(ctx context.Context, record *integration.PublishedProduct, operation string, err error) {
	o.logger.Error("Failed to persist terminal state, record left in publishing",
		zap.String("published_product_id", record.ID.String()),
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.String("operation", operation),
		zap.Error(err),
	)
}
