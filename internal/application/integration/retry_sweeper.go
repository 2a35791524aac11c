package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultSweepBatchSize is how many due records one sweep picks up
const DefaultSweepBatchSize = 100

// ErrRetrySkipped reports a due record another worker already took
var ErrRetrySkipped = errors.New("integration: retry skipped, record changed state")

// Lifecycle is the subset of the orchestrator the sweeper drives
type Lifecycle interface {
	Retry(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error)
	Sync(ctx context.Context, tenantID, id uuid.UUID) (*SyncOutcome, error)
}

// SweepReport summarizes one sweep
type SweepReport struct {
	Selected int
	Requeued int
	Synced   int
	Failed   int
	Skipped  int
}

// RetrySweeperConfig holds sweeper settings
type RetrySweeperConfig struct {
	BatchSize int
	// MaxAttempts stops automatic retries once RetryCount reaches it. 0 means unlimited.
	MaxAttempts int
}

// RetrySweeper finds failed records whose retry time has come and runs the
// manual-retry transition followed by a sync for each
type RetrySweeper struct {
	finder    integration.PublishedProductFinder
	lifecycle Lifecycle
	clock     shared.Clock
	recorder  SyncRecorder
	logger    *zap.Logger
	config    RetrySweeperConfig
}

// NewRetrySweeper creates a new RetrySweeper
func NewRetrySweeper(
	finder integration.PublishedProductFinder,
	lifecycle Lifecycle,
	clock shared.Clock,
	config RetrySweeperConfig,
	logger *zap.Logger,
) *RetrySweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweepBatchSize
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrySweeper{
		finder:    finder,
		lifecycle: lifecycle,
		clock:     clock,
		recorder:  noopRecorder{},
		logger:    logger,
		config:    config,
	}
}

// SetRecorder sets the metrics sink
func (s *RetrySweeper) SetRecorder(r SyncRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// FindDue returns the records eligible for an automatic retry now
func (s *RetrySweeper) FindDue(ctx context.Context) ([]*integration.PublishedProduct, error) {
	now := s.clock.Now()
	candidates, err := s.finder.FindDueForRetry(ctx, now, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find due published products: %w", err)
	}

	due := make([]*integration.PublishedProduct, 0, len(candidates))
	for _, p := range candidates {
		if !p.IsDueForRetry(now) {
			continue
		}
		if s.config.MaxAttempts > 0 && p.RetryCount >= s.config.MaxAttempts {
			continue
		}
		due = append(due, p)
	}
	return due, nil
}

// RetryOne requeues and syncs a single due record.
// It returns ErrRetrySkipped when the record is no longer failed.
func (s *RetrySweeper) RetryOne(ctx context.Context, p *integration.PublishedProduct) (*SyncOutcome, error) {
	if _, err := s.lifecycle.Retry(ctx, p.TenantID, p.ID); err != nil {
		if errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrNotFound) {
			return nil, ErrRetrySkipped
		}
		return nil, err
	}
	return s.lifecycle.Sync(ctx, p.TenantID, p.ID)
}

// Sweep processes every due record sequentially
func (s *RetrySweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	due, err := s.FindDue(ctx)
	if err != nil {
		return report, err
	}
	report.Selected = len(due)

	for _, p := range due {
		if ctx.Err() != nil {
			break
		}
		s.Tally(&report, p, s.runOne(ctx, p))
	}

	s.recorder.RecordSweep(ctx, report.Selected, report.Requeued)
	if report.Selected > 0 {
		s.logger.Info("Retry sweep finished",
			zap.Int("selected", report.Selected),
			zap.Int("requeued", report.Requeued),
			zap.Int("synced", report.Synced),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
		)
	}
	return report, nil
}

// RetryResult is the outcome of one RetryOne call
type RetryResult struct {
	Outcome *SyncOutcome
	Err     error
}

func (s *RetrySweeper) runOne(ctx context.Context, p *integration.PublishedProduct) RetryResult {
	outcome, err := s.RetryOne(ctx, p)
	return RetryResult{Outcome: outcome, Err: err}
}

// Tally folds one result into report and logs unexpected errors
func (s *RetrySweeper) Tally(report *SweepReport, p *integration.PublishedProduct, r RetryResult) {
	switch {
	case errors.Is(r.Err, ErrRetrySkipped):
		report.Skipped++
	case r.Outcome != nil && r.Outcome.Success:
		report.Requeued++
		report.Synced++
	case r.Outcome != nil:
		report.Requeued++
		report.Failed++
	case r.Err != nil:
		// Requeued but the sync never reached the adapter, or the retry
		// itself failed to persist.
		report.Failed++
		s.logger.Error("Automatic retry failed",
			zap.String("published_product_id", p.ID.String()),
			zap.String("tenant_id", p.TenantID.String()),
			zap.Error(r.Err),
		)
	}
}
