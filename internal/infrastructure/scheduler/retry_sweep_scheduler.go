package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appintegration "github.com/santi-naranjo/catalog-ai/internal/application/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Sweeper is the part of the retry sweeper the scheduler fans out
type Sweeper interface {
	FindDue(ctx context.Context) ([]*integration.PublishedProduct, error)
	RetryOne(ctx context.Context, p *integration.PublishedProduct) (*appintegration.SyncOutcome, error)
	Tally(report *appintegration.SweepReport, p *integration.PublishedProduct, r appintegration.RetryResult)
}

// SweepLock is a lease shared by every process running the scheduler.
// Acquire reports ok=false when another holder owns key.
type SweepLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RetrySweepSchedulerConfig holds configuration for the retry sweep loop
type RetrySweepSchedulerConfig struct {
	// Interval between sweeps
	Interval time.Duration
	// Workers is the number of records retried concurrently
	Workers int
	// LockKey names the lease; ignored without a SweepLock
	LockKey string
	// LockTTL bounds how long one sweep may hold the lease
	LockTTL time.Duration
}

// DefaultRetrySweepSchedulerConfig returns default configuration
func DefaultRetrySweepSchedulerConfig() RetrySweepSchedulerConfig {
	return RetrySweepSchedulerConfig{
		Interval: time.Minute,
		Workers:  4,
		LockKey:  "catalog:retry-sweep:lock",
		LockTTL:  2 * time.Minute,
	}
}

// Validate validates the configuration
func (c *RetrySweepSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%w: lock ttl must be positive", ErrInvalidConfig)
	}
	if c.LockKey == "" {
		return fmt.Errorf("%w: lock key is required", ErrInvalidConfig)
	}
	return nil
}

// RetrySweepScheduler runs the retry sweep on a ticker. Each tick takes the
// shared lease, selects due records and retries them on a bounded pool.
type RetrySweepScheduler struct {
	config   RetrySweepSchedulerConfig
	sweeper  Sweeper
	lock     SweepLock
	recorder appintegration.SyncRecorder
	logger   *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewRetrySweepScheduler creates a new scheduler. lock may be nil when a
// single process runs the sweep.
func NewRetrySweepScheduler(
	config RetrySweepSchedulerConfig,
	sweeper Sweeper,
	lock SweepLock,
	recorder appintegration.SyncRecorder,
	log *zap.Logger,
) (*RetrySweepScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sweeper == nil {
		return nil, fmt.Errorf("%w: sweeper is required", ErrInvalidConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetrySweepScheduler{
		config:   config,
		sweeper:  sweeper,
		lock:     lock,
		recorder: recorder,
		logger:   log.Named("retry_sweep"),
	}, nil
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *RetrySweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	go s.loop(ctx, s.done)

	s.logger.Info("Retry sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("workers", s.config.Workers),
	)
	return nil
}

// Stop cancels the loop and waits for the in-progress sweep, bounded by ctx
func (s *RetrySweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		s.logger.Info("Retry sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Retry sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *RetrySweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *RetrySweepScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.RunOnce(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
			case errors.Is(err, ErrSweepLockHeld):
				s.logger.Debug("Retry sweep skipped, lease held elsewhere")
			default:
				s.logger.Error("Retry sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep under the lease. It returns
// ErrSweepLockHeld without touching any record when another process holds it.
func (s *RetrySweepScheduler) RunOnce(ctx context.Context) (appintegration.SweepReport, error) {
	var report appintegration.SweepReport

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.LockTTL)
	defer cancel()

	if s.lock != nil {
		token, ok, err := s.lock.Acquire(sweepCtx, s.config.LockKey, s.config.LockTTL)
		if err != nil {
			return report, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			return report, ErrSweepLockHeld
		}
		defer func() {
			// the sweep context may already be done; release on a fresh one
			releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer releaseCancel()
			if err := s.lock.Release(releaseCtx, s.config.LockKey, token); err != nil {
				s.logger.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	due, err := s.sweeper.FindDue(sweepCtx)
	if err != nil {
		return report, err
	}
	report.Selected = len(due)
	if len(due) == 0 {
		s.record(ctx, report)
		return report, nil
	}

	s.fanOut(sweepCtx, due, &report)
	s.record(ctx, report)

	s.logger.Info("Retry sweep finished",
		zap.Int("selected", report.Selected),
		zap.Int("requeued", report.Requeued),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

type retryDone struct {
	product *integration.PublishedProduct
	result  appintegration.RetryResult
}

// fanOut retries due on the worker pool and tallies results on the caller's
// goroutine, so report needs no locking.
func (s *RetrySweepScheduler) fanOut(ctx context.Context, due []*integration.PublishedProduct, report *appintegration.SweepReport) {
	jobs := make(chan *integration.PublishedProduct)
	results := make(chan retryDone)

	workers := s.config.Workers
	if workers > len(due) {
		workers = len(due)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				workerCtx := logger.WithTenantID(ctx, p.TenantID.String())
				outcome, err := s.sweeper.RetryOne(workerCtx, p)
				results <- retryDone{product: p, result: appintegration.RetryResult{Outcome: outcome, Err: err}}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range due {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		s.sweeper.Tally(report, r.product, r.result)
	}
}

func (s *RetrySweepScheduler) record(ctx context.Context, report appintegration.SweepReport) {
	if s.recorder != nil {
		s.recorder.RecordSweep(ctx, report.Selected, report.Requeued)
	}
}
