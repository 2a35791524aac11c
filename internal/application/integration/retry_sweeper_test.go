package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublishedProductFinder is a mock implementation of integration.PublishedProductFinder
type MockPublishedProductFinder struct {
	mock.Mock
}

func (m *MockPublishedProductFinder) FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]*integration.PublishedProduct, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*integration.PublishedProduct), args.Error(1)
}

// MockLifecycle is a mock implementation of Lifecycle
type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) Retry(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PublishedProduct), args.Error(1)
}

func (m *MockLifecycle) Sync(ctx context.Context, tenantID, id uuid.UUID) (*SyncOutcome, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncOutcome), args.Error(1)
}

type countingRecorder struct {
	noopRecorder
	selected, requeued int
}

func (r *countingRecorder) RecordSweep(_ context.Context, selected, requeued int) {
	r.selected += selected
	r.requeued += requeued
}

var sweepNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func failedRecord(t *testing.T, retryCount int, nextRetryAt time.Time) *integration.PublishedProduct {
	t.Helper()
	base, err := integration.NewPublishedProduct(uuid.New(), uuid.New(), uuid.New(), sweepNow.Add(-time.Hour))
	require.NoError(t, err)
	p, err := integration.RehydratePublishedProduct(*base, integration.StatusFailed, integration.SyncStatusFailed)
	require.NoError(t, err)
	p.RetryCount = retryCount
	p.NextRetryAt = &nextRetryAt
	return p
}

func TestRetrySweeper_FindDue(t *testing.T) {
	t.Run("Filters not-yet-due and exhausted records", func(t *testing.T) {
		finder := new(MockPublishedProductFinder)
		due := failedRecord(t, 1, sweepNow.Add(-time.Minute))
		exact := failedRecord(t, 2, sweepNow)
		future := failedRecord(t, 1, sweepNow.Add(time.Minute))
		exhausted := failedRecord(t, 5, sweepNow.Add(-time.Minute))
		finder.On("FindDueForRetry", mock.Anything, sweepNow, 10).
			Return([]*integration.PublishedProduct{due, exact, future, exhausted}, nil)

		s := NewRetrySweeper(finder, new(MockLifecycle), &shared.FixedClock{T: sweepNow},
			RetrySweeperConfig{BatchSize: 10, MaxAttempts: 5}, nil)

		got, err := s.FindDue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []*integration.PublishedProduct{due, exact}, got)
	})

	t.Run("Default batch size", func(t *testing.T) {
		finder := new(MockPublishedProductFinder)
		finder.On("FindDueForRetry", mock.Anything, sweepNow, DefaultSweepBatchSize).Return(nil, nil)

		s := NewRetrySweeper(finder, new(MockLifecycle), &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
		got, err := s.FindDue(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
		finder.AssertExpectations(t)
	})

	t.Run("Store error is wrapped", func(t *testing.T) {
		finder := new(MockPublishedProductFinder)
		storeErr := errors.New("timeout")
		finder.On("FindDueForRetry", mock.Anything, mock.Anything, mock.Anything).Return(nil, storeErr)

		s := NewRetrySweeper(finder, new(MockLifecycle), &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
		_, err := s.FindDue(context.Background())
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestRetrySweeper_RetryOne(t *testing.T) {
	t.Run("Requeues then syncs", func(t *testing.T) {
		p := failedRecord(t, 1, sweepNow)
		lifecycle := new(MockLifecycle)
		lifecycle.On("Retry", mock.Anything, p.TenantID, p.ID).Return(p, nil).Once()
		lifecycle.On("Sync", mock.Anything, p.TenantID, p.ID).Return(&SyncOutcome{Success: true, ExternalID: "E"}, nil).Once()

		s := NewRetrySweeper(new(MockPublishedProductFinder), lifecycle, &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
		outcome, err := s.RetryOne(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		lifecycle.AssertExpectations(t)
	})

	t.Run("Record taken by another worker is skipped", func(t *testing.T) {
		p := failedRecord(t, 1, sweepNow)
		lifecycle := new(MockLifecycle)
		lifecycle.On("Retry", mock.Anything, p.TenantID, p.ID).
			Return(nil, shared.NewDomainError(shared.CodeInvalidState, "Product is not in failed state"))

		s := NewRetrySweeper(new(MockPublishedProductFinder), lifecycle, &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
		_, err := s.RetryOne(context.Background(), p)
		assert.ErrorIs(t, err, ErrRetrySkipped)
		lifecycle.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRetrySweeper_Sweep(t *testing.T) {
	ok := failedRecord(t, 1, sweepNow)
	failing := failedRecord(t, 2, sweepNow)
	taken := failedRecord(t, 1, sweepNow)
	broken := failedRecord(t, 1, sweepNow)

	finder := new(MockPublishedProductFinder)
	finder.On("FindDueForRetry", mock.Anything, sweepNow, DefaultSweepBatchSize).
		Return([]*integration.PublishedProduct{ok, failing, taken, broken}, nil)

	lifecycle := new(MockLifecycle)
	lifecycle.On("Retry", mock.Anything, ok.TenantID, ok.ID).Return(ok, nil)
	lifecycle.On("Sync", mock.Anything, ok.TenantID, ok.ID).Return(&SyncOutcome{Success: true}, nil)
	lifecycle.On("Retry", mock.Anything, failing.TenantID, failing.ID).Return(failing, nil)
	lifecycle.On("Sync", mock.Anything, failing.TenantID, failing.ID).
		Return(&SyncOutcome{Reason: "Platform sync failed: 500"}, shared.ErrRemoteFailure)
	lifecycle.On("Retry", mock.Anything, taken.TenantID, taken.ID).Return(nil, shared.ErrInvalidState)
	lifecycle.On("Retry", mock.Anything, broken.TenantID, broken.ID).Return(broken, nil)
	lifecycle.On("Sync", mock.Anything, broken.TenantID, broken.ID).Return(nil, shared.ErrNotFound)

	recorder := &countingRecorder{}
	s := NewRetrySweeper(finder, lifecycle, &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
	s.SetRecorder(recorder)

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Selected: 4, Requeued: 2, Synced: 1, Failed: 2, Skipped: 1}, report)
	assert.Equal(t, 4, recorder.selected)
	assert.Equal(t, 2, recorder.requeued)
}

func TestRetrySweeper_Sweep_StopsOnCancelledContext(t *testing.T) {
	finder := new(MockPublishedProductFinder)
	finder.On("FindDueForRetry", mock.Anything, mock.Anything, mock.Anything).
		Return([]*integration.PublishedProduct{failedRecord(t, 1, sweepNow)}, nil)
	lifecycle := new(MockLifecycle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewRetrySweeper(finder, lifecycle, &shared.FixedClock{T: sweepNow}, RetrySweeperConfig{}, nil)
	report, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Selected)
	lifecycle.AssertNotCalled(t, "Retry", mock.Anything, mock.Anything, mock.Anything)
}
