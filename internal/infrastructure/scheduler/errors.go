package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when stopping a scheduler that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerAlreadyRunning is returned when starting a running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepLockHeld is returned when another process holds the sweep lease
	ErrSweepLockHeld = errors.New("retry sweep lock is held by another process")
)
