package integration

import (
	"fmt"
	"time"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// Retry policy names accepted by NewRetryPolicy
const (
	RetryPolicyFixed       = "fixed"
	RetryPolicyExponential = "exponential"
)

// DefaultMaxRetryDelay caps exponential backoff
const DefaultMaxRetryDelay = 30 * time.Minute

// FixedBackoff waits the same interval after every failure
type FixedBackoff struct {
	Interval time.Duration
}

// Delay implements integration.RetryPolicy
func (b FixedBackoff) Delay(int) time.Duration {
	if b.Interval <= 0 {
		return integration.DefaultRetryDelay
	}
	return b.Interval
}

// ExponentialBackoff doubles the delay after each failure up to Max.
// The first failure waits Base.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements integration.RetryPolicy
func (b ExponentialBackoff) Delay(retryCount int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = integration.DefaultRetryDelay
	}
	maxDelay := b.Max
	if maxDelay < base {
		maxDelay = base
	}
	if retryCount < 1 {
		retryCount = 1
	}

	delay := base
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxDelay || delay <= 0 {
			return maxDelay
		}
	}
	return delay
}

// NewRetryPolicy builds a policy by name
func NewRetryPolicy(name string, base, maxDelay time.Duration) (integration.RetryPolicy, error) {
	switch name {
	case "", RetryPolicyFixed:
		return FixedBackoff{Interval: base}, nil
	case RetryPolicyExponential:
		if maxDelay == 0 {
			maxDelay = DefaultMaxRetryDelay
		}
		return ExponentialBackoff{Base: base, Max: maxDelay}, nil
	default:
		return nil, fmt.Errorf("unknown retry policy %q", name)
	}
}
