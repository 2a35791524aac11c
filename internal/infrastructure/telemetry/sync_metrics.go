package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the instrumentation scope of the sync instruments.
const SyncMetricsMeterName = "catalog-ai/sync"

// SyncMetrics records outbound platform calls and retry sweeps.
type SyncMetrics struct {
	calls    *Counter
	duration *Histogram
	selected *Counter
	requeued *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	calls, err := NewCounter(meter, "published_product.sync.total",
		"Outbound platform calls by platform, operation and outcome", "{call}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "published_product.sync.duration",
		Description: "Duration of outbound platform calls",
		Unit:        "s",
		Boundaries:  AdapterDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	selected, err := NewCounter(meter, "published_product.retry.selected",
		"Records selected by the retry sweep", "{record}")
	if err != nil {
		return nil, err
	}
	requeued, err := NewCounter(meter, "published_product.retry.swept",
		"Records moved back to the queue by the retry sweep", "{record}")
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		calls:    calls,
		duration: duration,
		selected: selected,
		requeued: requeued,
	}, nil
}

// RecordAdapterCall counts one platform call and records its duration.
func (m *SyncMetrics) RecordAdapterCall(ctx context.Context, platform, operation, outcome string, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	}
	m.calls.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs[:2]...)
}

// RecordSweep records the outcome of one retry sweep.
func (m *SyncMetrics) RecordSweep(ctx context.Context, selected, requeued int) {
	m.selected.Add(ctx, int64(selected))
	m.requeued.Add(ctx, int64(requeued))
}
