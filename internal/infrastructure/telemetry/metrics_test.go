package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeterProvider returns a provider backed by a manual reader
func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

// collectMetric returns the named metric from a collection, failing if absent
func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:        false,
		ExportInterval: time.Second,
		ServiceName:    "catalog-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	ctx := context.Background()

	c, err := telemetry.NewCounter(mp.Meter("test"), "test.calls", "calls", "{call}")
	require.NoError(t, err)

	c.Inc(ctx, telemetry.AttrPlatform.String("vtex"))
	c.Add(ctx, 4, telemetry.AttrPlatform.String("vtex"))

	sum, ok := collectMetric(t, reader, "test.calls").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)
}

func TestHistogram_RecordDuration(t *testing.T) {
	mp, reader := newTestMeterProvider(t)

	h, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{
		Name:       "test.duration",
		Unit:       "s",
		Boundaries: telemetry.AdapterDurationBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(context.Background(), 1500*time.Millisecond, attribute.String("k", "v"))

	hist, ok := collectMetric(t, reader, "test.duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, telemetry.AdapterDurationBuckets, hist.DataPoints[0].Bounds)
}
