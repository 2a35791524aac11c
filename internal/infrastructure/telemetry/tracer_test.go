package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, Config{Enabled: false, ServiceName: "catalog-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 1.5, want: "AlwaysOnSampler"},
		{ratio: 0, want: "AlwaysOffSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := samplerFor(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, "root:"+tt.want)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("catalog-test")
	require.NoError(t, err)

	found := false
	for _, attr := range res.Attributes() {
		if attr.Key == "service.name" {
			found = true
			assert.Equal(t, "catalog-test", attr.Value.AsString())
		}
	}
	assert.True(t, found)
}
