package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFields(t *testing.T) {
	t.Run("empty context has no fields", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("request and tenant ids", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		ctx = WithTenantID(ctx, "tenant-1")

		assert.Equal(t, "req-1", GetRequestID(ctx))
		assert.Equal(t, "tenant-1", GetTenantID(ctx))
		assert.Len(t, ContextFields(ctx), 2)
	})

	t.Run("valid span adds trace and span ids", func(t *testing.T) {
		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)
		ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))

		core, recorded := observer.New(zapcore.InfoLevel)
		Enrich(ctx, zap.New(core)).Info("traced")

		entry := recorded.All()[0]
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry.ContextMap()["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", entry.ContextMap()["span_id"])
	})
}

func TestL(t *testing.T) {
	t.Run("falls back to a no-op logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background()).Info("dropped")
		})
	})

	t.Run("uses the context logger with correlation fields", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		ctx := WithContext(context.Background(), zap.New(core))
		ctx = WithTenantID(ctx, "tenant-9")

		L(ctx).Info("hello")

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "tenant-9", recorded.All()[0].ContextMap()["tenant_id"])
	})
}
