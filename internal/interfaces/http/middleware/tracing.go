package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns otelgin followed by a handler that adds request_id and
// tenant_id to the server span once the request completes. 5xx responses
// mark the span as failed.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName), enrichSpan}
}

func enrichSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	ctx := c.Request.Context()
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if tenantID := logger.GetTenantID(ctx); tenantID != "" {
		span.SetAttributes(attribute.String(telemetry.SpanAttrTenantID, tenantID))
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
