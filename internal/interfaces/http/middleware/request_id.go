// Package middleware provides HTTP middleware for the catalog API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
)

// Request ID keys
const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// MaxRequestIDLength bounds an incoming request ID
const MaxRequestIDLength = 128

// RequestID reuses the caller's X-Request-ID or generates one, echoes it
// back and stores it on both the gin and the request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
