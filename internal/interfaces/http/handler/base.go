// Package handler holds the gin handlers of the catalog API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/dto"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status code from the error code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// HandleError converts domain errors to HTTP responses. Anything else is
// logged and reported as an internal error without its details.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != shared.CodeInternal {
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	_ = c.Error(err)
	h.Error(c, shared.CodeInternal, "An unexpected error occurred")
}

// tenantAndID returns the caller's tenant and the :id path parameter. It
// writes the error response and returns ok=false when either is missing.
func (h *BaseHandler) tenantAndID(c *gin.Context) (tenantID, id uuid.UUID, ok bool) {
	tenantID, found := middleware.GetTenantID(c)
	if !found {
		h.Error(c, shared.CodeUnauthorized, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid published product ID format")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid published product ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
