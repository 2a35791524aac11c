package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appintegration "github.com/santi-naranjo/catalog-ai/internal/application/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/dto"
)

// PublishedProductService is the part of the sync orchestrator the HTTP
// layer drives
type PublishedProductService interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error)
	Retry(ctx context.Context, tenantID, id uuid.UUID) (*integration.PublishedProduct, error)
	Sync(ctx context.Context, tenantID, id uuid.UUID) (*appintegration.SyncOutcome, error)
	ForceResync(ctx context.Context, tenantID, id uuid.UUID) (*appintegration.SyncOutcome, error)
	Unpublish(ctx context.Context, tenantID, id uuid.UUID) (*appintegration.SyncOutcome, error)
}

// PublishedProductHandler handles published product lifecycle endpoints
type PublishedProductHandler struct {
	BaseHandler
	service PublishedProductService
}

// NewPublishedProductHandler creates a new PublishedProductHandler
func NewPublishedProductHandler(service PublishedProductService) *PublishedProductHandler {
	return &PublishedProductHandler{service: service}
}

// Get returns a published product
// GET /api/v1/published-products/:id
func (h *PublishedProductHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	record, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.ToPublishedProductResponse(record))
}

// Retry requeues a failed published product
// POST /api/v1/published-products/:id/retry
func (h *PublishedProductHandler) Retry(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	record, err := h.service.Retry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.ToPublishedProductResponse(record))
}

// Sync pushes the master product to the platform
// PUT /api/v1/published-products/:id/sync
func (h *PublishedProductHandler) Sync(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	outcome, err := h.service.Sync(c.Request.Context(), tenantID, id)
	h.respondOutcome(c, outcome, err, "Product synced")
}

// ForceResync re-runs a sync stuck in publishing
// POST /api/v1/published-products/:id/force-resync
func (h *PublishedProductHandler) ForceResync(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	outcome, err := h.service.ForceResync(c.Request.Context(), tenantID, id)
	h.respondOutcome(c, outcome, err, "Product re-synced")
}

// Unpublish deactivates the product on the platform
// DELETE /api/v1/published-products/:id/unpublish
func (h *PublishedProductHandler) Unpublish(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	outcome, err := h.service.Unpublish(c.Request.Context(), tenantID, id)
	h.respondOutcome(c, outcome, err, "Product unpublished")
}

// respondOutcome answers a sync or unpublish. A failed platform call that
// produced an outcome is reported as {success:false, error}; every other
// error goes through the standard envelope.
func (h *PublishedProductHandler) respondOutcome(c *gin.Context, outcome *appintegration.SyncOutcome, err error, message string) {
	if outcome == nil {
		if err == nil {
			err = errors.New("sync returned no outcome")
		}
		h.HandleError(c, err)
		return
	}

	resp := appintegration.ToSyncResponse(outcome, message)
	if outcome.Success && err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	if resp.Error == "" && err != nil {
		resp.Error = err.Error()
	}
	resp.Success = false
	c.JSON(dto.GetHTTPStatus(shared.CodeOf(err)), resp)
}
