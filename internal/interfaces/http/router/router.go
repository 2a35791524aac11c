// Package router assembles the gin engine for the catalog API.
package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/dto"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/handler"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Config holds everything the router wires together
type Config struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	TenantAuth     middleware.TenantAuthConfig
	TrustedProxies []string

	PublishedProducts *handler.PublishedProductHandler
	Health            *handler.HealthHandler
}

// New builds the engine. Middleware order: panic recovery, request ID,
// tracing, access log; tenant resolution applies to /api/v1 only.
func New(cfg Config) (*gin.Engine, error) {
	if cfg.PublishedProducts == nil || cfg.Health == nil {
		return nil, fmt.Errorf("router: published product and health handlers are required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("router: trusted proxies: %w", err)
	}

	engine.Use(logger.Recovery(log), middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(logger.GinMiddleware(log))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeRouteNotFound), dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeMethodNotAllowed), dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed, "Method not allowed", middleware.GetRequestID(c)))
	})

	engine.GET("/health", cfg.Health.Health)
	engine.GET("/ready", cfg.Health.Ready)

	tenantAuth := cfg.TenantAuth
	if tenantAuth.Logger == nil {
		tenantAuth.Logger = log
	}
	v1 := engine.Group("/api/v1", middleware.TenantAuth(tenantAuth))
	{
		products := v1.Group("/published-products")
		products.GET("/:id", cfg.PublishedProducts.Get)
		products.POST("/:id/retry", cfg.PublishedProducts.Retry)
		products.PUT("/:id/sync", cfg.PublishedProducts.Sync)
		products.POST("/:id/force-resync", cfg.PublishedProducts.ForceResync)
		products.DELETE("/:id/unpublish", cfg.PublishedProducts.Unpublish)
	}

	return engine, nil
}
