package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/auth"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Tenant keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// TokenVerifier validates a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// TenantAuthConfig holds configuration for the tenant middleware
type TenantAuthConfig struct {
	// Verifier validates bearer tokens; nil rejects every token
	Verifier TokenVerifier
	// AllowHeader accepts X-Tenant-ID when no token is sent (development)
	AllowHeader bool
	Logger      *zap.Logger
}

// TenantAuth resolves the caller's tenant from a bearer token, or from
// X-Tenant-ID when AllowHeader is set. Requests without a tenant are
// rejected with 401 UNAUTHORIZED.
func TenantAuth(cfg TenantAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		tenantID, err := resolveTenant(c, cfg)
		if err != nil {
			log.Warn("Tenant resolution failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				shared.CodeUnauthorized, unauthorizedMessage(err), GetRequestID(c),
			))
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

var errNoCredentials = errors.New("no bearer token or tenant header")

func resolveTenant(c *gin.Context, cfg TenantAuthConfig) (uuid.UUID, error) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return uuid.Nil, auth.ErrInvalidToken
		}
		if cfg.Verifier == nil {
			return uuid.Nil, auth.ErrInvalidToken
		}
		identity, err := cfg.Verifier.Verify(strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			return uuid.Nil, err
		}
		return identity.TenantID, nil
	}

	if cfg.AllowHeader {
		if raw := c.GetHeader(TenantHeaderKey); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil || tenantID == uuid.Nil {
				return uuid.Nil, auth.ErrInvalidTenantID
			}
			return tenantID, nil
		}
	}
	return uuid.Nil, errNoCredentials
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, errNoCredentials):
		return "Authentication required"
	default:
		return "Invalid credentials"
	}
}

// GetTenantID returns the tenant resolved by TenantAuth
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
