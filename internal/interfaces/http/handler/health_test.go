package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	newRouter := func(checks map[string]HealthCheck) *gin.Engine {
		h := NewHealthHandler(checks)
		r := gin.New()
		r.GET("/health", h.Health)
		r.GET("/ready", h.Ready)
		return r
	}

	t.Run("liveness ignores checks", func(t *testing.T) {
		r := newRouter(map[string]HealthCheck{
			"database": func(context.Context) error { return errors.New("down") },
		})
		rec := doRequest(r, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("ready when every check passes", func(t *testing.T) {
		r := newRouter(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return nil },
		})
		rec := doRequest(r, http.MethodGet, "/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, rec.Body.String())
	})

	t.Run("unavailable when a check fails", func(t *testing.T) {
		r := newRouter(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		rec := doRequest(r, http.MethodGet, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","redis":"dial tcp: refused"}}`, rec.Body.String())
	})
}
