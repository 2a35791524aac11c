package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasterProduct(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tenantID := uuid.New()

	t.Run("Valid product", func(t *testing.T) {
		p, err := NewMasterProduct(tenantID, "Linen Shirt", "Breathable", decimal.RequireFromString("49.90"), now)
		require.NoError(t, err)
		assert.Equal(t, tenantID, p.TenantID)
		assert.True(t, p.BelongsTo(tenantID))
		assert.Equal(t, "49.9", p.BasePrice.String())
		assert.NotNil(t, p.Attributes)
		assert.Equal(t, now, p.CreatedAt)
	})

	t.Run("Blank name", func(t *testing.T) {
		_, err := NewMasterProduct(tenantID, "  ", "", decimal.Zero, now)
		assert.ErrorIs(t, err, ErrMasterProductInvalidName)
	})

	t.Run("Negative price", func(t *testing.T) {
		_, err := NewMasterProduct(tenantID, "Shirt", "", decimal.NewFromInt(-1), now)
		assert.ErrorIs(t, err, ErrMasterProductInvalidPrice)
	})

	t.Run("AttributesCopy is detached", func(t *testing.T) {
		p, err := NewMasterProduct(tenantID, "Shirt", "", decimal.Zero, now)
		require.NoError(t, err)
		p.Attributes["color"] = "blue"
		cp := p.AttributesCopy()
		cp["color"] = "red"
		assert.Equal(t, "blue", p.Attributes["color"])
	})
}
