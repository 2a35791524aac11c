package ecommerce

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// Metadata keys the adapters understand
const (
	metaBasePrice  = "base_price"
	metaImageURL   = "image_url"
	metaStatus     = "status"
	metaSKU        = "sku"
	metaCategoryID = "category_id"
	metaBrandID    = "brand_id"
	metaVendor     = "vendor"
	metaCurrency   = "currency"
	metaQuantity   = "quantity"
	metaTags       = "tags"
	metaProduct    = "product_type"

	statusInactive = "inactive"
)

// metaString reads a metadata value as a string
func metaString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// metaDecimal reads a metadata value as a decimal
func metaDecimal(m map[string]any, key string) (decimal.Decimal, bool) {
	switch v := m[key].(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// metaInt reads a metadata value as an integer
func metaInt(m map[string]any, key string) (int64, bool) {
	d, ok := metaDecimal(m, key)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

// isInactive reports whether the payload carries the inactive marker
func isInactive(p integration.ProductPayload) bool {
	return metaString(p.Metadata, metaStatus) == statusInactive
}
