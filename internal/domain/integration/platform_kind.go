package integration

import (
	"strings"

	"golang.org/x/text/cases"
)

// ---------------------------------------------------------------------------
// PlatformKind identifies the external platform a connection targets
// ---------------------------------------------------------------------------

// PlatformKind identifies the external platform a connection targets.
// The set is closed: adding a platform means adding a constant here and a
// case to every exhaustive switch over PlatformKind.
type PlatformKind string

const (
	// PlatformShopify is the Shopify storefront Admin API
	PlatformShopify PlatformKind = "shopify"
	// PlatformVTEX is the VTEX storefront catalog API
	PlatformVTEX PlatformKind = "vtex"
	// PlatformMercadoLibre is the MercadoLibre marketplace
	PlatformMercadoLibre PlatformKind = "mercadolibre"
	// PlatformAmazon is the Amazon Selling Partner marketplace
	PlatformAmazon PlatformKind = "amazon"
)

// AllPlatformKinds returns every supported platform kind
func AllPlatformKinds() []PlatformKind {
	return []PlatformKind{PlatformShopify, PlatformVTEX, PlatformMercadoLibre, PlatformAmazon}
}

// ParsePlatformKind normalizes a stored platform identifier.
// Matching is case-insensitive; unknown identifiers return false.
func ParsePlatformKind(s string) (PlatformKind, bool) {
	kind := PlatformKind(cases.Fold().String(strings.TrimSpace(s)))
	return kind, kind.IsValid()
}

// IsValid returns true if the platform kind is supported
func (k PlatformKind) IsValid() bool {
	switch k {
	case PlatformShopify, PlatformVTEX, PlatformMercadoLibre, PlatformAmazon:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformKind
func (k PlatformKind) String() string {
	return string(k)
}

// DisplayName returns a human-readable name for the platform
func (k PlatformKind) DisplayName() string {
	switch k {
	case PlatformShopify:
		return "Shopify"
	case PlatformVTEX:
		return "VTEX"
	case PlatformMercadoLibre:
		return "MercadoLibre"
	case PlatformAmazon:
		return "Amazon"
	default:
		return string(k)
	}
}

// IsMarketplace reports whether the platform is a marketplace rather than a
// merchant-owned storefront
func (k PlatformKind) IsMarketplace() bool {
	return k == PlatformMercadoLibre || k == PlatformAmazon
}
