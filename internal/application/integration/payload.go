package integration

import (
	"time"

	"github.com/santi-naranjo/catalog-ai/internal/domain/catalog"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
)

// InactiveMarker prefixes the description sent when a product is unpublished
const InactiveMarker = "[INACTIVE] "

// Payload metadata keys computed by the service
const (
	MetaBasePrice     = "base_price"
	MetaImageURL      = "image_url"
	MetaStatus        = "status"
	MetaUnpublishedAt = "unpublished_at"
)

// BuildSyncPayload assembles the outbound payload for a sync.
// Overrides win over master fields when non-empty. Metadata is merged from
// master attributes, then platform metadata, then computed fields.
// An empty imageURL removes image_url from the merged metadata.
func BuildSyncPayload(record *integration.PublishedProduct, master *catalog.MasterProduct, imageURL string) integration.ProductPayload {
	name := master.Name
	if record.Overrides.Name != "" {
		name = record.Overrides.Name
	}
	description := master.Description
	if record.Overrides.Description != "" {
		description = record.Overrides.Description
	}

	metadata := master.AttributesCopy()
	for k, v := range record.PlatformMetadata {
		metadata[k] = v
	}
	metadata[MetaBasePrice] = master.BasePrice
	if imageURL != "" {
		metadata[MetaImageURL] = imageURL
	} else {
		delete(metadata, MetaImageURL)
	}

	return integration.ProductPayload{
		Name:        name,
		Description: description,
		Metadata:    metadata,
	}
}

// BuildUnpublishPayload assembles the inactive-marker payload. The name is
// left empty so the platform keeps the current one.
func BuildUnpublishPayload(record *integration.PublishedProduct, now time.Time) integration.ProductPayload {
	metadata := record.MetadataCopy()
	metadata[MetaStatus] = "inactive"
	metadata[MetaUnpublishedAt] = now.Format(time.RFC3339)

	return integration.ProductPayload{
		Description: InactiveMarker + record.Overrides.Description,
		Metadata:    metadata,
	}
}
