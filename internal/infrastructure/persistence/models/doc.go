// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: shared columns (BaseModel, TenantModel)
// - published_product.go: published_products, one row per product per connection
// - master_product.go: master_products, the tenant's canonical catalog
// - tenant_connection.go: tenant_connections, stored platform credentials
package models
