// Package integration contains the Integration bounded context.
// This context tracks how master catalog products are published to external
// e-commerce platforms and drives every change through a single state machine.
//
// Key concepts:
//   - Integration: Port interface every platform adapter implements (Shopify, VTEX, MercadoLibre, Amazon)
//   - Connection: Tenant-owned credential set bound to one PlatformKind
//   - PublishedProduct: Entity tracking one master product on one connection
//   - PublicationState: The status/sync-status pair, changed only through the transition table
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
