// Package core provides the generic CRUD engine for catalog entities.
//
// This package holds the domain logic independent of any UI or transport
// layer. It can be driven by the HTTP server, the CLI, or tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Entity Definitions: Registered via the registry, each entity has a
//     collection, an optional uniqueness key-set and required fields.
//   - Model: The storage collection contract implemented by the store packages.
//   - Wrapper: Runs a handler and shapes its outcome into the bitacora envelope.
//   - Registrar: Installs READ/CREATE/UPDATE/DELETE handlers on a [Dispatcher].
//
// # Registration
//
// Entities are wired at startup using [RegisterCRUD]:
//
//	model := store.Model("instruments")
//	core.RegisterCRUD(handlers, core.Entity{Name: "Instruments"}, model, wrapper, core.Options{
//	    UniqueCheck: core.Unique(model, core.KeyFields("ib_conid"), "ib_conid already exists"),
//	})
//
// # Identifiers
//
// Callers see records with an "ID" field. Storage uses "_id" plus a "__v"
// revision field. [ToExternal] and [ToInternal] convert between the two; the
// revision never leaves the engine.
//
// # Error Handling
//
// Handlers return errors; the wrapper turns them into failure envelopes. The
// envelope status comes from [StatusOf]:
//
//   - *Error carries its own status (400 validation, 404 not found, 409 conflict)
//   - Storage duplicate-key text maps to 409
//   - Anything else is 500
//
// The wrapper never returns an error and never panics.
package core
