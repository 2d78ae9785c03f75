// Package esm keeps derived representations of an RDF knowledge graph
// consistent with the primary triple store they are built from, and reports
// the consistency status of every representation.
//
// # Architecture
//
// The primary store is the single source of truth. Every write to it is
// announced with a correlation id, and the derived data access objects (DAOs)
// catch up asynchronously:
//
//	┌─────────────────────────────────────┐
//	│          Primary store              │  Boot, Apply, Export
//	│   (memory or badger, change log)    │  Correlation ids
//	└─────────────────────────────────────┘
//	           ↓ change notifications
//	┌─────────────────────────────────────┐
//	│     Synchronization engine          │  Full / incremental passes
//	│   (single ordered worker, retry)    │  Sync task history
//	└─────────────────────────────────────┘
//	           ↓ coordinator session
//	┌─────────────────────────────────────┐
//	│   Property graph + analytic cache   │  Commit / rollback together
//	└─────────────────────────────────────┘
//
// The full-text index follows the same notifications independently. Every
// DAO publishes status transitions (UNINITIALIZED, BOOTING, SYNCHRONIZING,
// READY, DEGRADED, FAILED) on the in-process event bus; the bridge forwards
// them to NATS for out-of-process observers.
//
// # Packages
//
//   - rdf, pgs, pgraph: triples, the graph schema and the property graph
//   - primary: the authoritative triple store and its change log
//   - status, event, health: the status model, the event bus and health
//   - coordinator, kvcache: transactional sessions over derived resources
//   - synchronizer, fulltext, analytics: the derived DAOs
//   - access: status-gated reads
//   - config, service, cmd/esm: configuration, runtime wiring and the CLI
//
// # Getting Started
//
//	esm validate -c esm.yaml
//	esm sync -c esm.yaml --seed wine.nt
//	esm serve -c esm.yaml --addr :8080
package esm
