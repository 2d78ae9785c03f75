// Package service wires the synchronization middleware into one Runtime and
// exposes it over HTTP.
//
// A Runtime is built from a validated config.Config. New constructs every
// component without side effects; Start follows the boot order:
//
//  1. subscribe the health monitor and the NATS bridge to the event bus
//  2. start the synchronization engine, the full-text updater and the
//     PageRank job
//  3. boot the primary store from the seed file
//  4. boot the derived graph and the full-text index in parallel
//
// Stop tears the components down in reverse order and is idempotent.
//
// # HTTP Surface
//
//	GET    /healthz              liveness
//	GET    /readyz               200 when every DAO is healthy
//	GET    /health               aggregated health with per-DAO sub-statuses
//	GET    /status               DAO statuses, sync tasks and history
//	GET    /metrics              Prometheus scrape endpoint
//	POST   /triples[?wait=true]  add N-Triples to the primary store
//	DELETE /triples[?wait=true]  remove N-Triples from the primary store
//	GET    /triples              export the primary store
//	POST   /sync                 force a full resynchronization
//	GET    /graph/vertex?id=     one vertex with its edges and PageRank
//	GET    /search?q=&limit=     full-text search
//
// Reads of a DAO go through access.Gate: only READY and SYNCHRONIZING DAOs
// are served, anything else answers 503 with Retry-After. With wait=true a
// write returns once the graph has reached a terminal status for the write's
// correlation id.
package service
