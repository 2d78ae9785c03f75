// Package synchronizer keeps the derived property graph consistent with the
// primary triple store.
//
// The Engine subscribes to the primary DAO's transition events. Every
// completed write (SYNCHRONIZING -> READY) queues one pass on a single
// worker, so passes run in write order. A pass publishes
//
//	graph: READY -> SYNCHRONIZING -> READY
//
// under the write's correlation id, or DEGRADED instead of the final READY
// when further passes are already queued. A failed attempt publishes FAILED
// and, when retried, SYNCHRONIZING again under the same id. Once retries are
// exhausted the graph stays FAILED and the next pass is a full rebuild.
//
// Two strategies exist:
//
//   - FullClone streams every primary triple into a private graph and swaps
//     it in under the write lock. Readers never see a partly built graph.
//   - Incremental applies the delta of one write to the live graph under the
//     write lock. Applying a delta twice is harmless.
//
// Both strategies invalidate the per-vertex cache entries of vertices that
// left the graph.
package synchronizer
