// Package pgraph is the in-memory property graph that holds the derived
// view of the primary triple store.
//
// Graph stores vertices keyed by identity and labelled directed edges with
// in and out adjacency. Each mutation is atomic on its own, so readers that
// bypass the coordinator see a consistent graph between operations but may
// observe a synchronization pass half applied.
//
// Graph supports an undo journal (Begin, Commit, Rollback). Handle wraps
// the live graph for the coordinator: in-place edits roll back through the
// journal, and a graph installed with Swap is discarded on rollback.
//
//	h := pgraph.NewHandle(nil)
//	_ = h.Begin(ctx)
//	h.Graph().AddVertex(op)
//	_ = h.Rollback(ctx) // graph is back to its state at Begin
package pgraph
