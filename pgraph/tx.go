package pgraph

import "github.com/khaller93/es-middleware-sub003/errors"

type undoOp int

const (
	undoAddVertex undoOp = iota
	undoRemoveVertex
	undoAddEdge
	undoRemoveEdge
)

// undo records one applied mutation so Rollback can invert it.
type undo struct {
	op     undoOp
	vertex *Vertex
	edge   Edge
}

// record appends to the journal when a transaction is open. Caller holds g.mu.
func (g *Graph) record(u undo) {
	if g.inTx {
		g.journal = append(g.journal, u)
	}
}

// Begin opens a transaction. Mutations until Commit or Rollback are
// journaled and can be undone.
func (g *Graph) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inTx {
		return errors.WrapInvalid(ErrTxActive, "Graph", "Begin", "open transaction")
	}
	g.inTx = true
	g.journal = g.journal[:0]
	return nil
}

// Commit keeps every mutation made since Begin.
func (g *Graph) Commit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inTx {
		return errors.WrapInvalid(ErrNoTx, "Graph", "Commit", "commit transaction")
	}
	g.inTx = false
	g.journal = nil
	return nil
}

// Rollback reverts every mutation made since Begin, newest first.
func (g *Graph) Rollback() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inTx {
		return errors.WrapInvalid(ErrNoTx, "Graph", "Rollback", "roll back transaction")
	}
	// Stop journaling before replaying inverse operations.
	g.inTx = false
	for i := len(g.journal) - 1; i >= 0; i-- {
		u := g.journal[i]
		switch u.op {
		case undoAddVertex:
			delete(g.vertices, u.vertex.ID)
		case undoRemoveVertex:
			g.vertices[u.vertex.ID] = u.vertex
		case undoAddEdge:
			g.removeEdge(u.edge)
		case undoRemoveEdge:
			g.addEdge(u.edge)
		}
	}
	g.journal = nil
	return nil
}

// InTx reports whether a transaction is open.
func (g *Graph) InTx() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inTx
}
