package pgraph

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/khaller93/es-middleware-sub003/errors"
)

// ResourceName is the name the handle reports to the coordinator.
const ResourceName = "graph"

// Handle owns the live graph. Readers load the current graph without
// locking; a full rebuild replaces it with Swap. Handle takes part in
// coordinated transactions: Rollback undoes in-place edits and restores
// the graph that was live at Begin.
type Handle struct {
	current atomic.Pointer[Graph]

	mu   sync.Mutex
	base *Graph
}

// NewHandle returns a handle serving g. A nil g starts with an empty graph.
func NewHandle(g *Graph) *Handle {
	if g == nil {
		g = New()
	}
	h := &Handle{}
	h.current.Store(g)
	return h
}

// Graph returns the live graph.
func (h *Handle) Graph() *Graph {
	return h.current.Load()
}

// Store returns the live graph as a Store.
func (h *Handle) Store() Store {
	return h.current.Load()
}

// Swap makes next the live graph and returns the graph it replaced.
func (h *Handle) Swap(next *Graph) *Graph {
	return h.current.Swap(next)
}

// Name implements the coordinator resource contract.
func (h *Handle) Name() string { return ResourceName }

// Begin opens a transaction on the live graph.
func (h *Handle) Begin(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.base != nil {
		return errors.WrapInvalid(ErrTxActive, "Handle", "Begin", "open graph transaction")
	}
	g := h.current.Load()
	if err := g.Begin(); err != nil {
		return err
	}
	h.base = g
	return nil
}

// Commit keeps the live graph, including a graph installed by Swap.
func (h *Handle) Commit(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.base == nil {
		return errors.WrapInvalid(ErrNoTx, "Handle", "Commit", "commit graph transaction")
	}
	err := h.base.Commit()
	h.base = nil
	return err
}

// Rollback restores the graph that was live at Begin, with its in-place
// edits undone.
func (h *Handle) Rollback(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.base == nil {
		return errors.WrapInvalid(ErrNoTx, "Handle", "Rollback", "roll back graph transaction")
	}
	err := h.base.Rollback()
	h.current.Store(h.base)
	h.base = nil
	return err
}
