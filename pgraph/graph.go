package pgraph

import (
	stderrors "errors"
	"maps"
	"slices"
	"sync"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/pgs"
)

// Errors returned by graph operations
var (
	ErrVertexNotFound = stderrors.New("vertex not found")
	ErrTxActive       = stderrors.New("transaction already active")
	ErrNoTx           = stderrors.New("no active transaction")
)

// Direction selects which incident edges a traversal follows
type Direction int

const (
	// Outgoing follows edges leaving the vertex
	Outgoing Direction = iota
	// Incoming follows edges entering the vertex
	Incoming
	// Both follows edges in either direction
	Both
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Vertex is a property graph vertex. Values returned by the graph are copies.
type Vertex struct {
	ID         string            `json:"id"`
	Kind       pgs.VertexKind    `json:"kind"`
	Properties map[string]string `json:"properties"`
}

// Edge is a labelled, directed edge. An edge is identified by all three
// fields, so two triples with the same subject, predicate and object map
// to one edge.
type Edge struct {
	From  string `json:"from"`
	Label string `json:"label"`
	To    string `json:"to"`
}

// Store is the vertex/edge abstraction the synchronization strategies and
// analytics are written against. Every method is atomic on its own.
type Store interface {
	AddVertex(op pgs.VertexOp) bool
	RemoveVertex(id string) bool
	AddEdge(e Edge) (bool, error)
	RemoveEdge(e Edge) bool

	Vertex(id string) (Vertex, bool)
	HasEdge(e Edge) bool
	Edges(id string, dir Direction) []Edge
	Neighbors(id string, dir Direction) []string
	Degree(id string) int
	VertexIDs() []string
	VertexCount() int
	EdgeCount() int
}

// Graph is an in-memory property graph. It implements Store.
type Graph struct {
	mu       sync.RWMutex
	vertices map[string]*Vertex
	out      map[string]map[Edge]struct{}
	in       map[string]map[Edge]struct{}
	edges    int

	journal []undo
	inTx    bool
}

var _ Store = (*Graph)(nil)

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]*Vertex),
		out:      make(map[string]map[Edge]struct{}),
		in:       make(map[string]map[Edge]struct{}),
	}
}

// AddVertex creates the vertex described by op and reports whether it was
// created. An existing vertex with the same identity is left unchanged.
func (g *Graph) AddVertex(op pgs.VertexOp) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addVertex(&Vertex{ID: op.ID, Kind: op.Kind, Properties: maps.Clone(op.Properties)})
}

func (g *Graph) addVertex(v *Vertex) bool {
	if _, ok := g.vertices[v.ID]; ok {
		return false
	}
	g.vertices[v.ID] = v
	g.record(undo{op: undoAddVertex, vertex: v})
	return true
}

// RemoveVertex deletes a vertex and all its incident edges and reports
// whether it existed.
func (g *Graph) RemoveVertex(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.vertices[id]
	if !ok {
		return false
	}
	for e := range g.out[id] {
		g.removeEdge(e)
	}
	for e := range g.in[id] {
		g.removeEdge(e)
	}
	delete(g.vertices, id)
	delete(g.out, id)
	delete(g.in, id)
	g.record(undo{op: undoRemoveVertex, vertex: v})
	return true
}

// AddEdge inserts e and reports whether it was created. Both endpoints
// must exist.
func (g *Graph) AddEdge(e Edge) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.vertices[e.From]; !ok {
		return false, errors.WrapInvalid(ErrVertexNotFound, "Graph", "AddEdge", "resolve source "+e.From)
	}
	if _, ok := g.vertices[e.To]; !ok {
		return false, errors.WrapInvalid(ErrVertexNotFound, "Graph", "AddEdge", "resolve target "+e.To)
	}
	return g.addEdge(e), nil
}

func (g *Graph) addEdge(e Edge) bool {
	if _, ok := g.out[e.From][e]; ok {
		return false
	}
	if g.out[e.From] == nil {
		g.out[e.From] = make(map[Edge]struct{})
	}
	if g.in[e.To] == nil {
		g.in[e.To] = make(map[Edge]struct{})
	}
	g.out[e.From][e] = struct{}{}
	g.in[e.To][e] = struct{}{}
	g.edges++
	g.record(undo{op: undoAddEdge, edge: e})
	return true
}

// RemoveEdge deletes e and reports whether it existed.
func (g *Graph) RemoveEdge(e Edge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeEdge(e)
}

func (g *Graph) removeEdge(e Edge) bool {
	if _, ok := g.out[e.From][e]; !ok {
		return false
	}
	delete(g.out[e.From], e)
	delete(g.in[e.To], e)
	if len(g.out[e.From]) == 0 {
		delete(g.out, e.From)
	}
	if len(g.in[e.To]) == 0 {
		delete(g.in, e.To)
	}
	g.edges--
	g.record(undo{op: undoRemoveEdge, edge: e})
	return true
}

// Vertex returns a copy of the vertex with the given identity.
func (g *Graph) Vertex(id string) (Vertex, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return Vertex{ID: v.ID, Kind: v.Kind, Properties: maps.Clone(v.Properties)}, true
}

// HasEdge reports whether e exists.
func (g *Graph) HasEdge(e Edge) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.out[e.From][e]
	return ok
}

// Edges returns the edges incident to id in the given direction, sorted.
func (g *Graph) Edges(id string, dir Direction) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	if dir == Outgoing || dir == Both {
		for e := range g.out[id] {
			out = append(out, e)
		}
	}
	if dir == Incoming || dir == Both {
		for e := range g.in[id] {
			if dir == Both && e.From == id {
				continue // self loop already listed
			}
			out = append(out, e)
		}
	}
	slices.SortFunc(out, compareEdges)
	return out
}

// Neighbors returns the distinct vertex ids adjacent to id, sorted.
func (g *Graph) Neighbors(id string, dir Direction) []string {
	seen := make(map[string]struct{})
	for _, e := range g.Edges(id, dir) {
		if e.From == id {
			seen[e.To] = struct{}{}
		}
		if e.To == id {
			seen[e.From] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Degree returns the number of edges incident to id. A self loop counts
// twice.
func (g *Graph) Degree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.out[id]) + len(g.in[id])
}

// OutDegree returns the number of edges leaving id.
func (g *Graph) OutDegree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.out[id])
}

// VertexIDs returns every vertex identity, sorted.
func (g *Graph) VertexIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.vertices))
}

// AllEdges returns every edge, sorted.
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, g.edges)
	for _, set := range g.out {
		for e := range set {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, compareEdges)
	return out
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Stats summarizes the graph.
type Stats struct {
	Vertices        int `json:"vertices"`
	LiteralVertices int `json:"literal_vertices"`
	Edges           int `json:"edges"`
}

// Stats returns vertex and edge counts.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{Vertices: len(g.vertices), Edges: g.edges}
	for _, v := range g.vertices {
		if v.Kind == pgs.LiteralKind {
			s.LiteralVertices++
		}
	}
	return s
}

// Clone returns a deep copy of the graph without transaction state.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := New()
	for id, v := range g.vertices {
		c.vertices[id] = &Vertex{ID: v.ID, Kind: v.Kind, Properties: maps.Clone(v.Properties)}
	}
	for id, set := range g.out {
		c.out[id] = maps.Clone(set)
	}
	for id, set := range g.in {
		c.in[id] = maps.Clone(set)
	}
	c.edges = g.edges
	return c
}

// Equal reports whether two graphs hold the same vertices, with the same
// kinds and properties, and the same edges.
func (g *Graph) Equal(o *Graph) bool {
	if g == o {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(g.vertices) != len(o.vertices) || g.edges != o.edges {
		return false
	}
	for id, v := range g.vertices {
		w, ok := o.vertices[id]
		if !ok || v.Kind != w.Kind || !maps.Equal(v.Properties, w.Properties) {
			return false
		}
	}
	for id, set := range g.out {
		if !maps.Equal(set, o.out[id]) {
			return false
		}
	}
	return true
}

func compareEdges(a, b Edge) int {
	if a.From != b.From {
		if a.From < b.From {
			return -1
		}
		return 1
	}
	if a.Label != b.Label {
		if a.Label < b.Label {
			return -1
		}
		return 1
	}
	if a.To != b.To {
		if a.To < b.To {
			return -1
		}
		return 1
	}
	return 0
}
