package pgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/pgs"
)

func res(id string) pgs.VertexOp {
	return pgs.VertexOp{ID: id, Kind: pgs.ResourceKind, Properties: map[string]string{"iri": id}}
}

func lit(id string) pgs.VertexOp {
	return pgs.VertexOp{ID: id, Kind: pgs.LiteralKind, Properties: map[string]string{"value": id}}
}

func wineGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	g.AddVertex(res("wine"))
	g.AddVertex(res("red"))
	g.AddVertex(lit(`"Wine"`))
	_, err := g.AddEdge(Edge{From: "red", Label: "subClassOf", To: "wine"})
	require.NoError(t, err)
	_, err = g.AddEdge(Edge{From: "wine", Label: "label", To: `"Wine"`})
	require.NoError(t, err)
	return g
}

func TestGraph_AddVertexIsIdempotent(t *testing.T) {
	g := New()
	assert.True(t, g.AddVertex(res("a")))
	assert.False(t, g.AddVertex(pgs.VertexOp{ID: "a", Kind: pgs.LiteralKind}))

	v, ok := g.Vertex("a")
	require.True(t, ok)
	assert.Equal(t, pgs.ResourceKind, v.Kind, "existing vertex is kept")
	assert.Equal(t, 1, g.VertexCount())
}

func TestGraph_VertexReturnsCopy(t *testing.T) {
	g := New()
	g.AddVertex(res("a"))
	v, _ := g.Vertex("a")
	v.Properties["iri"] = "changed"

	again, _ := g.Vertex("a")
	assert.Equal(t, "a", again.Properties["iri"])
}

func TestGraph_EdgesNeedEndpoints(t *testing.T) {
	g := New()
	g.AddVertex(res("a"))

	_, err := g.AddEdge(Edge{From: "a", Label: "p", To: "missing"})
	assert.ErrorIs(t, err, ErrVertexNotFound)
	_, err = g.AddEdge(Edge{From: "missing", Label: "p", To: "a"})
	assert.ErrorIs(t, err, ErrVertexNotFound)
	assert.Zero(t, g.EdgeCount())
}

func TestGraph_DuplicateEdgeIsSingle(t *testing.T) {
	g := wineGraph(t)
	created, err := g.AddEdge(Edge{From: "red", Label: "subClassOf", To: "wine"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, g.EdgeCount())
}

func TestGraph_Traversal(t *testing.T) {
	g := wineGraph(t)

	assert.Equal(t, []Edge{{From: "wine", Label: "label", To: `"Wine"`}}, g.Edges("wine", Outgoing))
	assert.Equal(t, []Edge{{From: "red", Label: "subClassOf", To: "wine"}}, g.Edges("wine", Incoming))
	assert.Len(t, g.Edges("wine", Both), 2)
	assert.Equal(t, []string{`"Wine"`, "red"}, g.Neighbors("wine", Both))
	assert.Equal(t, 2, g.Degree("wine"))
	assert.Equal(t, 1, g.OutDegree("wine"))
	assert.Equal(t, []string{`"Wine"`, "red", "wine"}, g.VertexIDs())
}

func TestGraph_SelfLoop(t *testing.T) {
	g := New()
	g.AddVertex(res("a"))
	_, err := g.AddEdge(Edge{From: "a", Label: "sameAs", To: "a"})
	require.NoError(t, err)

	assert.Len(t, g.Edges("a", Both), 1)
	assert.Equal(t, 2, g.Degree("a"))

	assert.True(t, g.RemoveEdge(Edge{From: "a", Label: "sameAs", To: "a"}))
	assert.Zero(t, g.Degree("a"))
}

func TestGraph_RemoveVertexDropsIncidentEdges(t *testing.T) {
	g := wineGraph(t)
	assert.True(t, g.RemoveVertex("wine"))
	assert.False(t, g.RemoveVertex("wine"))

	assert.Zero(t, g.EdgeCount())
	assert.Zero(t, g.Degree("red"))
	assert.Zero(t, g.Degree(`"Wine"`))
	assert.Empty(t, g.AllEdges())
}

func TestGraph_Stats(t *testing.T) {
	g := wineGraph(t)
	assert.Equal(t, Stats{Vertices: 3, LiteralVertices: 1, Edges: 2}, g.Stats())
}

func TestGraph_CloneAndEqual(t *testing.T) {
	g := wineGraph(t)
	c := g.Clone()
	assert.True(t, g.Equal(c))

	c.RemoveEdge(Edge{From: "red", Label: "subClassOf", To: "wine"})
	assert.False(t, g.Equal(c))
	assert.Equal(t, 2, g.EdgeCount(), "clone is independent")

	d := wineGraph(t)
	d.RemoveVertex(`"Wine"`)
	d.AddVertex(pgs.VertexOp{ID: `"Wine"`, Kind: pgs.LiteralKind, Properties: map[string]string{"value": "other"}})
	d.AddEdge(Edge{From: "wine", Label: "label", To: `"Wine"`})
	assert.False(t, g.Equal(d), "properties are compared")
}

func TestGraph_RollbackRestoresState(t *testing.T) {
	g := wineGraph(t)
	before := g.Clone()

	require.NoError(t, g.Begin())
	assert.ErrorIs(t, g.Begin(), ErrTxActive)

	g.RemoveVertex("wine")
	g.AddVertex(res("white"))
	_, err := g.AddEdge(Edge{From: "white", Label: "subClassOf", To: "red"})
	require.NoError(t, err)
	g.RemoveEdge(Edge{From: "white", Label: "subClassOf", To: "red"})
	g.AddEdge(Edge{From: "white", Label: "label", To: `"Wine"`})

	require.NoError(t, g.Rollback())
	assert.True(t, before.Equal(g))
	assert.False(t, g.InTx())
}

func TestGraph_CommitKeepsState(t *testing.T) {
	g := wineGraph(t)
	require.NoError(t, g.Begin())
	g.RemoveVertex(`"Wine"`)
	require.NoError(t, g.Commit())

	assert.Equal(t, 2, g.VertexCount())
	assert.ErrorIs(t, g.Commit(), ErrNoTx)
	assert.ErrorIs(t, g.Rollback(), ErrNoTx)
}

func TestHandle_RollbackRestoresSwappedGraph(t *testing.T) {
	ctx := context.Background()
	orig := wineGraph(t)
	h := NewHandle(orig)
	snapshot := orig.Clone()

	require.NoError(t, h.Begin(ctx))
	h.Graph().RemoveVertex("red")
	old := h.Swap(New())
	assert.Same(t, orig, old)
	assert.Zero(t, h.Graph().VertexCount())

	require.NoError(t, h.Rollback(ctx))
	assert.Same(t, orig, h.Graph())
	assert.True(t, snapshot.Equal(h.Graph()))
}

func TestHandle_CommitKeepsSwappedGraph(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(wineGraph(t))
	next := New()
	next.AddVertex(res("only"))

	require.NoError(t, h.Begin(ctx))
	h.Swap(next)
	require.NoError(t, h.Commit(ctx))

	assert.Same(t, next, h.Graph())
	assert.ErrorIs(t, h.Commit(ctx), ErrNoTx)
	assert.Equal(t, ResourceName, h.Name())
}

func TestHandle_NilStartsEmpty(t *testing.T) {
	h := NewHandle(nil)
	require.NotNil(t, h.Graph())
	assert.Zero(t, h.Store().VertexCount())
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "outgoing", Outgoing.String())
	assert.Equal(t, "incoming", Incoming.String())
	assert.Equal(t, "both", Both.String())
	assert.Equal(t, "unknown", Direction(9).String())
}
