package synchronizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/pgs"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/testutil"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "full", want: StrategyFull},
		{in: "Full-Clone", want: StrategyFull},
		{in: "full_clone", want: StrategyFull},
		{in: " incremental ", want: StrategyIncremental},
		{in: "diff", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewStrategy_RequiresDeps(t *testing.T) {
	_, err := NewStrategy(StrategyFull, Deps{})
	assert.True(t, errors.IsInvalid(err))
}

// strategyFixture is a booted primary store and a derived graph without an
// engine, for driving strategies by hand.
type strategyFixture struct {
	store *primary.MemoryStore
	deps  Deps
}

func newStrategyFixture(t *testing.T, seed []rdf.Triple) *strategyFixture {
	t.Helper()
	tracker := status.NewTracker(nil)
	store := primary.NewMemoryStore(tracker, event.NewCorrelationSource())
	require.NoError(t, store.Boot(context.Background(), stringsReader(seed)))

	graph := pgraph.NewHandle(nil)
	cache, err := kvcache.NewMemoryCache()
	require.NoError(t, err)
	deps := Deps{
		Primary:     store,
		Graph:       graph,
		Cache:       cache,
		Coordinator: coordinator.New([]coordinator.Resource{graph, cache}, coordinator.WithTimeout(time.Second)),
	}
	require.NoError(t, deps.validate())
	return &strategyFixture{store: store, deps: deps}
}

func TestFullClone_SwapsFreshGraph(t *testing.T) {
	f := newStrategyFixture(t, testutil.WineExtended())
	full := &FullClone{deps: f.deps}
	ctx := context.Background()

	require.NoError(t, full.Synchronize(ctx, 1))
	first := f.deps.Graph.Graph()
	stats := first.Stats()
	assert.Equal(t, 12, stats.Edges)
	assert.Equal(t, 5, stats.LiteralVertices, "shared literal projected once")

	require.NoError(t, full.Synchronize(ctx, 2))
	assert.NotSame(t, first, f.deps.Graph.Graph())
	assert.True(t, first.Equal(f.deps.Graph.Graph()))
}

func TestIncremental_IsIdempotent(t *testing.T) {
	f := newStrategyFixture(t, testutil.WineExtended())
	ctx := context.Background()
	require.NoError(t, (&FullClone{deps: f.deps}).Synchronize(ctx, 0))

	d, err := f.store.Apply(ctx,
		[]rdf.Triple{rdf.NewTriple(testutil.Bordeaux, testutil.LocatedIn, testutil.Region)},
		[]rdf.Triple{testutil.WineLabelTriple(), rdf.NewTriple(testutil.Merlot, testutil.LocatedIn, rdf.NewBlank("region1"))})
	require.NoError(t, err)

	inc := &Incremental{deps: f.deps}
	require.NoError(t, inc.Synchronize(ctx, d.CorrelationID))
	once := f.deps.Graph.Graph().Clone()
	require.NoError(t, inc.Synchronize(ctx, d.CorrelationID))

	assert.True(t, once.Equal(f.deps.Graph.Graph()))

	rebuilt, err := (&FullClone{deps: f.deps}).build(ctx)
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(f.deps.Graph.Graph()))
}

func TestIncremental_KeepsSharedLiteral(t *testing.T) {
	f := newStrategyFixture(t, testutil.WineExtended())
	ctx := context.Background()
	require.NoError(t, (&FullClone{deps: f.deps}).Synchronize(ctx, 0))

	bordeaux := rdf.NewLiteral("Bordeaux")
	d, err := f.store.Remove(ctx, rdf.NewTriple(testutil.Bordeaux, testutil.RDFSLabel, bordeaux))
	require.NoError(t, err)
	require.NoError(t, (&Incremental{deps: f.deps}).Synchronize(ctx, d.CorrelationID))

	g := f.deps.Graph.Graph()
	_, ok := g.Vertex(bordeaux.String())
	assert.True(t, ok, "literal still labels the blank region")
	assert.Equal(t, 1, g.Degree(bordeaux.String()))
}

func TestIncremental_UnknownChange(t *testing.T) {
	f := newStrategyFixture(t, testutil.WineMinimal())
	err := (&Incremental{deps: f.deps}).Synchronize(context.Background(), 42)
	assert.ErrorIs(t, err, primary.ErrUnknownChange)
}

func TestProject_SchemaViolation(t *testing.T) {
	p := pgs.NewProjector(pgs.DefaultSchema(), nil)
	bad := rdf.Triple{Subject: testutil.WineLabel, Predicate: testutil.RDFSLabel, Object: testutil.Wine}

	_, err := project(p, []rdf.Triple{testutil.WineTypeTriple(), bad})
	assert.ErrorIs(t, err, errors.ErrSchemaViolation)
	assert.True(t, errors.IsInvalid(err))
}

func TestFullClone_SkolemScopePerPass(t *testing.T) {
	f := newStrategyFixture(t, testutil.WineExtended())
	f.deps.Projector = func() *pgs.Projector {
		return pgs.NewProjector(pgs.DefaultSchema(), pgs.NewSkolemScope())
	}
	full := &FullClone{deps: f.deps}
	ctx := context.Background()

	require.NoError(t, full.Synchronize(ctx, 1))
	first := f.deps.Graph.Graph().Clone()
	require.NoError(t, full.Synchronize(ctx, 2))
	second := f.deps.Graph.Graph()

	assert.Equal(t, first.Stats(), second.Stats())
	assert.False(t, first.Equal(second), "blank node identities are minted per pass")
}
