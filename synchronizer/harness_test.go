package synchronizer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/testutil"
)

const waitTimeout = 3 * time.Second

type harness struct {
	recorder *testutil.EventRecorder
	bus      *event.Bus
	tracker  *status.Tracker
	ids      *event.CorrelationSource
	store    *primary.MemoryStore
	graph    *pgraph.Handle
	cache    *kvcache.MemoryCache
	coord    *coordinator.Coordinator
	deps     Deps
	engine   *Engine
}

type harnessConfig struct {
	strategy string
	seed     []rdf.Triple
	wrap     func(*primary.MemoryStore) primary.Store
	mutate   func(*Deps)
	opts     []EngineOption
	// observe sees every transition synchronously, on the publishing
	// goroutine.
	observe func(status.TransitionEvent)
}

func fastRetry(retries int) errors.RetryConfig {
	return errors.RetryConfig{
		MaxRetries:    retries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

// newHarness boots a primary store and a started, booted engine.
func newHarness(t *testing.T, hc harnessConfig) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		recorder: testutil.NewEventRecorder(),
		bus:      event.NewBus(),
		ids:      event.NewCorrelationSource(),
		graph:    pgraph.NewHandle(nil),
	}
	h.tracker = status.NewTracker(status.PublisherFunc(func(ev status.TransitionEvent) {
		if hc.observe != nil {
			hc.observe(ev)
		}
		h.recorder.Publish(ev)
		h.bus.Publish(ev)
	}))
	h.store = primary.NewMemoryStore(h.tracker, h.ids)

	cache, err := kvcache.NewMemoryCache()
	require.NoError(t, err)
	h.cache = cache
	h.coord = coordinator.New([]coordinator.Resource{h.graph, h.cache}, coordinator.WithTimeout(time.Second))

	var ps primary.Store = h.store
	if hc.wrap != nil {
		ps = hc.wrap(h.store)
	}
	h.deps = Deps{Primary: ps, Graph: h.graph, Cache: h.cache, Coordinator: h.coord}
	if hc.mutate != nil {
		hc.mutate(&h.deps)
	}
	if hc.strategy == "" {
		hc.strategy = StrategyIncremental
	}

	cfg := DefaultConfig()
	cfg.Strategy = hc.strategy
	cfg.Retry = fastRetry(2)
	opts := append([]EngineOption{WithAcknowledger(h.store)}, hc.opts...)
	h.engine, err = NewEngine(cfg, h.deps, h.tracker, h.bus, h.ids, opts...)
	require.NoError(t, err)

	require.NoError(t, h.store.Boot(ctx, stringsReader(hc.seed)))
	require.NoError(t, h.engine.Start(ctx))
	require.NoError(t, h.engine.Boot(ctx))

	t.Cleanup(func() {
		_ = h.engine.Stop()
		_ = h.bus.Close(context.Background())
	})
	return h
}

func stringsReader(triples []rdf.Triple) *strings.Reader {
	return strings.NewReader(testutil.NTriples(triples))
}

// write applies a delta to the primary store and waits for the graph pass
// it causes to settle.
func (h *harness) write(t *testing.T, added, removed []rdf.Triple) primary.Delta {
	t.Helper()
	d, err := h.store.Apply(context.Background(), added, removed)
	require.NoError(t, err)
	testutil.WaitForStatus(t, h.recorder, status.Graph, d.CorrelationID, status.Ready, waitTimeout)
	return d
}

// rebuilt projects the current primary contents from scratch.
func (h *harness) rebuilt(t *testing.T) *pgraph.Graph {
	t.Helper()
	f := &FullClone{deps: h.engine.deps}
	g, err := f.build(context.Background())
	require.NoError(t, err)
	return g
}

// flakyStore fails ChangedTriples while failures remains positive.
type flakyStore struct {
	*primary.MemoryStore
	failures atomic.Int32
	err      error
	calls    atomic.Int32
}

func (f *flakyStore) ChangedTriples(ctx context.Context, id uint64) (primary.Delta, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return primary.Delta{}, f.err
	}
	return f.MemoryStore.ChangedTriples(ctx, id)
}

// failingCache fails Delete while failures remains positive.
type failingCache struct {
	*kvcache.MemoryCache
	failures atomic.Int32
	deletes  atomic.Int32
	err      error
}

func (f *failingCache) Delete(ctx context.Context, key string) error {
	f.deletes.Add(1)
	if f.failures.Add(-1) >= 0 {
		return f.err
	}
	return f.MemoryCache.Delete(ctx, key)
}

// gatedStore blocks the first ChangedTriples call until gate is closed.
type gatedStore struct {
	*primary.MemoryStore
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func newGatedStore(s *primary.MemoryStore) *gatedStore {
	return &gatedStore{MemoryStore: s, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedStore) ChangedTriples(ctx context.Context, id uint64) (primary.Delta, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.gate
	}
	return g.MemoryStore.ChangedTriples(ctx, id)
}
