package primary

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/pkg/badgerdb"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/testutil"
)

type testStore interface {
	Store
	Writer
	Acknowledger
	Len() int
}

type harness struct {
	store    testStore
	boot     func(ctx context.Context, seed *strings.Reader) error
	recorder *testutil.EventRecorder
	tracker  *status.Tracker
}

func newHarnesses(t *testing.T) map[string]func() harness {
	return map[string]func() harness{
		"memory": func() harness {
			rec := testutil.NewEventRecorder()
			tr := status.NewTracker(rec)
			s := NewMemoryStore(tr, event.NewCorrelationSourceFrom(100))
			return harness{store: s, recorder: rec, tracker: tr, boot: func(ctx context.Context, seed *strings.Reader) error {
				if seed == nil {
					return s.Boot(ctx, nil)
				}
				return s.Boot(ctx, seed)
			}}
		},
		"badger": func() harness {
			rec := testutil.NewEventRecorder()
			tr := status.NewTracker(rec)
			s, err := OpenBadgerStore(badgerdb.InMemoryConfig(), tr, event.NewCorrelationSourceFrom(100))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return harness{store: s, recorder: rec, tracker: tr, boot: func(ctx context.Context, seed *strings.Reader) error {
				if seed == nil {
					return s.Boot(ctx, nil)
				}
				return s.Boot(ctx, seed)
			}}
		},
	}
}

func collect(t *testing.T, s Store) *rdf.Set {
	t.Helper()
	set := rdf.NewSet()
	require.NoError(t, s.StreamAllTriples(context.Background(), func(tr rdf.Triple) error {
		set.Add(tr)
		return nil
	}))
	return set
}

func TestStore_Contract(t *testing.T) {
	for name, newHarness := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("boot publishes BOOTING then READY", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, testutil.WineNTriples()))

				assert.Equal(t, []status.DAOStatus{status.Booting, status.Ready}, h.recorder.Statuses(status.Primary))
				assert.Equal(t, len(testutil.WineExtended()), h.store.Len())
				assert.Equal(t, status.Ready, h.tracker.CurrentStatus(status.Primary))
			})

			t.Run("write before boot is rejected", func(t *testing.T) {
				h := newHarness()
				_, err := h.store.Apply(ctx, testutil.WineMinimal(), nil)
				assert.ErrorIs(t, err, errors.ErrInvalidTransition)
				assert.Zero(t, h.store.Len())
			})

			t.Run("write publishes correlated transitions and logs delta", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				h.recorder.Clear()

				d, err := h.store.Apply(ctx, testutil.WineMinimal(), nil)
				require.NoError(t, err)
				assert.Len(t, d.Added, 2)

				events := h.recorder.ForCorrelation(status.Primary, d.CorrelationID)
				require.Len(t, events, 2)
				assert.Equal(t, status.Ready, events[0].Previous)
				assert.Equal(t, status.Synchronizing, events[0].New)
				assert.Equal(t, status.Ready, events[1].New)

				logged, err := h.store.ChangedTriples(ctx, d.CorrelationID)
				require.NoError(t, err)
				assert.Equal(t, d.CorrelationID, logged.CorrelationID)
				assert.ElementsMatch(t, keys(d.Added), keys(logged.Added))
			})

			t.Run("net delta ignores no-op parts", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				_, err := h.store.Apply(ctx, []rdf.Triple{testutil.WineTypeTriple()}, nil)
				require.NoError(t, err)
				h.recorder.Clear()

				absent := rdf.NewTriple(testutil.Merlot, testutil.RDFType, testutil.WineClass)
				d, err := h.store.Apply(ctx,
					[]rdf.Triple{testutil.WineTypeTriple(), testutil.WineLabelTriple(), testutil.WineLabelTriple()},
					[]rdf.Triple{absent})
				require.NoError(t, err)
				assert.Equal(t, []string{testutil.WineLabelTriple().Key()}, keys(d.Added))
				assert.Empty(t, d.Removed)

				d, err = h.store.Apply(ctx, []rdf.Triple{testutil.WineTypeTriple()}, []rdf.Triple{absent})
				require.NoError(t, err)
				assert.True(t, d.Empty())
				assert.Len(t, h.recorder.Events(status.Primary), 2, "empty write publishes nothing")
			})

			t.Run("remove and re-add in one write keeps the triple", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				_, err := h.store.Apply(ctx, testutil.WineMinimal(), nil)
				require.NoError(t, err)

				d, err := h.store.Apply(ctx, []rdf.Triple{testutil.WineLabelTriple()}, []rdf.Triple{testutil.WineLabelTriple()})
				require.NoError(t, err)
				assert.True(t, d.Empty())
				assert.True(t, collect(t, h.store).Contains(testutil.WineLabelTriple()))
			})

			t.Run("wine label deletion", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				_, err := h.store.Apply(ctx, testutil.WineMinimal(), nil)
				require.NoError(t, err)

				d, err := h.store.Apply(ctx, nil, []rdf.Triple{testutil.WineLabelTriple()})
				require.NoError(t, err)
				assert.Equal(t, []string{testutil.WineLabelTriple().Key()}, keys(d.Removed))

				all := collect(t, h.store)
				assert.Equal(t, 1, all.Len())
				assert.True(t, all.Contains(testutil.WineTypeTriple()))
			})

			t.Run("acknowledge prunes the change log", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				d, err := h.store.Apply(ctx, testutil.WineMinimal(), nil)
				require.NoError(t, err)

				require.NoError(t, h.store.Acknowledge(ctx, d.CorrelationID))
				_, err = h.store.ChangedTriples(ctx, d.CorrelationID)
				assert.ErrorIs(t, err, ErrUnknownChange)
				assert.NoError(t, h.store.Acknowledge(ctx, d.CorrelationID), "acknowledge is idempotent")
			})

			t.Run("invalid triples are rejected", func(t *testing.T) {
				h := newHarness()
				require.NoError(t, h.boot(ctx, nil))
				bad := rdf.NewTriple(rdf.NewLiteral("x"), testutil.RDFType, testutil.Wine)
				_, err := h.store.Apply(ctx, []rdf.Triple{bad}, nil)
				assert.True(t, errors.IsInvalid(err))
				assert.Zero(t, h.store.Len())
			})

			t.Run("bad seed fails boot", func(t *testing.T) {
				h := newHarness()
				err := h.boot(ctx, strings.NewReader("<a> <b> .\n"))
				require.Error(t, err)
				assert.Equal(t, status.Failed, h.tracker.CurrentStatus(status.Primary))
			})
		})
	}
}

func TestMemoryStore_ChangeLogLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(status.NewTracker(nil), event.NewCorrelationSourceFrom(1), WithChangeLogLimit(2))
	require.NoError(t, s.Boot(ctx, nil))

	var ids []uint64
	for _, tr := range testutil.WineExtended()[:3] {
		d, err := s.Insert(ctx, tr)
		require.NoError(t, err)
		ids = append(ids, d.CorrelationID)
	}

	_, err := s.ChangedTriples(ctx, ids[0])
	assert.ErrorIs(t, err, ErrUnknownChange, "oldest entry dropped")
	_, err = s.ChangedTriples(ctx, ids[2])
	assert.NoError(t, err)
	assert.Equal(t, 2, s.PendingChanges())
}

func TestMemoryStore_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(status.NewTracker(nil), event.NewCorrelationSource())
	require.NoError(t, s.Boot(ctx, testutil.WineNTriples()))

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, &buf))

	back, err := rdf.DecodeAll(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys(testutil.WineExtended()), keys(back))
}

func TestBadgerStore_PersistsTriplesAndLog(t *testing.T) {
	ctx := context.Background()
	cfg := badgerdb.DefaultConfig(t.TempDir())
	cfg.GCInterval = 0

	s, err := OpenBadgerStore(cfg, status.NewTracker(nil), event.NewCorrelationSource())
	require.NoError(t, err)
	require.NoError(t, s.Boot(ctx, nil))
	d, err := s.Insert(ctx, testutil.WineExtended()...)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(cfg, status.NewTracker(nil), event.NewCorrelationSource())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, len(testutil.WineExtended()), s.Len())
	logged, err := s.ChangedTriples(ctx, d.CorrelationID)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys(testutil.WineExtended()), keys(logged.Added))

	require.NoError(t, s.Boot(ctx, nil))
	_, err = s.ChangedTriples(ctx, d.CorrelationID)
	assert.ErrorIs(t, err, ErrUnknownChange, "boot drops the previous process's change log")
	assert.Equal(t, len(testutil.WineExtended()), s.Len())
}

func TestNetDelta(t *testing.T) {
	present := rdf.NewSet(testutil.WineTypeTriple())
	contains := func(tr rdf.Triple) (bool, error) { return present.Contains(tr), nil }

	d, err := netDelta(
		[]rdf.Triple{testutil.WineLabelTriple()},
		[]rdf.Triple{testutil.WineTypeTriple(), testutil.WineTypeTriple()},
		contains)
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.WineLabelTriple().Key()}, keys(d.Added))
	assert.Equal(t, []string{testutil.WineTypeTriple().Key()}, keys(d.Removed), "duplicates collapse")
}

func keys(triples []rdf.Triple) []string {
	out := make([]string, len(triples))
	for i, tr := range triples {
		out[i] = tr.Key()
	}
	return out
}

type countingAcker struct{ acked []uint64 }

func (c *countingAcker) Acknowledge(_ context.Context, id uint64) error {
	c.acked = append(c.acked, id)
	return nil
}

func TestAckBarrier(t *testing.T) {
	next := &countingAcker{}
	b := NewAckBarrier(next, 2, 2)
	ctx := context.Background()

	require.NoError(t, b.Acknowledge(ctx, 1))
	assert.Empty(t, next.acked)
	assert.Equal(t, 1, b.Outstanding())
	require.NoError(t, b.Acknowledge(ctx, 1))
	assert.Equal(t, []uint64{1}, next.acked)
	assert.Zero(t, b.Outstanding())

	for id := uint64(2); id <= 5; id++ {
		require.NoError(t, b.Acknowledge(ctx, id))
	}
	assert.Equal(t, 2, b.Outstanding(), "oldest partial acknowledgements dropped")
	require.NoError(t, b.Acknowledge(ctx, 2))
	assert.Equal(t, []uint64{1}, next.acked, "dropped entry starts over")
	require.NoError(t, b.Acknowledge(ctx, 5))
	assert.Equal(t, []uint64{1, 5}, next.acked)
}

func TestAckBarrier_TrimsByArrivalAcrossWrap(t *testing.T) {
	next := &countingAcker{}
	b := NewAckBarrier(next, 2, 2)
	ctx := context.Background()

	for _, id := range []uint64{math.MaxUint64 - 1, math.MaxUint64, 0, 1} {
		require.NoError(t, b.Acknowledge(ctx, id))
	}
	assert.Equal(t, 2, b.Outstanding())

	require.NoError(t, b.Acknowledge(ctx, 1))
	require.NoError(t, b.Acknowledge(ctx, 0))
	assert.Equal(t, []uint64{1, 0}, next.acked, "ids after the wrap are the newest")

	require.NoError(t, b.Acknowledge(ctx, math.MaxUint64))
	assert.Equal(t, []uint64{1, 0}, next.acked, "ids before the wrap were dropped first")
	assert.Equal(t, 1, b.Outstanding())
}
