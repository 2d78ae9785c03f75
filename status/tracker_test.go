package status

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/metric"
)

type recorder struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func (r *recorder) Publish(e TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []TransitionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TransitionEvent(nil), r.events...)
}

func TestTracker_Lifecycle(t *testing.T) {
	rec := &recorder{}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := NewTracker(rec, WithClock(func() time.Time { return fixed }))

	assert.Equal(t, Uninitialized, tr.CurrentStatus(Graph))
	_, ok := tr.Last(Graph)
	assert.False(t, ok)

	require.NoError(t, tr.SetStatus(Graph, Booting, 1))
	require.NoError(t, tr.SetStatus(Graph, Ready, 1))
	require.NoError(t, tr.SetStatus(Graph, Synchronizing, 2))
	require.NoError(t, tr.SetFailed(Graph, 2, stderrors.New("disk gone")))

	assert.Equal(t, Failed, tr.CurrentStatus(Graph))
	last, ok := tr.Last(Graph)
	require.True(t, ok)
	assert.Equal(t, uint64(2), last.CorrelationID)
	assert.Equal(t, "disk gone", last.Cause)
	assert.Equal(t, fixed, last.Timestamp)

	events := rec.all()
	require.Len(t, events, 4)
	assert.Equal(t, Uninitialized, events[0].Previous)
	assert.Equal(t, Synchronizing, events[3].Previous)
	assert.Equal(t, map[DAO]DAOStatus{Graph: Failed}, tr.Snapshot())
}

func TestTracker_RejectsInvalidTransition(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	err := tr.SetStatus(Primary, Ready, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	var ite *errors.InvalidTransitionError
	require.True(t, stderrors.As(err, &ite))
	assert.Equal(t, "primary", ite.DAO)
	assert.Equal(t, "UNINITIALIZED", ite.From)
	assert.Equal(t, "READY", ite.To)
	assert.Contains(t, err.Error(), "UNINITIALIZED -> READY")

	assert.Empty(t, rec.all())
	assert.Equal(t, Uninitialized, tr.CurrentStatus(Primary))
}

func TestTracker_DAOsAreIndependent(t *testing.T) {
	tr := NewTracker(nil)
	require.NoError(t, tr.SetStatus(Primary, Booting, 1))
	require.NoError(t, tr.SetStatus(Primary, Ready, 1))

	assert.Equal(t, Ready, tr.CurrentStatus(Primary))
	assert.Equal(t, Uninitialized, tr.CurrentStatus(Graph))
	assert.Error(t, tr.SetStatus(Graph, Synchronizing, 2))
}

func TestTracker_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m := registry.CoreMetrics()
	tr := NewTracker(nil, WithMetrics(m))

	require.NoError(t, tr.SetStatus(FullText, Booting, 1))
	_ = tr.SetStatus(FullText, Synchronizing, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("fulltext", "UNINITIALIZED", "BOOTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidTransitions.WithLabelValues("fulltext")))
	assert.Equal(t, float64(Booting), testutil.ToFloat64(m.DAOStatus.WithLabelValues("fulltext")))
}

func TestTracker_ConcurrentTransitionsStayOrdered(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	require.NoError(t, tr.SetStatus(Graph, Booting, 0))
	require.NoError(t, tr.SetStatus(Graph, Ready, 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tr.SetStatus(Graph, Synchronizing, id)
				_ = tr.SetStatus(Graph, Ready, id)
			}
		}(uint64(i))
	}
	wg.Wait()

	assertChained(t, rec.all())
}

// assertChained checks that every event is an allowed edge and that each
// event's Previous equals the New of the event before it, per DAO.
func assertChained(t testing.TB, events []TransitionEvent) {
	t.Helper()
	current := map[DAO]DAOStatus{}
	for i, ev := range events {
		prev := current[ev.DAO]
		if ev.Previous != prev {
			t.Fatalf("event %d (%s) breaks the chain: expected previous %s", i, ev, prev)
		}
		if !Allowed(ev.Previous, ev.New) {
			t.Fatalf("event %d (%s) is not an allowed edge", i, ev)
		}
		current[ev.DAO] = ev.New
	}
}

func FuzzTracker(f *testing.F) {
	f.Add([]byte{0, 1, 0, 3, 0, 2, 0, 3})
	f.Add([]byte{1, 5, 1, 2, 1, 4, 1, 2, 2, 0})
	f.Add([]byte{2, 5, 2, 5, 2, 2, 2, 1})

	daos := []DAO{Primary, Graph, FullText}

	f.Fuzz(func(t *testing.T, script []byte) {
		rec := &recorder{}
		tr := NewTracker(rec)
		for i := 0; i+1 < len(script); i += 2 {
			dao := daos[int(script[i])%len(daos)]
			to := DAOStatus(int(script[i+1]) % 7) // includes one invalid value
			before := tr.CurrentStatus(dao)
			err := tr.SetStatus(dao, to, uint64(i))
			if Allowed(before, to) {
				if err != nil {
					t.Fatalf("allowed %s %s->%s rejected: %v", dao, before, to, err)
				}
			} else if err == nil {
				t.Fatalf("forbidden %s %s->%s accepted", dao, before, to)
			}
		}
		assertChained(t, rec.all())
	})
}
