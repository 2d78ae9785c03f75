package fulltext

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/metric"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/testutil"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Red wine", []string{"red", "wine"}},
		{"CAFÉ café Café", []string{"café"}},
		{"ﬁne-grained", []string{"fine", "grained"}},
		{"Straße", []string{"strasse"}},
		{"1998", []string{"1998"}},
		{"  ,;  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Tokenize(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndex_AddRemoveSearch(t *testing.T) {
	x := NewIndex()
	for _, tr := range testutil.WineExtended() {
		x.Add(tr)
	}

	hits := x.Search("wine", 0)
	require.Len(t, hits, 2)
	assert.Equal(t, testutil.RedWine.Value, hits[0].Subject, "ties ordered by subject")
	assert.Equal(t, testutil.Wine.Value, hits[1].Subject)

	hits = x.Search("red wine", 0)
	assert.Equal(t, Hit{Subject: testutil.RedWine.Value, Score: 2}, hits[0])

	hits = x.Search("bordeaux", 0)
	assert.ElementsMatch(t, []Hit{{Subject: testutil.Bordeaux.Value, Score: 1}, {Subject: "_:region1", Score: 1}}, hits)

	assert.False(t, x.Add(testutil.WineLabelTriple()), "adding twice is a no-op")
	assert.True(t, x.Remove(testutil.WineLabelTriple()))
	assert.False(t, x.Remove(testutil.WineLabelTriple()))
	assert.Len(t, x.Search("wine", 0), 1)
	assert.Len(t, x.Search("wine", 1), 1)
	assert.Empty(t, x.Search("", 0))
}

func TestIndex_SharedTokensAcrossLiterals(t *testing.T) {
	x := NewIndex()
	a := rdf.NewTriple(testutil.Wine, testutil.RDFSLabel, rdf.NewLiteral("Wine"))
	b := rdf.NewTriple(testutil.Wine, testutil.RDFSLabel, rdf.NewLangLiteral("wine", "en"))
	x.Add(a)
	x.Add(b)
	x.Remove(a)
	assert.Len(t, x.Search("WINE", 0), 1, "other literal still carries the token")
	x.Remove(b)
	assert.Zero(t, x.Terms())
	assert.Zero(t, x.Documents())
}

func TestIndex_PredicateFilter(t *testing.T) {
	x := NewIndex(rdf.RDFSLabel)
	assert.True(t, x.Add(testutil.WineLabelTriple()))
	assert.False(t, x.Add(rdf.NewTriple(testutil.Merlot, testutil.Vintage, rdf.NewTypedLiteral("1998", rdf.XSDInteger))))
	assert.False(t, x.Add(testutil.WineTypeTriple()), "resource objects are not indexed")
	assert.Equal(t, 1, x.Documents())
}

type fixture struct {
	recorder *testutil.EventRecorder
	bus      *event.Bus
	store    *primary.MemoryStore
	updater  *Updater
}

func newFixture(t *testing.T, seed []rdf.Triple, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{recorder: testutil.NewEventRecorder(), bus: event.NewBus()}
	tracker := status.NewTracker(status.PublisherFunc(func(ev status.TransitionEvent) {
		f.recorder.Publish(ev)
		f.bus.Publish(ev)
	}))
	ids := event.NewCorrelationSource()
	f.store = primary.NewMemoryStore(tracker, ids)
	require.NoError(t, f.store.Boot(context.Background(), strings.NewReader(testutil.NTriples(seed))))

	var err error
	f.updater, err = NewUpdater(NewIndex(), f.store, tracker, f.bus, ids, opts...)
	require.NoError(t, err)
	require.NoError(t, f.updater.Start())
	require.NoError(t, f.updater.Boot(context.Background()))
	t.Cleanup(func() {
		f.updater.Stop()
		_ = f.bus.Close(context.Background())
	})
	return f
}

func TestUpdater_FollowsPrimaryWrites(t *testing.T) {
	f := newFixture(t, testutil.WineMinimal())
	ctx := context.Background()

	assert.Equal(t, []status.DAOStatus{status.Booting, status.Ready}, f.recorder.Statuses(status.FullText))
	assert.Len(t, f.updater.Index().Search("wine", 0), 1)

	d, err := f.store.Insert(ctx, rdf.NewTriple(testutil.Merlot, testutil.RDFSLabel, rdf.NewLangLiteral("Merlot", "en")))
	require.NoError(t, err)
	testutil.WaitForStatus(t, f.recorder, status.FullText, d.CorrelationID, status.Ready, 2*time.Second)
	assert.Len(t, f.updater.Index().Search("merlot", 0), 1)

	d, err = f.store.Remove(ctx, testutil.WineLabelTriple())
	require.NoError(t, err)
	testutil.WaitForStatus(t, f.recorder, status.FullText, d.CorrelationID, status.Ready, 2*time.Second)
	assert.Empty(t, f.updater.Index().Search("wine", 0))

	var got []status.DAOStatus
	for _, ev := range f.recorder.ForCorrelation(status.FullText, d.CorrelationID) {
		got = append(got, ev.New)
	}
	assert.Equal(t, []status.DAOStatus{status.Synchronizing, status.Ready}, got)
}

func TestUpdater_AcknowledgesAndRebuildsOnMissingChange(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	f := newFixture(t, testutil.WineMinimal(), WithMetrics(reg))
	WithAcknowledger(f.store)(f.updater)
	ctx := context.Background()

	d, err := f.store.Insert(ctx, rdf.NewTriple(testutil.RedWine, testutil.RDFSLabel, rdf.NewLangLiteral("Red wine", "en")))
	require.NoError(t, err)
	testutil.WaitForStatus(t, f.recorder, status.FullText, d.CorrelationID, status.Ready, 2*time.Second)
	assert.Zero(t, f.store.PendingChanges())

	// The change was consumed, so a replay falls back to a rebuild.
	f.updater.mu.Lock()
	require.NoError(t, f.updater.pass(ctx, d.CorrelationID, false))
	f.updater.mu.Unlock()
	assert.Len(t, f.updater.Index().Search("red", 0), 1)
	assert.Equal(t, 2, f.updater.Index().Documents())

	require.NoError(t, f.updater.Rebuild(ctx))
	assert.Equal(t, status.Ready, f.recorder.Statuses(status.FullText)[len(f.recorder.Statuses(status.FullText))-1])
}

func TestNewUpdater_RequiresCollaborators(t *testing.T) {
	_, err := NewUpdater(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
