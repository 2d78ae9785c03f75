package fulltext

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/metric"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
)

// Updater keeps an Index consistent with the primary store and publishes
// the transitions of the full-text DAO. Deltas are applied in write order
// on the bus subscription goroutine.
type Updater struct {
	index   *Index
	store   primary.Store
	tracker *status.Tracker
	bus     *event.Bus
	ids     *event.CorrelationSource
	acker   primary.Acknowledger

	// mu serializes boot, rebuilds and delta application.
	mu      sync.Mutex
	rebuild bool
	sub     *event.Subscription

	documents prometheus.Gauge
	logger    *slog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithAcknowledger acknowledges each applied change.
func WithAcknowledger(a primary.Acknowledger) Option {
	return func(u *Updater) { u.acker = a }
}

// WithMetrics exports the number of indexed subjects.
func WithMetrics(reg metric.MetricsRegistrar) Option {
	return func(u *Updater) {
		if reg == nil {
			return
		}
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "esm",
			Subsystem: "fulltext",
			Name:      "documents",
			Help:      "Subjects in the full-text index",
		})
		if err := reg.RegisterGauge("fulltext", "documents", g); err == nil {
			u.documents = g
		}
	}
}

// NewUpdater returns an updater for index fed from store.
func NewUpdater(index *Index, store primary.Store, tracker *status.Tracker, bus *event.Bus,
	ids *event.CorrelationSource, opts ...Option) (*Updater, error) {
	if index == nil || store == nil || tracker == nil || bus == nil || ids == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Updater", "NewUpdater", "missing collaborator")
	}
	u := &Updater{
		index:   index,
		store:   store,
		tracker: tracker,
		bus:     bus,
		ids:     ids,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With("component", "fulltext")
	return u, nil
}

// Index returns the maintained index.
func (u *Updater) Index() *Index { return u.index }

// Start subscribes to completed primary writes.
func (u *Updater) Start() error {
	sub, err := u.bus.Subscribe(status.Primary, event.Statuses(status.Ready), u.onPrimaryReady)
	if err != nil {
		return errors.Wrap(err, "Updater", "Start", "subscribe to primary events")
	}
	u.sub = sub
	return nil
}

// Stop unsubscribes.
func (u *Updater) Stop() {
	if u.sub != nil {
		u.sub.Unsubscribe()
	}
}

// Boot builds the index from every primary triple. Writes that complete
// while booting are applied afterwards.
func (u *Updater) Boot(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := u.ids.Next()
	if err := u.tracker.SetStatus(status.FullText, status.Booting, id); err != nil {
		return err
	}
	if err := u.rebuildLocked(ctx); err != nil {
		u.rebuild = true
		_ = u.tracker.SetFailed(status.FullText, id, err)
		return err
	}
	u.logger.Info("Full-text index booted", "correlation_id", id,
		"documents", u.index.Documents(), "terms", u.index.Terms())
	return u.tracker.SetStatus(status.FullText, status.Ready, id)
}

// Rebuild rebuilds the index from scratch under a fresh correlation id.
func (u *Updater) Rebuild(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pass(ctx, u.ids.Next(), true)
}

func (u *Updater) onPrimaryReady(ctx context.Context, ev status.TransitionEvent) {
	if ev.Previous != status.Synchronizing {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	switch u.tracker.CurrentStatus(status.FullText) {
	case status.Uninitialized, status.Booting:
		// Boot has not started yet and will stream this write.
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := u.pass(ctx, ev.CorrelationID, u.rebuild); err != nil || u.acker == nil {
		return
	}
	if err := u.acker.Acknowledge(ctx, ev.CorrelationID); err != nil {
		u.logger.Warn("Failed to acknowledge change", "correlation_id", ev.CorrelationID, "error", err)
	}
}

// pass applies the change of correlationID, or rebuilds when full is set
// or the change is no longer logged.
func (u *Updater) pass(ctx context.Context, correlationID uint64, full bool) error {
	if err := u.tracker.SetStatus(status.FullText, status.Synchronizing, correlationID); err != nil {
		return err
	}

	err := u.applyLocked(ctx, correlationID, full)
	if err != nil {
		u.rebuild = true
		ferr := &errors.SyncFailureError{CorrelationID: correlationID, Strategy: "fulltext", Err: err}
		_ = u.tracker.SetFailed(status.FullText, correlationID, ferr)
		u.logger.Error("Full-text update failed", "correlation_id", correlationID, "error", err)
		return ferr
	}
	u.rebuild = false
	if u.documents != nil {
		u.documents.Set(float64(u.index.Documents()))
	}
	return u.tracker.SetStatus(status.FullText, status.Ready, correlationID)
}

func (u *Updater) applyLocked(ctx context.Context, correlationID uint64, full bool) error {
	if !full {
		delta, err := u.store.ChangedTriples(ctx, correlationID)
		switch {
		case err == nil:
			n := u.index.Apply(delta.Added, delta.Removed)
			u.logger.Debug("Delta indexed", "correlation_id", correlationID, "changed", n)
			return nil
		case !stderrors.Is(err, primary.ErrUnknownChange):
			return errors.Wrap(err, "Updater", "apply", "fetch delta")
		}
		u.logger.Warn("Change log entry missing, rebuilding index", "correlation_id", correlationID)
	}
	return u.rebuildLocked(ctx)
}

func (u *Updater) rebuildLocked(ctx context.Context) error {
	next := NewIndex(u.index.predicateList()...)
	err := u.store.StreamAllTriples(ctx, func(t rdf.Triple) error {
		next.Add(t)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "Updater", "rebuild", "stream primary triples")
	}
	u.index.Replace(next)
	if u.documents != nil {
		u.documents.Set(float64(u.index.Documents()))
	}
	return nil
}
