package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/metric"
)

// Publisher receives every accepted transition. Publish must not block on
// subscriber work; it is called while the tracker holds its lock so that
// events of one DAO reach the publisher in transition order.
type Publisher interface {
	Publish(TransitionEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(TransitionEvent)

// Publish calls f(e).
func (f PublisherFunc) Publish(e TransitionEvent) { f(e) }

type daoState struct {
	current DAOStatus
	last    TransitionEvent
	seen    bool
}

// Tracker owns the current status of every DAO and validates transitions.
type Tracker struct {
	mu        sync.Mutex
	daos      map[DAO]*daoState
	publisher Publisher
	metrics   *metric.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMetrics records transitions in the core metrics.
func WithMetrics(m *metric.Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a tracker publishing accepted transitions to pub.
// A nil pub discards events.
func NewTracker(pub Publisher, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		daos:      make(map[DAO]*daoState),
		publisher: pub,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "status")
	return t
}

// SetStatus moves dao to the new status and publishes the transition with
// the given correlation id. A transition outside the allowed edge set is
// rejected with an *errors.InvalidTransitionError and nothing is published.
func (t *Tracker) SetStatus(dao DAO, to DAOStatus, correlationID uint64) error {
	_, err := t.transition(dao, to, correlationID, "")
	return err
}

// SetFailed moves dao to Failed, recording cause on the event.
func (t *Tracker) SetFailed(dao DAO, correlationID uint64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := t.transition(dao, Failed, correlationID, msg)
	return err
}

func (t *Tracker) transition(dao DAO, to DAOStatus, correlationID uint64, cause string) (TransitionEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(dao)
	from := st.current
	if !Allowed(from, to) {
		if t.metrics != nil {
			t.metrics.InvalidTransitions.WithLabelValues(string(dao)).Inc()
		}
		t.logger.Debug("Rejected status transition",
			"dao", dao, "from", from, "to", to, "correlation_id", correlationID)
		return TransitionEvent{}, &errors.InvalidTransitionError{
			DAO: string(dao), From: from.String(), To: to.String(),
		}
	}

	ev := TransitionEvent{
		CorrelationID: correlationID,
		DAO:           dao,
		Previous:      from,
		New:           to,
		Timestamp:     t.now(),
		Cause:         cause,
	}
	st.current = to
	st.last = ev
	st.seen = true

	if t.metrics != nil {
		t.metrics.RecordTransition(string(dao), from.String(), to.String(), int(to))
	}
	t.logger.Debug("Status transition",
		"dao", dao, "from", from, "to", to, "correlation_id", correlationID)

	if t.publisher != nil {
		t.publisher.Publish(ev)
	}
	return ev, nil
}

func (t *Tracker) state(dao DAO) *daoState {
	st, ok := t.daos[dao]
	if !ok {
		st = &daoState{current: Uninitialized}
		t.daos[dao] = st
	}
	return st
}

// CurrentStatus returns the current status of dao. Unknown DAOs are
// Uninitialized.
func (t *Tracker) CurrentStatus(dao DAO) DAOStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.daos[dao]; ok {
		return st.current
	}
	return Uninitialized
}

// Last returns the most recent event published for dao.
func (t *Tracker) Last(dao DAO) (TransitionEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.daos[dao]; ok && st.seen {
		return st.last, true
	}
	return TransitionEvent{}, false
}

// Snapshot returns the current status of every DAO that has transitioned.
func (t *Tracker) Snapshot() map[DAO]DAOStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[DAO]DAOStatus, len(t.daos))
	for dao, st := range t.daos {
		out[dao] = st.current
	}
	return out
}
