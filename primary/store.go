package primary

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
)

// ErrUnknownChange is returned by ChangedTriples when no change log entry
// exists for a correlation id, either because it was never issued or
// because the entry was pruned.
var ErrUnknownChange = stderrors.New("no change recorded for correlation id")

// Delta is the net change of one write: triples that became present and
// triples that became absent.
type Delta struct {
	CorrelationID uint64       `json:"correlation_id"`
	Added         []rdf.Triple `json:"added"`
	Removed       []rdf.Triple `json:"removed"`
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Store is the read side of the authoritative triple store used by the
// synchronization strategies.
type Store interface {
	// StreamAllTriples calls fn for every triple. Iteration stops at the
	// first error fn returns.
	StreamAllTriples(ctx context.Context, fn func(rdf.Triple) error) error
	// ChangedTriples returns the delta of the write that published
	// correlationID.
	ChangedTriples(ctx context.Context, correlationID uint64) (Delta, error)
}

// Acknowledger prunes change log entries once every consumer has applied
// them.
type Acknowledger interface {
	Acknowledge(ctx context.Context, correlationID uint64) error
}

// Writer modifies the store. Every effective write publishes
// READY→SYNCHRONIZING→READY for the primary DAO under a fresh correlation
// id, returned in the delta.
type Writer interface {
	Apply(ctx context.Context, added, removed []rdf.Triple) (Delta, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	changeLogSize int
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithChangeLogLimit bounds the number of unacknowledged change log
// entries kept by the memory store. Oldest entries are dropped first.
// Zero means unbounded.
func WithChangeLogLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.changeLogSize = n
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// lifecycle publishes the primary DAO transitions around boot and writes.
// writeMu serializes writes so each write's transitions are contiguous.
type lifecycle struct {
	tracker *status.Tracker
	ids     *event.CorrelationSource
	logger  *slog.Logger
	writeMu sync.Mutex
}

func (l *lifecycle) boot(ctx context.Context, component string, seed io.Reader, load func([]rdf.Triple) error) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	id := l.ids.Next()
	if err := l.tracker.SetStatus(status.Primary, status.Booting, id); err != nil {
		return err
	}
	if seed != nil {
		triples, err := rdf.DecodeAll(seed)
		if err == nil {
			for _, t := range triples {
				if err = validateTriple(t); err != nil {
					break
				}
			}
		}
		if err == nil {
			err = load(triples)
		}
		if err != nil {
			_ = l.tracker.SetFailed(status.Primary, id, err)
			return errors.WrapInvalid(err, component, "Boot", "load seed triples")
		}
		l.logger.Info("primary store seeded", "triples", len(triples), "correlation_id", id)
	}
	return l.tracker.SetStatus(status.Primary, status.Ready, id)
}

// write plans the net delta and, when it is not empty, commits it between
// the SYNCHRONIZING and READY transitions.
func (l *lifecycle) write(ctx context.Context, component string, added, removed []rdf.Triple,
	contains func(rdf.Triple) (bool, error), commit func(Delta) error) (Delta, error) {
	for _, t := range added {
		if err := validateTriple(t); err != nil {
			return Delta{}, errors.WrapInvalid(err, component, "Apply", "validate added triple")
		}
	}
	for _, t := range removed {
		if err := validateTriple(t); err != nil {
			return Delta{}, errors.WrapInvalid(err, component, "Apply", "validate removed triple")
		}
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	d, err := netDelta(added, removed, contains)
	if err != nil {
		return Delta{}, errors.WrapTransient(err, component, "Apply", "plan delta")
	}
	if d.Empty() {
		return d, nil
	}

	d.CorrelationID = l.ids.Next()
	if err := l.tracker.SetStatus(status.Primary, status.Synchronizing, d.CorrelationID); err != nil {
		return Delta{}, err
	}
	if err := commit(d); err != nil {
		_ = l.tracker.SetFailed(status.Primary, d.CorrelationID, err)
		return Delta{}, errors.Wrap(err, component, "Apply", "commit delta")
	}
	l.logger.Debug("primary store updated",
		"correlation_id", d.CorrelationID, "added", len(d.Added), "removed", len(d.Removed))
	if err := l.tracker.SetStatus(status.Primary, status.Ready, d.CorrelationID); err != nil {
		return Delta{}, err
	}
	return d, nil
}

// netDelta applies removals before additions: a triple listed in both ends
// up present.
func netDelta(added, removed []rdf.Triple, contains func(rdf.Triple) (bool, error)) (Delta, error) {
	var d Delta
	addSet := rdf.NewSet(added...)
	seen := rdf.NewSet()
	for _, t := range removed {
		if !seen.Add(t) || addSet.Contains(t) {
			continue
		}
		ok, err := contains(t)
		if err != nil {
			return Delta{}, err
		}
		if ok {
			d.Removed = append(d.Removed, t)
		}
	}
	for _, t := range addSet.Triples() {
		ok, err := contains(t)
		if err != nil {
			return Delta{}, err
		}
		if !ok {
			d.Added = append(d.Added, t)
		}
	}
	return d, nil
}

func validateTriple(t rdf.Triple) error {
	for _, term := range []rdf.Term{t.Subject, t.Predicate, t.Object} {
		if err := term.Validate(); err != nil {
			return err
		}
	}
	if !t.Subject.IsResource() {
		return stderrors.New("subject must be an IRI or blank node")
	}
	if t.Predicate.Kind != rdf.KindIRI {
		return stderrors.New("predicate must be an IRI")
	}
	return nil
}
