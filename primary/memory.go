package primary

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/rdf"
	"github.com/khaller93/es-middleware-sub003/status"
)

// MemoryStore is an in-process triple store with an in-memory change log.
type MemoryStore struct {
	lifecycle

	mu      sync.RWMutex
	triples *rdf.Set
	changes map[uint64]Delta
	order   []uint64
	limit   int
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ Writer       = (*MemoryStore)(nil)
	_ Acknowledger = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store that reports its status through
// tracker and draws correlation ids from ids.
func NewMemoryStore(tracker *status.Tracker, ids *event.CorrelationSource, opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		lifecycle: lifecycle{
			tracker: tracker,
			ids:     ids,
			logger:  o.logger.With("component", "primary", "backend", "memory"),
		},
		triples: rdf.NewSet(),
		changes: make(map[uint64]Delta),
		limit:   o.changeLogSize,
	}
}

// Boot moves the primary DAO through BOOTING to READY, loading seed
// N-Triples when seed is not nil.
func (s *MemoryStore) Boot(ctx context.Context, seed io.Reader) error {
	return s.boot(ctx, "MemoryStore", seed, func(triples []rdf.Triple) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, t := range triples {
			s.triples.Add(t)
		}
		return nil
	})
}

// Apply removes and adds triples as one write.
func (s *MemoryStore) Apply(ctx context.Context, added, removed []rdf.Triple) (Delta, error) {
	contains := func(t rdf.Triple) (bool, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.triples.Contains(t), nil
	}
	return s.write(ctx, "MemoryStore", added, removed, contains, s.commit)
}

func (s *MemoryStore) commit(d Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range d.Removed {
		s.triples.Remove(t)
	}
	for _, t := range d.Added {
		s.triples.Add(t)
	}
	s.changes[d.CorrelationID] = d
	s.order = append(s.order, d.CorrelationID)
	if s.limit > 0 {
		for len(s.order) > s.limit {
			delete(s.changes, s.order[0])
			s.order = s.order[1:]
		}
	}
	return nil
}

// Insert adds triples.
func (s *MemoryStore) Insert(ctx context.Context, triples ...rdf.Triple) (Delta, error) {
	return s.Apply(ctx, triples, nil)
}

// Remove deletes triples.
func (s *MemoryStore) Remove(ctx context.Context, triples ...rdf.Triple) (Delta, error) {
	return s.Apply(ctx, nil, triples)
}

// StreamAllTriples calls fn for a snapshot of every triple.
func (s *MemoryStore) StreamAllTriples(ctx context.Context, fn func(rdf.Triple) error) error {
	s.mu.RLock()
	snapshot := s.triples.Triples()
	s.mu.RUnlock()

	for _, t := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// ChangedTriples returns the delta recorded for correlationID.
func (s *MemoryStore) ChangedTriples(_ context.Context, correlationID uint64) (Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.changes[correlationID]
	if !ok {
		return Delta{}, errors.WrapInvalid(ErrUnknownChange, "MemoryStore", "ChangedTriples",
			fmt.Sprintf("look up %d", correlationID))
	}
	return d, nil
}

// Acknowledge drops the change log entry for correlationID.
func (s *MemoryStore) Acknowledge(_ context.Context, correlationID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.changes[correlationID]; !ok {
		return nil
	}
	delete(s.changes, correlationID)
	for i, id := range s.order {
		if id == correlationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored triples.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triples.Len()
}

// Contains reports whether t is stored.
func (s *MemoryStore) Contains(t rdf.Triple) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triples.Contains(t)
}

// PendingChanges returns the number of unacknowledged change log entries.
func (s *MemoryStore) PendingChanges() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.changes)
}

// Export writes every triple as N-Triples.
func (s *MemoryStore) Export(ctx context.Context, w io.Writer) error {
	return export(ctx, s, w)
}

func export(ctx context.Context, st Store, w io.Writer) error {
	enc := rdf.NewEncoder(w)
	if err := st.StreamAllTriples(ctx, enc.Encode); err != nil {
		return err
	}
	return enc.Flush()
}
