package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/khaller93/es-middleware-sub003/status"
)

// EventRecorder is a status.Publisher that stores every transition in
// publish order.
type EventRecorder struct {
	mu     sync.RWMutex
	events []status.TransitionEvent
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records ev.
func (r *EventRecorder) Publish(ev status.TransitionEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns the recorded transitions of dao, or of every DAO when
// dao is empty.
func (r *EventRecorder) Events(dao status.DAO) []status.TransitionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []status.TransitionEvent
	for _, ev := range r.events {
		if dao == "" || ev.DAO == dao {
			out = append(out, ev)
		}
	}
	return out
}

// Statuses returns the New status of each recorded transition of dao.
func (r *EventRecorder) Statuses(dao status.DAO) []status.DAOStatus {
	var out []status.DAOStatus
	for _, ev := range r.Events(dao) {
		out = append(out, ev.New)
	}
	return out
}

// ForCorrelation returns the transitions of dao carrying correlationID.
func (r *EventRecorder) ForCorrelation(dao status.DAO, correlationID uint64) []status.TransitionEvent {
	var out []status.TransitionEvent
	for _, ev := range r.Events(dao) {
		if ev.CorrelationID == correlationID {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops every recorded transition.
func (r *EventRecorder) Clear() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// WaitForStatus waits until dao has published a transition to want that
// carries correlationID, and returns it.
func WaitForStatus(t *testing.T, r *EventRecorder, dao status.DAO, correlationID uint64,
	want status.DAOStatus, timeout time.Duration) status.TransitionEvent {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		for _, ev := range r.ForCorrelation(dao, correlationID) {
			if ev.New == want {
				return ev
			}
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %s %s (correlation %d), got %v",
				dao, want, correlationID, r.Statuses(dao))
			return status.TransitionEvent{}
		case <-ticker.C:
		}
	}
}

// WaitForCount waits until dao has published at least n transitions.
func WaitForCount(t *testing.T, r *EventRecorder, dao status.DAO, n int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for len(r.Events(dao)) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d %s transitions, got %v", n, dao, r.Statuses(dao))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
