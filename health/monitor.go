package health

import (
	"context"
	"slices"
	"sync"

	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/status"
)

// Monitor tracks the health of every DAO from its transition events.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	expected []status.DAO
}

// NewMonitor creates a monitor. DAOs listed in expected are reported as
// degraded until their first transition.
func NewMonitor(expected ...status.DAO) *Monitor {
	m := &Monitor{statuses: make(map[string]Status), expected: expected}
	for _, dao := range expected {
		m.statuses[string(dao)] = FromTransition(status.TransitionEvent{DAO: dao, New: status.Uninitialized})
	}
	return m
}

// Observe records a transition.
func (m *Monitor) Observe(ev status.TransitionEvent) {
	m.Update(string(ev.DAO), FromTransition(ev))
}

// Publish implements status.Publisher.
func (m *Monitor) Publish(ev status.TransitionEvent) { m.Observe(ev) }

// Follow keeps the monitor current with every DAO event published on bus.
func (m *Monitor) Follow(bus *event.Bus) (*event.Subscription, error) {
	return bus.Subscribe(event.AnyDAO, nil, func(_ context.Context, ev status.TransitionEvent) {
		m.Observe(ev)
	})
}

// Update updates the health status for a named component
func (m *Monitor) Update(name string, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Component = name
	m.statuses[name] = s
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[name]
	return s, ok
}

// GetAll returns a copy of all current health statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.statuses))
	for name, s := range m.statuses {
		out[name] = s
	}
	return out
}

// AggregateHealth returns the health of the whole system, with one
// sub-status per DAO ordered by name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.statuses))
	for _, s := range m.statuses {
		subs = append(subs, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(subs, func(a, b Status) int {
		switch {
		case a.Component < b.Component:
			return -1
		case a.Component > b.Component:
			return 1
		}
		return 0
	})
	return Aggregate(systemName, subs)
}
