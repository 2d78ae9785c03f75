package pgs

import (
	"sync"

	"github.com/google/uuid"
)

// BlankScope assigns vertex identities to blank node labels.
type BlankScope interface {
	Identify(label string) string
}

// LabelScope keeps the label issued by the primary store, written "_:label".
// Identities are stable for as long as the store keeps its labels, which
// the incremental strategy requires.
type LabelScope struct{}

// Identify returns "_:" + label.
func (LabelScope) Identify(label string) string {
	return "_:" + label
}

// SkolemScope mints a fresh "urn:uuid:" identity for every label it has not
// seen before. Identities are stable within one scope only, so a new scope
// is created per synchronization pass. It is only usable with full-clone
// synchronization.
type SkolemScope struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewSkolemScope returns an empty scope.
func NewSkolemScope() *SkolemScope {
	return &SkolemScope{ids: make(map[string]string)}
}

// Identify returns the identity minted for label in this scope.
func (s *SkolemScope) Identify(label string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[label]; ok {
		return id
	}
	id := "urn:uuid:" + uuid.NewString()
	s.ids[label] = id
	return id
}
