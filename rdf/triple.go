package rdf

import "strings"

// Triple is a single RDF statement.
type Triple struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

// NewTriple returns a triple of the three terms.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// String returns the triple as one N-Triples statement without the
// trailing newline.
func (t Triple) String() string {
	var b strings.Builder
	b.WriteString(t.Subject.String())
	b.WriteByte(' ')
	b.WriteString(t.Predicate.String())
	b.WriteByte(' ')
	b.WriteString(t.Object.String())
	b.WriteString(" .")
	return b.String()
}

// Key returns a canonical identity for the triple, suitable as a map key.
// Equal triples have equal keys.
func (t Triple) Key() string {
	return t.Subject.normalized().String() + " " +
		t.Predicate.normalized().String() + " " +
		t.Object.normalized().String()
}

// Equal reports whether two triples are the same statement.
func (t Triple) Equal(o Triple) bool {
	return t.Subject.Equal(o.Subject) && t.Predicate.Equal(o.Predicate) && t.Object.Equal(o.Object)
}

// Set is an unordered set of triples keyed by Triple.Key.
type Set struct {
	index map[string]int
	items []Triple
}

// NewSet returns a set containing the given triples.
func NewSet(triples ...Triple) *Set {
	s := &Set{index: make(map[string]int, len(triples))}
	for _, t := range triples {
		s.Add(t)
	}
	return s
}

// Add inserts t and reports whether it was absent.
func (s *Set) Add(t Triple) bool {
	k := t.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, t)
	return true
}

// Remove deletes t and reports whether it was present.
func (s *Set) Remove(t Triple) bool {
	k := t.Key()
	i, ok := s.index[k]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		s.items[i] = s.items[last]
		s.index[s.items[i].Key()] = i
	}
	s.items = s.items[:last]
	delete(s.index, k)
	return true
}

// Contains reports whether t is in the set.
func (s *Set) Contains(t Triple) bool {
	_, ok := s.index[t.Key()]
	return ok
}

// Len returns the number of triples.
func (s *Set) Len() int {
	return len(s.items)
}

// Triples returns a copy of the members.
func (s *Set) Triples() []Triple {
	out := make([]Triple, len(s.items))
	copy(out, s.items)
	return out
}
