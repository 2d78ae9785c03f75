package fulltext

import (
	"slices"
	"strings"
	"sync"

	"github.com/khaller93/es-middleware-sub003/rdf"
)

// Hit is one search result.
type Hit struct {
	// Subject is the IRI, or "_:label" for a blank node.
	Subject string `json:"subject"`
	// Score is the number of query tokens the subject matched.
	Score int `json:"score"`
}

// Index is an inverted index from literal tokens to the subjects the
// literals describe. Only triples with a literal object are indexed.
type Index struct {
	mu         sync.RWMutex
	predicates map[string]struct{}
	// docs maps subject -> triple key -> tokens of the triple's literal.
	docs     map[string]map[string][]string
	postings map[string]map[string]int
}

// NewIndex returns an empty index over literals of the given predicates,
// or of every predicate when none are given.
func NewIndex(predicates ...string) *Index {
	x := &Index{
		docs:     make(map[string]map[string][]string),
		postings: make(map[string]map[string]int),
	}
	if len(predicates) > 0 {
		x.predicates = make(map[string]struct{}, len(predicates))
		for _, p := range predicates {
			x.predicates[p] = struct{}{}
		}
	}
	return x
}

func subjectID(t rdf.Term) string {
	if t.Kind == rdf.KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

func (x *Index) indexed(t rdf.Triple) bool {
	if !t.Object.IsLiteral() || !t.Subject.IsResource() {
		return false
	}
	if x.predicates == nil {
		return true
	}
	_, ok := x.predicates[t.Predicate.Value]
	return ok
}

// Add indexes t and reports whether the index changed.
func (x *Index) Add(t rdf.Triple) bool {
	if !x.indexed(t) {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.addLocked(t)
}

func (x *Index) addLocked(t rdf.Triple) bool {
	subject, key := subjectID(t.Subject), t.Key()
	doc := x.docs[subject]
	if doc == nil {
		doc = make(map[string][]string)
		x.docs[subject] = doc
	}
	if _, ok := doc[key]; ok {
		return false
	}
	tokens := Tokenize(t.Object.Value)
	doc[key] = tokens
	for _, tok := range tokens {
		p := x.postings[tok]
		if p == nil {
			p = make(map[string]int)
			x.postings[tok] = p
		}
		p[subject]++
	}
	return true
}

// Remove drops t from the index and reports whether the index changed.
func (x *Index) Remove(t rdf.Triple) bool {
	if !x.indexed(t) {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(t)
}

func (x *Index) removeLocked(t rdf.Triple) bool {
	subject, key := subjectID(t.Subject), t.Key()
	doc := x.docs[subject]
	tokens, ok := doc[key]
	if !ok {
		return false
	}
	delete(doc, key)
	if len(doc) == 0 {
		delete(x.docs, subject)
	}
	for _, tok := range tokens {
		p := x.postings[tok]
		if p[subject]--; p[subject] <= 0 {
			delete(p, subject)
		}
		if len(p) == 0 {
			delete(x.postings, tok)
		}
	}
	return true
}

// Apply removes then adds triples under one lock, so searches never see
// half a delta.
func (x *Index) Apply(added, removed []rdf.Triple) (changed int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, t := range removed {
		if x.indexed(t) && x.removeLocked(t) {
			changed++
		}
	}
	for _, t := range added {
		if x.indexed(t) && x.addLocked(t) {
			changed++
		}
	}
	return changed
}

// Replace swaps the contents of x for those of next.
func (x *Index) Replace(next *Index) {
	next.mu.RLock()
	docs, postings := next.docs, next.postings
	next.mu.RUnlock()

	x.mu.Lock()
	x.docs, x.postings = docs, postings
	x.mu.Unlock()
}

// Search returns subjects matching at least one token of query, best
// match first and ties by subject. A non-positive limit returns every hit.
func (x *Index) Search(query string, limit int) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	x.mu.RLock()
	scores := make(map[string]int)
	for _, tok := range tokens {
		for subject := range x.postings[tok] {
			scores[subject]++
		}
	}
	x.mu.RUnlock()

	hits := make([]Hit, 0, len(scores))
	for s, n := range scores {
		hits = append(hits, Hit{Subject: s, Score: n})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Subject, b.Subject)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Documents returns the number of indexed subjects.
func (x *Index) Documents() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Terms returns the number of distinct tokens.
func (x *Index) Terms() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.postings)
}

// predicateList returns the configured predicates, or nil for all.
func (x *Index) predicateList() []string {
	if x.predicates == nil {
		return nil
	}
	out := make([]string, 0, len(x.predicates))
	for p := range x.predicates {
		out = append(out, p)
	}
	return out
}
