package event

import (
	"math/rand/v2"
	"sync/atomic"
)

// CorrelationSource issues correlation ids. Ids increase monotonically from
// a seed and wrap to zero on overflow. Next never blocks.
type CorrelationSource struct {
	next atomic.Uint64
}

// NewCorrelationSource returns a source seeded with a random value.
func NewCorrelationSource() *CorrelationSource {
	return NewCorrelationSourceFrom(rand.Uint64())
}

// NewCorrelationSourceFrom returns a source whose first id is seed.
func NewCorrelationSourceFrom(seed uint64) *CorrelationSource {
	s := &CorrelationSource{}
	s.next.Store(seed)
	return s
}

// Next returns a fresh correlation id.
func (s *CorrelationSource) Next() uint64 {
	return s.next.Add(1) - 1
}
