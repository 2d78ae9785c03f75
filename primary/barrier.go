package primary

import (
	"context"
	"slices"
	"sync"
)

// AckBarrier forwards an acknowledgement to the store only once every
// consumer of a change has acknowledged it.
type AckBarrier struct {
	next      Acknowledger
	consumers int
	limit     int

	mu     sync.Mutex
	counts map[uint64]int
	order  []uint64
}

// NewAckBarrier returns a barrier for the given number of consumers. At
// most limit partially acknowledged changes are tracked; the oldest is
// dropped first. A non-positive limit uses 4096.
func NewAckBarrier(next Acknowledger, consumers, limit int) *AckBarrier {
	if consumers < 1 {
		consumers = 1
	}
	if limit <= 0 {
		limit = 4096
	}
	return &AckBarrier{next: next, consumers: consumers, limit: limit, counts: make(map[uint64]int)}
}

// Acknowledge records one consumer's acknowledgement of correlationID.
func (b *AckBarrier) Acknowledge(ctx context.Context, correlationID uint64) error {
	b.mu.Lock()
	n := b.counts[correlationID] + 1
	if n < b.consumers {
		if n == 1 {
			b.order = append(b.order, correlationID)
		}
		b.counts[correlationID] = n
		b.trimLocked()
		b.mu.Unlock()
		return nil
	}
	if _, ok := b.counts[correlationID]; ok {
		delete(b.counts, correlationID)
		if i := slices.Index(b.order, correlationID); i >= 0 {
			b.order = slices.Delete(b.order, i, i+1)
		}
	}
	b.mu.Unlock()
	return b.next.Acknowledge(ctx, correlationID)
}

// Outstanding returns the number of partially acknowledged changes.
func (b *AckBarrier) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.counts)
}

// trimLocked drops the earliest tracked changes. Correlation ids wrap, so
// age is insertion order, not numeric order.
func (b *AckBarrier) trimLocked() {
	for len(b.order) > b.limit {
		delete(b.counts, b.order[0])
		b.order = b.order[1:]
	}
}
