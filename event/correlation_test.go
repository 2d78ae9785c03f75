package event

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationSource_Monotonic(t *testing.T) {
	s := NewCorrelationSourceFrom(10)
	assert.Equal(t, uint64(10), s.Next())
	assert.Equal(t, uint64(11), s.Next())
}

func TestCorrelationSource_Wraps(t *testing.T) {
	s := NewCorrelationSourceFrom(math.MaxUint64)
	assert.Equal(t, uint64(math.MaxUint64), s.Next())
	assert.Equal(t, uint64(0), s.Next())
}

func TestCorrelationSource_Unique(t *testing.T) {
	s := NewCorrelationSource()
	var (
		mu   sync.Mutex
		seen = map[uint64]bool{}
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := s.Next()
				mu.Lock()
				assert.False(t, seen[id])
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 4000)
}
