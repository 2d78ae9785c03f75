package kvcache

import (
	"sync/atomic"
	"time"
)

// Statistics tracks cache activity. Counters are always collected; a
// metrics registry is optional.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	puts      atomic.Int64
	deletes   atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
	startTime time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) hit()      { s.hits.Add(1) }
func (s *Statistics) miss()     { s.misses.Add(1) }
func (s *Statistics) put()      { s.puts.Add(1) }
func (s *Statistics) delete()   { s.deletes.Add(1) }
func (s *Statistics) commit()   { s.commits.Add(1) }
func (s *Statistics) rollback() { s.rollbacks.Add(1) }

// Hits returns the number of reads that found a value.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of reads that found nothing.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Puts returns the number of accepted writes.
func (s *Statistics) Puts() int64 { return s.puts.Load() }

// Deletes returns the number of accepted deletes.
func (s *Statistics) Deletes() int64 { return s.deletes.Load() }

// Commits returns the number of committed sessions.
func (s *Statistics) Commits() int64 { return s.commits.Load() }

// Rollbacks returns the number of rolled back sessions.
func (s *Statistics) Rollbacks() int64 { return s.rollbacks.Load() }

// HitRatio returns hits / (hits + misses), or 0 before any read.
func (s *Statistics) HitRatio() float64 {
	h, m := s.Hits(), s.Misses()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// Uptime returns the time since the statistics were created.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(s.startTime)
}
