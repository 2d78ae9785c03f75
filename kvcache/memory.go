package kvcache

import (
	"bytes"
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/khaller93/es-middleware-sub003/errors"
)

type pendingWrite struct {
	value   []byte
	deleted bool
}

// MemoryCache is an in-process Cache. Pending writes are buffered until
// Commit and discarded on Rollback.
type MemoryCache struct {
	mu        sync.RWMutex
	committed map[string][]byte
	pending   map[string]pendingWrite
	closed    bool

	stats   *Statistics
	metrics *cacheMetrics
	logger  *slog.Logger
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(opts ...Option) (*MemoryCache, error) {
	o := applyOptions(opts...)
	m, err := o.metrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "MemoryCache", "NewMemoryCache", "metrics registration")
	}
	return &MemoryCache{
		committed: make(map[string][]byte),
		stats:     NewStatistics(),
		metrics:   m,
		logger:    o.logger.With("component", "kvcache", "backend", "memory"),
	}, nil
}

// Get returns the value for key, including a pending write of the open
// session.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrClosed
	}

	var (
		v  []byte
		ok bool
	)
	if w, staged := c.pending[key]; staged {
		v, ok = w.value, !w.deleted
	} else {
		v, ok = c.committed[key]
	}
	if ok {
		c.stats.hit()
	} else {
		c.stats.miss()
	}
	c.metrics.recordRead(ok)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Put stages a write in the open session.
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return errors.WrapInvalid(err, "MemoryCache", "Put", "validate key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writable("Put"); err != nil {
		return err
	}
	c.pending[key] = pendingWrite{value: bytes.Clone(value)}
	c.stats.put()
	c.metrics.recordWrite("put")
	return nil
}

// Delete stages a delete in the open session. Deleting a missing key is
// not an error.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writable("Delete"); err != nil {
		return err
	}
	c.pending[key] = pendingWrite{deleted: true}
	c.stats.delete()
	c.metrics.recordWrite("delete")
	return nil
}

func (c *MemoryCache) writable(method string) error {
	if c.closed {
		return errors.WrapInvalid(ErrClosed, "MemoryCache", method, "check state")
	}
	if c.pending == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "MemoryCache", method, "check session")
	}
	return nil
}

// Keys returns the visible keys starting with prefix, sorted.
func (c *MemoryCache) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	keys := make(map[string]struct{})
	for k := range c.committed {
		if strings.HasPrefix(k, prefix) {
			keys[k] = struct{}{}
		}
	}
	for k, w := range c.pending {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if w.deleted {
			delete(keys, k)
		} else {
			keys[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(keys)), nil
}

// Snapshot returns a copy of the committed content.
func (c *MemoryCache) Snapshot(_ context.Context) (map[string][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(c.committed))
	for k, v := range c.committed {
		out[k] = bytes.Clone(v)
	}
	return out, nil
}

// Name implements the coordinator resource contract.
func (c *MemoryCache) Name() string { return ResourceName }

// Begin opens a write session.
func (c *MemoryCache) Begin(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.WrapInvalid(ErrClosed, "MemoryCache", "Begin", "check state")
	}
	if c.pending != nil {
		return errors.WrapInvalid(ErrSessionActive, "MemoryCache", "Begin", "open session")
	}
	c.pending = make(map[string]pendingWrite)
	return nil
}

// Commit applies the staged writes.
func (c *MemoryCache) Commit(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "MemoryCache", "Commit", "check session")
	}
	for k, w := range c.pending {
		if w.deleted {
			delete(c.committed, k)
		} else {
			c.committed[k] = w.value
		}
	}
	c.logger.Debug("cache session committed", "writes", len(c.pending), "entries", len(c.committed))
	c.pending = nil
	c.stats.commit()
	c.metrics.recordSession("committed", len(c.committed))
	return nil
}

// Rollback discards the staged writes.
func (c *MemoryCache) Rollback(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "MemoryCache", "Rollback", "check session")
	}
	c.logger.Debug("cache session rolled back", "discarded", len(c.pending))
	c.pending = nil
	c.stats.rollback()
	c.metrics.recordSession("rolled_back", -1)
	return nil
}

// Stats returns the cache statistics.
func (c *MemoryCache) Stats() *Statistics { return c.stats }

// Close releases the cache. An open session is discarded.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = nil
	return nil
}
