package kvcache

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/pkg/badgerdb"
)

// BadgerCache is a Cache persisted in BadgerDB. A session maps to one
// read-write badger transaction: Commit commits it and Rollback discards it.
type BadgerCache struct {
	db     *badgerdb.DB
	ownsDB bool

	mu  sync.Mutex
	txn *badger.Txn

	stats   *Statistics
	metrics *cacheMetrics
	logger  *slog.Logger
}

var _ Cache = (*BadgerCache)(nil)

// OpenBadgerCache opens the database described by cfg and returns a cache
// that closes it on Close.
func OpenBadgerCache(cfg badgerdb.Config, opts ...Option) (*BadgerCache, error) {
	db, err := badgerdb.Open(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewBadgerCache(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// NewBadgerCache returns a cache over an open database. The caller keeps
// ownership of db.
func NewBadgerCache(db *badgerdb.DB, opts ...Option) (*BadgerCache, error) {
	o := applyOptions(opts...)
	m, err := o.metrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "BadgerCache", "NewBadgerCache", "metrics registration")
	}
	return &BadgerCache{
		db:      db,
		stats:   NewStatistics(),
		metrics: m,
		logger:  o.logger.With("component", "kvcache", "backend", "badger"),
	}, nil
}

// view runs fn in the open session transaction, or in a read-only one.
// Caller holds c.mu.
func (c *BadgerCache) view(fn func(txn *badger.Txn) error) error {
	if c.txn != nil {
		return fn(c.txn)
	}
	return c.db.View(fn)
}

// Get returns the value for key, including a pending write of the open
// session.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, errors.WrapInvalid(err, "BadgerCache", "Get", "validate key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var value []byte
	err := c.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case stderrors.Is(err, badger.ErrKeyNotFound):
		c.stats.miss()
		c.metrics.recordRead(false)
		return nil, false, nil
	case err != nil:
		return nil, false, errors.WrapTransient(err, "BadgerCache", "Get", "read "+key)
	}
	c.stats.hit()
	c.metrics.recordRead(true)
	return value, true, nil
}

// Put stages a write in the open session.
func (c *BadgerCache) Put(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return errors.WrapInvalid(err, "BadgerCache", "Put", "validate key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "BadgerCache", "Put", "check session")
	}
	if err := c.txn.Set([]byte(key), value); err != nil {
		return errors.WrapTransient(err, "BadgerCache", "Put", "write "+key)
	}
	c.stats.put()
	c.metrics.recordWrite("put")
	return nil
}

// Delete stages a delete in the open session.
func (c *BadgerCache) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return errors.WrapInvalid(err, "BadgerCache", "Delete", "validate key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "BadgerCache", "Delete", "check session")
	}
	if err := c.txn.Delete([]byte(key)); err != nil {
		return errors.WrapTransient(err, "BadgerCache", "Delete", "delete "+key)
	}
	c.stats.delete()
	c.metrics.recordWrite("delete")
	return nil
}

// Keys returns the visible keys starting with prefix, sorted.
func (c *BadgerCache) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	err := c.view(func(txn *badger.Txn) error {
		p := []byte(prefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: p})
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "BadgerCache", "Keys", "iterate "+prefix)
	}
	return keys, nil
}

// Snapshot returns a copy of the committed content.
func (c *BadgerCache) Snapshot(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.KeyCopy(nil))] = v
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "BadgerCache", "Snapshot", "iterate")
	}
	return out, nil
}

// Name implements the coordinator resource contract.
func (c *BadgerCache) Name() string { return ResourceName }

// Begin opens a read-write transaction.
func (c *BadgerCache) Begin(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn != nil {
		return errors.WrapInvalid(ErrSessionActive, "BadgerCache", "Begin", "open session")
	}
	c.txn = c.db.NewTransaction(true)
	return nil
}

// Commit commits the session transaction. A conflict or oversize error
// leaves the committed content unchanged.
func (c *BadgerCache) Commit(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "BadgerCache", "Commit", "check session")
	}
	txn := c.txn
	c.txn = nil
	if err := txn.Commit(); err != nil {
		c.stats.rollback()
		c.metrics.recordSession("failed", -1)
		return errors.WrapTransient(err, "BadgerCache", "Commit", "commit transaction")
	}
	c.stats.commit()
	c.metrics.recordSession("committed", -1)
	return nil
}

// Rollback discards the session transaction.
func (c *BadgerCache) Rollback(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return errors.WrapInvalid(ErrNoActiveSession, "BadgerCache", "Rollback", "check session")
	}
	c.txn.Discard()
	c.txn = nil
	c.stats.rollback()
	c.metrics.recordSession("rolled_back", -1)
	c.logger.Debug("cache session rolled back")
	return nil
}

// Stats returns the cache statistics.
func (c *BadgerCache) Stats() *Statistics { return c.stats }

// Close discards an open session and closes the database if the cache
// opened it.
func (c *BadgerCache) Close() error {
	c.mu.Lock()
	if c.txn != nil {
		c.txn.Discard()
		c.txn = nil
	}
	c.mu.Unlock()
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}
