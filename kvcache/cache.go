package kvcache

import (
	"context"
	stderrors "errors"

	"github.com/khaller93/es-middleware-sub003/errors"
)

// ResourceName is the name caches report to the coordinator.
const ResourceName = "cache"

// Errors returned by cache implementations
var (
	ErrNoActiveSession = errors.ErrNoActiveSession
	ErrSessionActive   = stderrors.New("cache session already active")
	ErrInvalidKey      = stderrors.New("invalid cache key")
	ErrClosed          = stderrors.New("cache closed")
)

// Cache is the persisted key/value cache owned by the synchronization
// engine. Writes are only accepted between Begin and Commit or Rollback,
// which the coordinator drives. Reads are always allowed and see pending
// writes of the open session.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys returns the keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Snapshot returns a copy of the committed content.
	Snapshot(ctx context.Context) (map[string][]byte, error)

	Name() string
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	Stats() *Statistics
	Close() error
}

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
