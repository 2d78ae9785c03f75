package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
)

// WithLock runs fn under the exclusive lock. A nil result commits the
// unit; an error or a panic rolls it back. The lock is always released
// and a panic is re-raised after rollback. fn receives a context carrying
// the session, so nested WithLock calls are reentrant.
func (c *Coordinator) WithLock(ctx context.Context, owner string, fn func(ctx context.Context, s *Session) error) (err error) {
	s, err := c.Lock(ctx, owner)
	if err != nil {
		return err
	}
	defer s.Unlock()

	defer func() {
		if r := recover(); r != nil {
			_ = s.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(s.Context(ctx), s); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			return stderrors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return s.Commit(ctx)
}

// WithRLock runs fn under the shared lock.
func (c *Coordinator) WithRLock(ctx context.Context, owner string, fn func(ctx context.Context) error) error {
	s, err := c.RLock(ctx, owner)
	if err != nil {
		return err
	}
	defer s.Unlock()
	return fn(s.Context(ctx))
}
