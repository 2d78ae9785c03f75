package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaller93/es-middleware-sub003/errors"
)

type sessionKey struct{ c *Coordinator }

// unit is the state shared by a session and its reentrant children.
type unit struct {
	mu           sync.Mutex
	begun        []Resource
	finished     bool
	rollbackOnly bool
	released     bool
}

// Session is a granted lock. An exclusive session owns a transaction on
// every resource; Commit or Rollback ends it and Unlock releases the lock.
// A session obtained reentrantly shares its parent's unit: its Commit is a
// no-op and its Rollback marks the unit rollback-only.
type Session struct {
	c        *Coordinator
	id       string
	owner    string
	mode     Mode
	nested   bool
	acquired time.Time

	unit *unit
	span trace.Span

	once sync.Once
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Owner returns the owner given to Lock.
func (s *Session) Owner() string { return s.owner }

// Mode returns the lock mode.
func (s *Session) Mode() Mode { return s.mode }

// Context returns ctx carrying the session and its span, so Lock and
// RLock calls made with it are reentrant.
func (s *Session) Context(ctx context.Context) context.Context {
	return trace.ContextWithSpan(context.WithValue(ctx, sessionKey{s.c}, s), s.span)
}

func (c *Coordinator) sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{c}).(*Session)
	if s == nil {
		return nil
	}
	s.unit.mu.Lock()
	defer s.unit.mu.Unlock()
	if s.unit.released {
		return nil
	}
	return s
}

// Lock acquires the exclusive lock for owner and begins a transaction on
// every resource. It waits until ctx's deadline, or the configured timeout
// when ctx has none, and returns a *errors.LockTimeoutError on expiry. A
// halted coordinator returns an error wrapping errors.ErrHalted and the
// *errors.PartialCommitError.
func (c *Coordinator) Lock(ctx context.Context, owner string) (*Session, error) {
	if parent := c.sessionFrom(ctx); parent != nil {
		if parent.mode != Exclusive {
			return nil, errors.WrapInvalid(ErrUpgrade, "Coordinator", "Lock", "reenter "+parent.owner)
		}
		return parent.child(owner, Exclusive), nil
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.session",
		trace.WithAttributes(attribute.String("esm.lock.owner", owner), attribute.String("esm.lock.mode", "exclusive")))
	if err := c.acquire(ctx, Exclusive, owner); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock not acquired")
		span.End()
		return nil, err
	}

	s := c.newSession(owner, Exclusive, span)
	for _, r := range c.resources {
		if err := r.Begin(ctx); err != nil {
			s.rollbackBegun(ctx)
			s.unit.finished = true
			s.Unlock()
			return nil, errors.Wrap(err, "Coordinator", "Lock", "begin "+r.Name())
		}
		s.unit.begun = append(s.unit.begun, r)
	}
	return s, nil
}

// RLock acquires the lock in shared mode. Shared sessions see a stable
// derived view but cannot write. Inside any session RLock is reentrant.
func (c *Coordinator) RLock(ctx context.Context, owner string) (*Session, error) {
	if parent := c.sessionFrom(ctx); parent != nil {
		return parent.child(owner, Shared), nil
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.session",
		trace.WithAttributes(attribute.String("esm.lock.owner", owner), attribute.String("esm.lock.mode", "shared")))
	if err := c.acquire(ctx, Shared, owner); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock not acquired")
		span.End()
		return nil, err
	}
	s := c.newSession(owner, Shared, span)
	s.unit.finished = true
	return s, nil
}

func (c *Coordinator) newSession(owner string, mode Mode, span trace.Span) *Session {
	s := &Session{
		c:        c,
		id:       uuid.NewString(),
		owner:    owner,
		mode:     mode,
		acquired: time.Now(),
		unit:     &unit{},
		span:     span,
	}
	span.SetAttributes(attribute.String("esm.lock.session", s.id))
	c.logger.Debug("Lock acquired", "owner", owner, "mode", mode, "session", s.id)
	return s
}

func (s *Session) child(owner string, mode Mode) *Session {
	if s.mode == Shared {
		mode = Shared
	}
	return &Session{
		c:        s.c,
		id:       s.id,
		owner:    owner,
		mode:     mode,
		nested:   true,
		acquired: time.Now(),
		unit:     s.unit,
		span:     s.span,
	}
}

// Commit commits every resource in order. If the first commit fails the
// remaining resources are rolled back and a *errors.CommitError is
// returned. If a commit fails after another resource committed, the rest
// are rolled back, the coordinator halts and a *errors.PartialCommitError
// is returned.
func (s *Session) Commit(ctx context.Context) error {
	if s.mode == Shared {
		return errors.WrapInvalid(ErrReadOnly, "Session", "Commit", "commit shared session")
	}
	if s.nested {
		return nil
	}

	u := s.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished {
		return errors.WrapInvalid(ErrSessionFinished, "Session", "Commit", "commit "+s.id)
	}
	u.finished = true

	if u.rollbackOnly {
		s.rollbackLocked(ctx, u.begun)
		return &errors.CommitError{Resource: "session", Err: ErrRollbackOnly}
	}

	var committed []string
	for i, r := range u.begun {
		err := r.Commit(ctx)
		if err == nil {
			committed = append(committed, r.Name())
			continue
		}
		// The failed resource and everything after it still hold a
		// transaction.
		s.rollbackLocked(ctx, u.begun[i:])
		if len(committed) == 0 {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, "commit failed")
			s.c.logger.Error("Commit failed, unit rolled back", "owner", s.owner, "resource", r.Name(), "error", err)
			return &errors.CommitError{Resource: r.Name(), Err: err}
		}
		pc := &errors.PartialCommitError{Committed: committed, Failed: r.Name(), Err: err}
		s.c.halt(pc)
		s.span.RecordError(pc)
		s.span.SetStatus(codes.Error, "partial commit")
		s.c.logger.Error("Partial commit, coordinator halted",
			"owner", s.owner, "committed", committed, "failed", r.Name(), "error", err)
		return pc
	}
	s.c.logger.Debug("Session committed", "owner", s.owner, "session", s.id)
	return nil
}

// Rollback restores every resource to its content at Lock.
func (s *Session) Rollback(ctx context.Context) error {
	if s.mode == Shared {
		return nil
	}
	u := s.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if s.nested {
		u.rollbackOnly = true
		return nil
	}
	if u.finished {
		return errors.WrapInvalid(ErrSessionFinished, "Session", "Rollback", "roll back "+s.id)
	}
	u.finished = true
	return s.rollbackLocked(ctx, u.begun)
}

// rollbackLocked rolls back resources in reverse order. Caller holds
// s.unit.mu.
func (s *Session) rollbackLocked(ctx context.Context, resources []Resource) error {
	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i].Rollback(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", resources[i].Name(), err))
		}
	}
	if s.c.metrics != nil {
		s.c.metrics.Rollbacks.Inc()
	}
	s.c.logger.Debug("Session rolled back", "owner", s.owner, "session", s.id)
	if len(errs) > 0 {
		return errors.WrapFatal(stderrors.Join(errs...), "Session", "Rollback", "roll back resources")
	}
	return nil
}

func (s *Session) rollbackBegun(ctx context.Context) {
	s.unit.mu.Lock()
	defer s.unit.mu.Unlock()
	_ = s.rollbackLocked(ctx, s.unit.begun)
}

// Unlock releases the lock. An exclusive session that was neither
// committed nor rolled back is rolled back first. Unlocking a reentrant
// session only ends that scope.
func (s *Session) Unlock() {
	if s.nested {
		return
	}
	s.once.Do(func() {
		u := s.unit
		u.mu.Lock()
		if !u.finished {
			u.finished = true
			if err := s.rollbackLocked(context.Background(), u.begun); err != nil {
				s.c.logger.Error("Implicit rollback failed", "owner", s.owner, "error", err)
			}
		}
		u.released = true
		u.mu.Unlock()

		s.c.release(s.mode)
		s.span.SetAttributes(attribute.Int64("esm.lock.held_ms", time.Since(s.acquired).Milliseconds()))
		s.span.End()
		s.c.logger.Debug("Lock released", "owner", s.owner, "mode", s.mode, "session", s.id)
	})
}
