package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/metric"
)

// DefaultLockTimeout applies when neither the context nor the
// configuration sets a deadline.
const DefaultLockTimeout = 30 * time.Second

// Errors returned by the coordinator
var (
	ErrSessionFinished = stderrors.New("session already committed or rolled back")
	ErrSessionReleased = stderrors.New("session already unlocked")
	ErrReadOnly        = stderrors.New("shared session cannot commit changes")
	ErrUpgrade         = stderrors.New("cannot acquire exclusive lock while holding a shared lock")
	ErrRollbackOnly    = stderrors.New("nested session requested rollback")
)

// Resource is one transactional participant of the derived resource set.
// Begin is called when the exclusive lock is granted; exactly one of
// Commit or Rollback follows.
type Resource interface {
	Name() string
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Mode is the lock mode of a session.
type Mode int

const (
	// Exclusive admits one writer and no readers.
	Exclusive Mode = iota
	// Shared admits any number of readers and no writer.
	Shared
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case Exclusive:
		return "exclusive"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

type waiter struct {
	mode    Mode
	ready   chan struct{}
	granted bool
}

// Coordinator serializes writers of the derived resource set and commits
// or rolls back every resource as one unit. Waiters are served in arrival
// order; consecutive shared waiters are admitted together.
type Coordinator struct {
	resources []Resource

	mu      sync.Mutex
	queue   []*waiter
	writer  bool
	readers int
	halted  *errors.PartialCommitError

	timeout time.Duration
	metrics *metric.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the lock timeout used when ctx has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records lock waits, timeouts, rollbacks and partial commits.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the tracer provider for session spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

const tracerName = "github.com/khaller93/es-middleware-sub003/coordinator"

// New returns a coordinator over the given resources. Commit order follows
// the argument order.
func New(resources []Resource, opts ...Option) *Coordinator {
	c := &Coordinator{
		resources: resources,
		timeout:   DefaultLockTimeout,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "coordinator")
	return c
}

// Resources returns the names of the coordinated resources in commit order.
func (c *Coordinator) Resources() []string {
	names := make([]string, len(c.resources))
	for i, r := range c.resources {
		names[i] = r.Name()
	}
	return names
}

// acquire blocks until the lock is granted in mode, ctx ends or the
// timeout expires.
func (c *Coordinator) acquire(ctx context.Context, mode Mode, owner string) error {
	start := time.Now()

	c.mu.Lock()
	if c.halted != nil {
		err := c.haltedErrLocked()
		c.mu.Unlock()
		return errors.WrapFatal(err, "Coordinator", "acquire", "lock for "+owner)
	}
	w := &waiter{mode: mode, ready: make(chan struct{})}
	c.queue = append(c.queue, w)
	c.grantLocked()
	c.mu.Unlock()

	var expired <-chan time.Time
	if _, ok := ctx.Deadline(); !ok {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-w.ready:
		c.recordWait(mode, time.Since(start), false)
		return nil
	case <-ctx.Done():
	case <-expired:
	}

	c.mu.Lock()
	if w.granted {
		// Granted while timing out: keep it.
		c.mu.Unlock()
		c.recordWait(mode, time.Since(start), false)
		return nil
	}
	for i, q := range c.queue {
		if q == w {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
	// A removed writer at the head may unblock readers behind it.
	c.grantLocked()
	c.mu.Unlock()

	waited := time.Since(start)
	c.recordWait(mode, waited, true)
	c.logger.Warn("Lock acquisition timed out", "owner", owner, "mode", mode, "waited", waited)
	return &errors.LockTimeoutError{Owner: owner, Waited: waited}
}

// grantLocked admits waiters from the head of the queue. Caller holds c.mu.
func (c *Coordinator) grantLocked() {
	for len(c.queue) > 0 {
		w := c.queue[0]
		switch w.mode {
		case Exclusive:
			if c.writer || c.readers > 0 {
				return
			}
			c.writer = true
		case Shared:
			if c.writer {
				return
			}
			c.readers++
		}
		w.granted = true
		close(w.ready)
		c.queue = c.queue[1:]
		if w.mode == Exclusive {
			return
		}
	}
}

func (c *Coordinator) release(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == Exclusive {
		c.writer = false
	} else {
		c.readers--
	}
	c.grantLocked()
}

func (c *Coordinator) recordWait(mode Mode, waited time.Duration, timedOut bool) {
	if c.metrics != nil {
		c.metrics.RecordLockWait(mode.String(), waited, timedOut)
	}
}

// Halted returns nil, or an error matching both errors.ErrHalted and the
// *errors.PartialCommitError that stopped the coordinator.
func (c *Coordinator) Halted() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halted == nil {
		return nil
	}
	return c.haltedErrLocked()
}

func (c *Coordinator) haltedErrLocked() error {
	return fmt.Errorf("%w: %w", errors.ErrHalted, c.halted)
}

// Resolve clears a halt after an operator repaired the diverged resources,
// typically by a full rebuild. Later Lock calls succeed again.
func (c *Coordinator) Resolve() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halted != nil {
		c.logger.Info("Partial commit resolved", "failed", c.halted.Failed)
	}
	c.halted = nil
}

func (c *Coordinator) halt(err *errors.PartialCommitError) {
	c.mu.Lock()
	c.halted = err
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.PartialCommits.Inc()
	}
}

// Waiting returns the number of queued lock requests.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
