package synchronizer

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/metric"
	"github.com/khaller93/es-middleware-sub003/pkg/retry"
	"github.com/khaller93/es-middleware-sub003/pkg/worker"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/status"
)

// Errors returned by the engine
var (
	ErrNotBooted     = stderrors.New("derived graph not booted")
	ErrEngineStopped = stderrors.New("synchronization engine stopped")
)

const historySize = 64

// Config configures an Engine.
type Config struct {
	// Strategy is StrategyFull or StrategyIncremental.
	Strategy string
	// QueueSize bounds the number of queued passes.
	QueueSize int
	// Retry configures the attempts of one pass.
	Retry errors.RetryConfig
	// StopTimeout bounds how long Stop waits for queued passes.
	StopTimeout time.Duration
}

// DefaultConfig returns an incremental engine with the default retry policy.
func DefaultConfig() Config {
	return Config{
		Strategy:    StrategyIncremental,
		QueueSize:   256,
		Retry:       errors.DefaultRetryConfig(),
		StopTimeout: 30 * time.Second,
	}
}

// Engine keeps the derived graph consistent with the primary store. It
// listens for completed primary writes and runs one pass per write, in
// write order, on a single worker.
type Engine struct {
	cfg      Config
	deps     Deps
	strategy Strategy
	full     *FullClone

	tracker *status.Tracker
	bus     *event.Bus
	ids     *event.CorrelationSource
	acker   primary.Acknowledger

	pool *worker.Pool[*SyncTask]
	sub  *event.Subscription

	needResync atomic.Bool

	mu      sync.Mutex
	tasks   map[string]*SyncTask
	history []SyncTask

	poolOpts []worker.Option[*SyncTask]
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAcknowledger prunes primary change logs after each committed pass.
func WithAcknowledger(a primary.Acknowledger) EngineOption {
	return func(e *Engine) { e.acker = a }
}

// WithEngineMetrics records sync passes in the core metrics and exports
// queue metrics of the pass pool.
func WithEngineMetrics(reg *metric.MetricsRegistry) EngineOption {
	return func(e *Engine) {
		if reg != nil {
			e.metrics = reg.CoreMetrics()
			e.poolOpts = append(e.poolOpts, worker.WithMetricsRegistry[*SyncTask](reg, "sync_engine"))
		}
	}
}

// NewEngine wires an engine. tracker publishes graph DAO transitions, bus
// delivers primary DAO transitions and ids issues correlation ids for
// passes not caused by a write (boot and resync).
func NewEngine(cfg Config, deps Deps, tracker *status.Tracker, bus *event.Bus,
	ids *event.CorrelationSource, opts ...EngineOption) (*Engine, error) {
	if tracker == nil || bus == nil || ids == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "synchronizer", "NewEngine",
			"tracker, bus and correlation source required")
	}
	strategy, err := NewStrategy(cfg.Strategy, deps)
	if err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}

	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		strategy: strategy,
		full:     &FullClone{deps: deps},
		tracker:  tracker,
		bus:      bus,
		ids:      ids,
		tasks:    make(map[string]*SyncTask),
		logger:   deps.Logger.With("component", "synchronizer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pool = worker.NewPool(1, cfg.QueueSize, e.process, e.poolOpts...)
	return e, nil
}

// Start starts the pass worker and subscribes to completed primary writes.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, "Engine", "Start", "start pass worker")
	}
	sub, err := e.bus.Subscribe(status.Primary, event.Statuses(status.Ready), e.onPrimaryReady)
	if err != nil {
		_ = e.pool.Stop(e.cfg.StopTimeout)
		return errors.Wrap(err, "Engine", "Start", "subscribe to primary events")
	}
	e.sub = sub
	e.logger.Info("Synchronization engine started", "strategy", e.strategy.Name())
	return nil
}

// Stop unsubscribes and drains queued passes.
func (e *Engine) Stop() error {
	if e.sub != nil {
		e.sub.Unsubscribe()
	}
	if err := e.pool.Stop(e.cfg.StopTimeout); err != nil {
		return errors.WrapTransient(err, "Engine", "Stop", "drain pass queue")
	}
	e.logger.Info("Synchronization engine stopped")
	return nil
}

// onPrimaryReady queues a pass for every completed primary write. The
// READY reached from BOOTING is the initial load, which Boot handles.
func (e *Engine) onPrimaryReady(ctx context.Context, ev status.TransitionEvent) {
	if ev.Previous != status.Synchronizing {
		return
	}
	task := e.newTask(ev.CorrelationID, e.strategy.Name())
	if err := e.pool.SubmitWait(ctx, task); err != nil {
		e.forget(task)
		e.needResync.Store(true)
		e.logger.Warn("Dropped synchronization pass",
			"correlation_id", ev.CorrelationID, "error", err)
	}
}

// Boot performs the initial full load of the derived graph. It is queued
// like any other pass so writes that completed before it are re-applied
// on top of the booted graph, which is harmless as passes are idempotent.
func (e *Engine) Boot(ctx context.Context) error {
	task := e.newTask(e.ids.Next(), StrategyFull)
	task.boot = true
	return e.run(ctx, task)
}

// Resync forces a full rebuild, clearing a FAILED graph. It is the only
// pass that resolves a halted coordinator; ordinary passes fail while the
// halt is in place.
func (e *Engine) Resync(ctx context.Context) error {
	task := e.newTask(e.ids.Next(), StrategyFull)
	task.force = true
	return e.run(ctx, task)
}

func (e *Engine) run(ctx context.Context, task *SyncTask) error {
	task.done = make(chan error, 1)
	if err := e.pool.SubmitWait(ctx, task); err != nil {
		e.forget(task)
		if stderrors.Is(err, worker.ErrPoolStopped) || stderrors.Is(err, worker.ErrPoolNotStarted) {
			return errors.WrapFatal(ErrEngineStopped, "Engine", "run", "queue pass")
		}
		return errors.WrapTransient(err, "Engine", "run", "queue pass")
	}
	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Engine", "run", "wait for pass")
	}
}

func (e *Engine) newTask(correlationID uint64, strategy string) *SyncTask {
	task := &SyncTask{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Strategy:      strategy,
		StartedAt:     time.Now(),
		Status:        TaskRunning,
	}
	e.mu.Lock()
	e.tasks[task.ID] = task
	e.mu.Unlock()
	return task
}

// update mutates a task visible through Tasks.
func (e *Engine) update(task *SyncTask, fn func(*SyncTask)) {
	e.mu.Lock()
	fn(task)
	e.mu.Unlock()
}

func (e *Engine) forget(task *SyncTask) {
	e.mu.Lock()
	delete(e.tasks, task.ID)
	e.mu.Unlock()
}

// finish records the outcome of task and moves it to the history.
func (e *Engine) finish(task *SyncTask, err error) {
	e.mu.Lock()
	task.FinishedAt = time.Now()
	if err != nil {
		task.Status = TaskRolledBack
		task.Error = err.Error()
	} else {
		task.Status = TaskCommitted
	}
	delete(e.tasks, task.ID)
	e.history = append(e.history, *task)
	if len(e.history) > historySize {
		e.history = e.history[len(e.history)-historySize:]
	}
	e.mu.Unlock()

	if task.done != nil {
		task.done <- err
	}
}

// Tasks returns the queued and running passes ordered by start time.
func (e *Engine) Tasks() []SyncTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SyncTask, 0, len(e.tasks))
	for _, t := range e.tasks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b SyncTask) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

// History returns the most recent finished passes, oldest first.
func (e *Engine) History() []SyncTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// NeedsResync reports whether the next pass will be a full rebuild.
func (e *Engine) NeedsResync() bool {
	return e.needResync.Load()
}

// Strategy returns the configured strategy name.
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// process runs one pass on the pool worker. Passes are not tied to the
// caller's lifetime once started.
func (e *Engine) process(ctx context.Context, task *SyncTask) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	if task.boot {
		err = e.boot(ctx, task)
	} else {
		err = e.synchronize(ctx, task)
	}
	e.finish(task, err)
	return err
}

func (e *Engine) boot(ctx context.Context, task *SyncTask) error {
	id := task.CorrelationID
	if err := e.tracker.SetStatus(status.Graph, status.Booting, id); err != nil {
		return err
	}
	start := time.Now()
	e.update(task, func(t *SyncTask) { t.Attempts = 1 })
	err := e.full.Synchronize(ctx, id)
	e.record(StrategyFull, err, time.Since(start))
	if err != nil {
		e.needResync.Store(true)
		ferr := &errors.SyncFailureError{CorrelationID: id, Strategy: StrategyFull, Err: err}
		_ = e.tracker.SetFailed(status.Graph, id, ferr)
		e.logger.Error("Derived graph boot failed", "correlation_id", id, "error", err)
		return ferr
	}
	e.needResync.Store(false)
	if err := e.tracker.SetStatus(status.Graph, status.Ready, id); err != nil {
		return err
	}
	e.logger.Info("Derived graph booted", "correlation_id", id,
		"vertices", e.deps.Graph.Graph().VertexCount(), "edges", e.deps.Graph.Graph().EdgeCount())
	return nil
}

func (e *Engine) synchronize(ctx context.Context, task *SyncTask) error {
	id := task.CorrelationID
	switch e.tracker.CurrentStatus(status.Graph) {
	case status.Uninitialized, status.Booting:
		e.logger.Debug("Skipping pass before boot", "correlation_id", id)
		return ErrNotBooted
	}

	full := task.force || e.needResync.Load()
	if err := e.tracker.SetStatus(status.Graph, status.Synchronizing, id); err != nil {
		return err
	}

	start := time.Now()
	cfg := e.cfg.Retry.ToRetryConfig()
	cfg.OnRetry = func(attempt int, err error) {
		e.logger.Warn("Synchronization attempt failed, retrying",
			"correlation_id", id, "attempt", attempt, "error", err)
		if serr := e.tracker.SetStatus(status.Graph, status.Synchronizing, id); serr != nil {
			e.logger.Error("Failed to publish recovery", "correlation_id", id, "error", serr)
		}
	}

	fail := func(s Strategy, err error) error {
		ferr := &errors.SyncFailureError{CorrelationID: id, Strategy: s.Name(), Err: err}
		if serr := e.tracker.SetFailed(status.Graph, id, ferr); serr != nil {
			e.logger.Error("Failed to publish failure", "correlation_id", id, "error", serr)
		}
		if errors.IsInvalid(ferr) || errors.IsFatal(ferr) {
			return retry.NonRetryable(ferr)
		}
		return ferr
	}

	err := retry.Do(ctx, cfg, func() error {
		var s Strategy = e.strategy
		if full {
			s = e.full
		}
		e.update(task, func(t *SyncTask) {
			t.Attempts++
			t.Strategy = s.Name()
		})

		// Only an explicit Resync may clear a halt.
		if halted := e.deps.Coordinator.Halted(); halted != nil {
			if !task.force {
				return fail(s, halted)
			}
			e.logger.Warn("Rebuilding after partial commit", "correlation_id", id, "cause", halted)
			e.deps.Coordinator.Resolve()
		}

		err := s.Synchronize(ctx, id)
		if err != nil && !full && stderrors.Is(err, primary.ErrUnknownChange) {
			e.logger.Warn("Change log entry missing, escalating to full rebuild", "correlation_id", id)
			full = true
			s = e.full
			e.update(task, func(t *SyncTask) { t.Strategy = s.Name() })
			err = s.Synchronize(ctx, id)
		}
		if err == nil {
			return nil
		}
		return fail(s, err)
	})
	e.record(task.Strategy, err, time.Since(start))

	if err != nil {
		e.needResync.Store(true)
		e.logger.Error("Synchronization pass aborted", "correlation_id", id,
			"strategy", task.Strategy, "attempts", task.Attempts, "error", err)
		return err
	}

	if full {
		e.needResync.Store(false)
	}
	next := status.Ready
	if e.pool.Pending() > 0 {
		next = status.Degraded
	}
	if err := e.tracker.SetStatus(status.Graph, next, id); err != nil {
		return err
	}
	if e.acker != nil {
		if err := e.acker.Acknowledge(ctx, id); err != nil {
			e.logger.Warn("Failed to acknowledge change", "correlation_id", id, "error", err)
		}
	}
	e.logger.Debug("Synchronization pass committed", "correlation_id", id,
		"strategy", task.Strategy, "attempts", task.Attempts, "status", next)
	return nil
}

func (e *Engine) record(strategy string, err error, d time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	e.metrics.RecordSyncPass(strategy, outcome, d)
}
