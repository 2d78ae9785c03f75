package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/khaller93/es-middleware-sub003/metric"
)

const (
	defaultWorkers   = 10
	defaultQueueSize = 1000
)

// Pool drains a bounded FIFO queue of T with a fixed number of workers.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	queue    chan T
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup

	// mu is read-held by submitters and write-held by Start and Stop, so the
	// queue is never closed under a sender.
	mu      sync.RWMutex
	started bool
	stopped bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	waiting   atomic.Int64

	registry *metric.MetricsRegistry
	prefix   string
	metrics  *poolMetrics
}

type poolMetrics struct {
	depth     prometheus.Gauge
	submitted prometheus.Counter
	processed prometheus.Counter
	failed    prometheus.Counter
	dropped   prometheus.Counter
	duration  *prometheus.HistogramVec
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithMetricsRegistry exports the pool's counters under prefix.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.registry = registry
		p.prefix = prefix
	}
}

// NewPool creates a stopped pool. Non-positive sizes fall back to defaults;
// a nil processor panics with ErrNilProcessor.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if processor == nil {
		panic(ErrNilProcessor)
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		queue:     make(chan T, queueSize),
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry != nil && p.prefix != "" {
		p.metrics = newPoolMetrics(p.registry, p.prefix)
	}
	return p
}

// newPoolMetrics registers the pool series. A series that fails to register
// stays unexported but is still safe to update.
func newPoolMetrics(registry *metric.MetricsRegistry, prefix string) *poolMetrics {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: prefix + "_" + name, Help: help})
		_ = registry.RegisterCounter("worker_pool", prefix+"_"+name, c)
		return c
	}

	m := &poolMetrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Items waiting in the worker pool queue",
		}),
		submitted: counter("submitted_total", "Items accepted by the worker pool"),
		processed: counter("processed_total", "Items processed by the worker pool"),
		failed:    counter("failed_total", "Items whose processing returned an error"),
		dropped:   counter("dropped_total", "Items rejected because the queue was full"),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_processing_duration_seconds",
			Help:    "Time spent processing one item",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"status"}),
	}
	_ = registry.RegisterGauge("worker_pool", prefix+"_queue_depth", m.depth)
	_ = registry.RegisterHistogramVec("worker_pool", prefix+"_processing_duration_seconds", m.duration)
	return m
}

// Submit queues work without blocking. It returns ErrQueueFull when the
// queue is at capacity.
func (p *Pool[T]) Submit(work T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkOpen(); err != nil {
		return err
	}
	select {
	case p.queue <- work:
		p.accepted()
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// SubmitWait queues work, blocking while the queue is full. It gives up when
// ctx is done or the pool stops.
func (p *Pool[T]) SubmitWait(ctx context.Context, work T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkOpen(); err != nil {
		return err
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	select {
	case p.queue <- work:
		p.accepted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolStopped
	}
}

func (p *Pool[T]) checkOpen() error {
	switch {
	case !p.started:
		return ErrPoolNotStarted
	case p.stopped:
		return ErrPoolStopped
	}
	return nil
}

func (p *Pool[T]) accepted() {
	p.submitted.Add(1)
	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.depth.Set(float64(len(p.queue)))
	}
}

// Pending counts queued items plus callers blocked in SubmitWait. Items being
// processed are not included.
func (p *Pool[T]) Pending() int {
	return len(p.queue) + int(p.waiting.Load())
}

// Start launches the workers. Workers exit when ctx ends or the pool stops.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	for range p.workers {
		p.wg.Add(1)
		go p.run(ctx)
	}
	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for the workers to drain it.
// Calling Stop more than once is a no-op.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	// Blocked SubmitWait callers hold the read lock.
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	close(p.queue)
	p.stopped = true

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

// PoolStats is a point-in-time view of the pool counters.
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// Stats returns the current counters.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.queue),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(ctx, work)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) {
	start := time.Now()
	err := p.processor(ctx, work)

	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
	if p.metrics == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		p.metrics.failed.Inc()
	}
	p.metrics.processed.Inc()
	p.metrics.depth.Set(float64(len(p.queue)))
	p.metrics.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
