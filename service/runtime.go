package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/khaller93/es-middleware-sub003/access"
	"github.com/khaller93/es-middleware-sub003/analytics"
	"github.com/khaller93/es-middleware-sub003/config"
	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/fulltext"
	"github.com/khaller93/es-middleware-sub003/health"
	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/metric"
	"github.com/khaller93/es-middleware-sub003/natsclient"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/pkg/badgerdb"
	"github.com/khaller93/es-middleware-sub003/primary"
	"github.com/khaller93/es-middleware-sub003/status"
	"github.com/khaller93/es-middleware-sub003/synchronizer"
)

// PrimaryStore is the primary store contract the runtime needs.
// *primary.MemoryStore and *primary.BadgerStore implement it.
type PrimaryStore interface {
	primary.Store
	primary.Writer
	primary.Acknowledger
	Boot(ctx context.Context, seed io.Reader) error
	Export(ctx context.Context, w io.Writer) error
	Len() int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics registry. By default a fresh registry is
// created.
func WithMetrics(reg *metric.MetricsRegistry) Option {
	return func(r *Runtime) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithTracerProvider sets the tracer provider of sync and lock spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runtime) { r.tp = tp }
}

// WithSeed boots the primary store from seed instead of the configured
// seed file.
func WithSeed(seed io.Reader) Option {
	return func(r *Runtime) { r.seed = seed }
}

// WithPublisher forwards transitions to pub instead of a NATS connection
// opened from the configuration.
func WithPublisher(pub event.MessagePublisher) Option {
	return func(r *Runtime) { r.publisher = pub }
}

// Runtime wires the primary store, the derived DAOs and their consumers
// from one configuration, and serves the HTTP status surface.
type Runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	tp       trace.TracerProvider
	seed     io.Reader

	ids     *event.CorrelationSource
	bus     *event.Bus
	tracker *status.Tracker
	monitor *health.Monitor
	gate    *access.Gate

	store   PrimaryStore
	barrier *primary.AckBarrier
	graph   *pgraph.Handle
	cache   kvcache.Cache
	coord   *coordinator.Coordinator
	engine  *synchronizer.Engine
	updater *fulltext.Updater
	job     *analytics.Job

	publisher event.MessagePublisher
	nats      *natsclient.Client
	bridge    *event.Bridge

	closers   []func() error
	healthSub *event.Subscription

	status    atomic.Value // Status
	startTime atomic.Value // time.Time
	mu        sync.Mutex
	server    *http.Server
}

// New builds every component described by cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Runtime", "New", "configuration required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = metric.NewMetricsRegistry()
	}
	r.status.Store(StatusStopped)
	r.startTime.Store(time.Time{})

	if err := r.build(); err != nil {
		_ = r.close()
		return nil, err
	}
	return r, nil
}

func (r *Runtime) build() error {
	core := r.registry.CoreMetrics()
	r.ids = event.NewCorrelationSource()
	r.bus = event.NewBus(event.WithBusLogger(r.logger))
	r.tracker = status.NewTracker(r.bus,
		status.WithMetrics(core), status.WithLogger(r.logger))

	daos := []status.DAO{status.Primary, status.Graph}
	if r.cfg.FullText.Enabled {
		daos = append(daos, status.FullText)
	}
	r.monitor = health.NewMonitor(daos...)
	r.gate = access.NewGate(r.tracker)

	if err := r.buildPrimary(); err != nil {
		return err
	}
	if err := r.buildCache(); err != nil {
		return err
	}

	consumers := 1
	if r.cfg.FullText.Enabled {
		consumers++
	}
	r.barrier = primary.NewAckBarrier(r.store, consumers, r.cfg.Primary.ChangeLogLimit)

	r.graph = pgraph.NewHandle(nil)
	coordOpts := []coordinator.Option{
		coordinator.WithTimeout(r.cfg.Lock.Timeout.Duration()),
		coordinator.WithMetrics(core),
		coordinator.WithLogger(r.logger),
	}
	if r.tp != nil {
		coordOpts = append(coordOpts, coordinator.WithTracerProvider(r.tp))
	}
	r.coord = coordinator.New([]coordinator.Resource{r.graph, r.cache}, coordOpts...)

	deps := synchronizer.Deps{
		Primary:     r.store,
		Graph:       r.graph,
		Cache:       r.cache,
		Coordinator: r.coord,
		Projector:   r.cfg.Projector(),
		Logger:      r.logger,
	}
	if r.tp != nil {
		deps.Tracer = r.tp.Tracer("github.com/khaller93/es-middleware-sub003/synchronizer")
	}
	engine, err := synchronizer.NewEngine(r.cfg.EngineConfig(), deps, r.tracker, r.bus, r.ids,
		synchronizer.WithAcknowledger(r.barrier),
		synchronizer.WithEngineMetrics(r.registry))
	if err != nil {
		return err
	}
	r.engine = engine

	if r.cfg.FullText.Enabled {
		updater, err := fulltext.NewUpdater(fulltext.NewIndex(r.cfg.FullText.Predicates...),
			r.store, r.tracker, r.bus, r.ids,
			fulltext.WithLogger(r.logger),
			fulltext.WithAcknowledger(r.barrier),
			fulltext.WithMetrics(r.registry))
		if err != nil {
			return err
		}
		r.updater = updater
	}

	if r.cfg.Analytics.PageRank.Enabled {
		jobOpts := []analytics.JobOption{
			analytics.WithLogger(r.logger),
			analytics.WithMinInterval(r.cfg.Analytics.PageRank.MinInterval.Duration()),
		}
		if r.tp != nil {
			jobOpts = append(jobOpts, analytics.WithTracer(r.tp.Tracer("github.com/khaller93/es-middleware-sub003/analytics")))
		}
		job, err := analytics.NewJob(r.cfg.PageRankConfig(), r.graph, r.cache, r.coord, jobOpts...)
		if err != nil {
			return err
		}
		r.job = job
	}
	return nil
}

func (r *Runtime) badgerConfig(path string, inMemory bool) badgerdb.Config {
	if inMemory {
		cfg := badgerdb.InMemoryConfig()
		cfg.Logger = r.logger
		return cfg
	}
	cfg := badgerdb.DefaultConfig(path)
	cfg.Logger = r.logger
	return cfg
}

func (r *Runtime) buildPrimary() error {
	opts := []primary.Option{primary.WithLogger(r.logger)}
	if r.cfg.Primary.ChangeLogLimit > 0 {
		opts = append(opts, primary.WithChangeLogLimit(r.cfg.Primary.ChangeLogLimit))
	}
	switch r.cfg.Primary.Backend {
	case config.BackendBadger:
		store, err := primary.OpenBadgerStore(r.badgerConfig(r.cfg.Primary.Path, false), r.tracker, r.ids, opts...)
		if err != nil {
			return errors.Wrap(err, "Runtime", "buildPrimary", "open badger primary store")
		}
		r.store = store
		r.closers = append(r.closers, store.Close)
	default:
		r.store = primary.NewMemoryStore(r.tracker, r.ids, opts...)
	}
	return nil
}

func (r *Runtime) buildCache() error {
	opts := []kvcache.Option{
		kvcache.WithLogger(r.logger),
		kvcache.WithMetrics(r.registry, "cache"),
	}
	var (
		cache kvcache.Cache
		err   error
	)
	switch r.cfg.Cache.Backend {
	case config.BackendBadger:
		cache, err = kvcache.OpenBadgerCache(r.badgerConfig(r.cfg.Cache.Path, r.cfg.Cache.InMemory), opts...)
	default:
		cache, err = kvcache.NewMemoryCache(opts...)
	}
	if err != nil {
		return errors.Wrap(err, "Runtime", "buildCache", "open cache")
	}
	r.cache = cache
	r.closers = append(r.closers, cache.Close)
	return nil
}

// Start subscribes every consumer, boots the primary store and then the
// derived DAOs concurrently. It returns once all DAOs are READY.
func (r *Runtime) Start(ctx context.Context) error {
	if !r.status.CompareAndSwap(StatusStopped, StatusStarting) {
		return errors.WrapInvalid(fmt.Errorf("runtime is %s", r.Status()), "Runtime", "Start", "start runtime")
	}
	if err := r.start(ctx); err != nil {
		r.status.Store(StatusRunning)
		_ = r.Stop(5 * time.Second)
		return err
	}
	r.startTime.Store(time.Now())
	r.status.Store(StatusRunning)
	r.logger.Info("Runtime started",
		"strategy", r.engine.Strategy(),
		"primary", r.cfg.Primary.Backend,
		"cache", r.cfg.Cache.Backend,
		"fulltext", r.updater != nil,
		"pagerank", r.job != nil)
	return nil
}

func (r *Runtime) start(ctx context.Context) error {
	sub, err := r.monitor.Follow(r.bus)
	if err != nil {
		return err
	}
	r.healthSub = sub

	if err := r.startBridge(ctx); err != nil {
		return err
	}

	if err := r.engine.Start(ctx); err != nil {
		return err
	}
	if r.updater != nil {
		if err := r.updater.Start(); err != nil {
			return err
		}
	}
	if r.job != nil {
		if err := r.job.Start(r.bus); err != nil {
			return err
		}
	}

	seed, closeSeed, err := r.openSeed()
	if err != nil {
		return err
	}
	err = r.store.Boot(ctx, seed)
	closeSeed()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.engine.Boot(gctx) })
	if r.updater != nil {
		g.Go(func() error { return r.updater.Boot(gctx) })
	}
	return g.Wait()
}

func (r *Runtime) openSeed() (io.Reader, func(), error) {
	if r.seed != nil {
		return r.seed, func() {}, nil
	}
	if r.cfg.Primary.Seed == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(r.cfg.Primary.Seed)
	if err != nil {
		return nil, nil, errors.WrapInvalid(err, "Runtime", "openSeed", "open seed file")
	}
	return f, func() { _ = f.Close() }, nil
}

func (r *Runtime) startBridge(ctx context.Context) error {
	pub := r.publisher
	if pub == nil && r.cfg.NATS.URL != "" {
		client, err := natsclient.NewClient(r.cfg.NATS.URL,
			natsclient.WithLogger(r.logger),
			natsclient.WithName("esm"))
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			return err
		}
		r.nats = client
		pub = client
	}
	if pub == nil {
		return nil
	}
	r.bridge = event.NewBridge(r.bus, pub, r.cfg.NATS.SubjectPrefix, r.logger)
	return r.bridge.Start()
}

// Run starts the runtime, serves HTTP on the configured address and stops
// everything when ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         r.cfg.HTTP.Addr,
		Handler:      r.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	r.mu.Lock()
	r.server = srv
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.WrapFatal(err, "Runtime", "Run", "serve HTTP")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if stopErr := r.Stop(r.cfg.Lock.Timeout.Duration()); err == nil {
		err = stopErr
	}
	return err
}

// Stop unsubscribes every consumer, drains queued passes and closes the
// stores. The timeout bounds the wait for in-flight event handlers.
func (r *Runtime) Stop(timeout time.Duration) error {
	if !r.status.CompareAndSwap(StatusRunning, StatusStopping) {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var errs []error
	if r.job != nil {
		r.job.Stop()
	}
	if r.updater != nil {
		r.updater.Stop()
	}
	if err := r.engine.Stop(); err != nil {
		errs = append(errs, err)
	}
	if r.bridge != nil {
		r.bridge.Stop()
	}
	if r.healthSub != nil {
		r.healthSub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.bus.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.nats != nil {
		if err := r.nats.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.close(); err != nil {
		errs = append(errs, err)
	}

	r.status.Store(StatusStopped)
	r.logger.Info("Runtime stopped")
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "Runtime", "Stop", fmt.Sprintf("stop runtime (%d errors)", len(errs)))
	}
	return nil
}

func (r *Runtime) close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// Status returns the lifecycle status.
func (r *Runtime) Status() Status {
	return r.status.Load().(Status)
}

// Info returns runtime information.
func (r *Runtime) Info() Info {
	start := r.startTime.Load().(time.Time)
	info := Info{
		Status:    r.Status(),
		StartTime: start,
		Strategy:  r.engine.Strategy(),
		Triples:   r.store.Len(),
	}
	if !start.IsZero() && info.Status == StatusRunning {
		info.Uptime = time.Since(start)
	}
	stats := r.graph.Graph().Stats()
	info.Vertices = stats.Vertices
	info.Edges = stats.Edges
	if r.updater != nil {
		info.Documents = r.updater.Index().Documents()
	}
	return info
}

// Health aggregates the DAO statuses and the NATS connection.
func (r *Runtime) Health() health.Status {
	subs := r.monitor.AggregateHealth("daos").SubStatuses
	if r.nats != nil {
		ns := r.nats.GetStatus()
		if ns.Status == natsclient.StatusConnected {
			subs = append(subs, health.NewHealthy("nats", fmt.Sprintf("Connected (RTT: %v)", ns.RTT)))
		} else {
			subs = append(subs, health.NewDegraded("nats",
				fmt.Sprintf("%s (failures: %d)", ns.Status, ns.FailureCount)))
		}
	}
	agg := health.Aggregate("esm", subs)
	if r.Status() != StatusRunning {
		agg = health.NewUnhealthy("esm", "runtime is "+r.Status().String())
		agg.SubStatuses = subs
	}
	return agg
}

// Store returns the primary store.
func (r *Runtime) Store() PrimaryStore { return r.store }

// Engine returns the synchronization engine.
func (r *Runtime) Engine() *synchronizer.Engine { return r.engine }

// Graph returns the derived graph handle.
func (r *Runtime) Graph() *pgraph.Handle { return r.graph }

// Cache returns the analytic cache.
func (r *Runtime) Cache() kvcache.Cache { return r.cache }

// Coordinator returns the consistency coordinator.
func (r *Runtime) Coordinator() *coordinator.Coordinator { return r.coord }

// Tracker returns the status tracker.
func (r *Runtime) Tracker() *status.Tracker { return r.tracker }

// Bus returns the event bus.
func (r *Runtime) Bus() *event.Bus { return r.bus }

// Gate returns the access gate.
func (r *Runtime) Gate() *access.Gate { return r.gate }

// FullText returns the full-text updater, nil when disabled.
func (r *Runtime) FullText() *fulltext.Updater { return r.updater }

// PageRank returns the PageRank job, nil when disabled.
func (r *Runtime) PageRank() *analytics.Job { return r.job }

// Registry returns the metrics registry.
func (r *Runtime) Registry() *metric.MetricsRegistry { return r.registry }
