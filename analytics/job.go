package analytics

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/event"
	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/status"
)

// Namespace is the cache namespace of PageRank scores.
const Namespace = "pagerank"

// RunStats describes the last completed run.
type RunStats struct {
	Vertices   int           `json:"vertices"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Written    int           `json:"written"`
	Deleted    int           `json:"deleted"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Job computes PageRank over the derived graph and persists the scores in
// the cache, one entry per vertex.
type Job struct {
	cfg   PageRankConfig
	graph *pgraph.Handle
	cache kvcache.Cache
	coord *coordinator.Coordinator

	sub     atomic.Pointer[event.Subscription]
	limiter *rate.Limiter
	mu      sync.Mutex
	last    *RunStats
	logger  *slog.Logger
	tracer  trace.Tracer

	// computed runs inside the write session, after the scores are known.
	computed func()
}

// DefaultMinInterval spaces reruns triggered by graph events.
const DefaultMinInterval = time.Second

// JobOption configures a Job.
type JobOption func(*Job)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) JobOption {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) JobOption {
	return func(j *Job) {
		if t != nil {
			j.tracer = t
		}
	}
}

// WithMinInterval sets the minimum spacing of event driven reruns. Zero
// disables throttling.
func WithMinInterval(d time.Duration) JobOption {
	return func(j *Job) {
		if d <= 0 {
			j.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		j.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewJob returns a PageRank job. Zero config fields take their defaults.
func NewJob(cfg PageRankConfig, graph *pgraph.Handle, cache kvcache.Cache,
	coord *coordinator.Coordinator, opts ...JobOption) (*Job, error) {
	if graph == nil || cache == nil || coord == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Job", "NewJob", "graph, cache and coordinator required")
	}
	def := DefaultPageRankConfig()
	if cfg.Iterations <= 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.DampingFactor <= 0 || cfg.DampingFactor >= 1 {
		cfg.DampingFactor = def.DampingFactor
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	j := &Job{
		cfg:     cfg,
		graph:   graph,
		cache:   cache,
		coord:   coord,
		limiter: rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/khaller93/es-middleware-sub003/analytics"),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "analytics")
	return j, nil
}

// Run computes scores and replaces the stored scores in one write session,
// so no graph write can land between reading the graph and storing its
// scores.
func (j *Job) Run(ctx context.Context) (*PageRankResult, error) {
	ctx, span := j.tracer.Start(ctx, "analytics.pagerank")
	defer span.End()
	start := time.Now()

	var (
		result *PageRankResult
		stats  RunStats
	)
	err := j.coord.WithLock(ctx, "analytics/pagerank", func(ctx context.Context, _ *coordinator.Session) error {
		var err error
		result, err = ComputePageRank(ctx, j.graph.Store(), j.cfg)
		if err != nil {
			return errors.Wrap(err, "Job", "Run", "compute pagerank")
		}
		if j.computed != nil {
			j.computed()
		}
		stats = RunStats{Vertices: len(result.Scores), Iterations: result.Iterations, Converged: result.Converged}

		keys, err := j.cache.Keys(ctx, Namespace+"/")
		if err != nil {
			return errors.Wrap(err, "Job", "Run", "list stored scores")
		}
		for _, k := range keys {
			_, id, _ := kvcache.SplitVertexKey(k)
			if _, ok := result.Scores[id]; ok {
				continue
			}
			if err := j.cache.Delete(ctx, k); err != nil {
				return errors.Wrap(err, "Job", "Run", "delete stale score")
			}
			stats.Deleted++
		}
		for id, score := range result.Scores {
			v := strconv.FormatFloat(score, 'g', -1, 64)
			if err := j.cache.Put(ctx, kvcache.VertexKey(Namespace, id), []byte(v)); err != nil {
				return errors.Wrap(err, "Job", "Run", "store score")
			}
			stats.Written++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pagerank failed")
		return nil, err
	}

	stats.FinishedAt = time.Now()
	stats.Duration = stats.FinishedAt.Sub(start)
	span.SetAttributes(attribute.Int("esm.pagerank.vertices", stats.Vertices),
		attribute.Int("esm.pagerank.iterations", stats.Iterations),
		attribute.Bool("esm.pagerank.converged", stats.Converged))
	j.mu.Lock()
	j.last = &stats
	j.mu.Unlock()
	j.logger.Debug("PageRank stored", "vertices", stats.Vertices, "written", stats.Written,
		"deleted", stats.Deleted, "iterations", stats.Iterations, "converged", stats.Converged)
	return result, nil
}

// Score returns the stored score of a vertex.
func (j *Job) Score(ctx context.Context, vertexID string) (float64, bool, error) {
	b, ok, err := j.cache.Get(ctx, kvcache.VertexKey(Namespace, vertexID))
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, false, errors.WrapInvalid(err, "Job", "Score", "parse stored score")
	}
	return v, true, nil
}

// LastRun returns the statistics of the last completed run.
func (j *Job) LastRun() (RunStats, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return RunStats{}, false
	}
	return *j.last, true
}

// Start reruns the job whenever the derived graph becomes READY. Reruns are
// spaced by the job's rate limiter, and READY events queued while waiting
// collapse into one run.
func (j *Job) Start(bus *event.Bus) error {
	sub, err := bus.Subscribe(status.Graph, event.Statuses(status.Ready), j.onGraphReady)
	if err != nil {
		return errors.Wrap(err, "Job", "Start", "subscribe to graph events")
	}
	j.sub.Store(sub)
	return nil
}

// Stop unsubscribes.
func (j *Job) Stop() {
	if sub := j.sub.Load(); sub != nil {
		sub.Unsubscribe()
	}
}

func (j *Job) onGraphReady(ctx context.Context, ev status.TransitionEvent) {
	if err := j.limiter.Wait(ctx); err != nil {
		return
	}
	if sub := j.sub.Load(); sub != nil && sub.Pending() > 0 {
		// A later READY is queued; it runs on the newer graph.
		return
	}
	if _, err := j.Run(context.WithoutCancel(ctx)); err != nil {
		j.logger.Warn("PageRank run failed", "correlation_id", ev.CorrelationID, "error", err)
	}
}
