package kvcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/khaller93/es-middleware-sub003/metric"
)

// cacheMetrics holds Prometheus metrics for cache operations.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	writes    *prometheus.CounterVec
	sessions  *prometheus.CounterVec
	committed prometheus.Gauge
}

func newCacheMetrics(registry metric.MetricsRegistrar, prefix string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "esm",
			Subsystem:   "cache",
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "esm",
			Subsystem:   "cache",
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of cache misses",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "esm",
			Subsystem:   "cache",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Cache writes by operation",
		}, []string{"op"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "esm",
			Subsystem:   "cache",
			Name:        "sessions_total",
			ConstLabels: labels,
			Help:        "Cache sessions by outcome",
		}, []string{"outcome"}),
		committed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "esm",
			Subsystem:   "cache",
			Name:        "entries",
			ConstLabels: labels,
			Help:        "Committed entries after the last session",
		}),
	}

	if err := registry.RegisterCounter(prefix, "cache_hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "cache_misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "cache_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "cache_sessions", m.sessions); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "cache_entries", m.committed); err != nil {
		return nil, err
	}
	return m, nil
}

// The recorders tolerate a nil receiver so callers need no guard.

func (m *cacheMetrics) recordRead(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.hits.Inc()
	} else {
		m.misses.Inc()
	}
}

func (m *cacheMetrics) recordWrite(op string) {
	if m != nil {
		m.writes.WithLabelValues(op).Inc()
	}
}

func (m *cacheMetrics) recordSession(outcome string, entries int) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
	if entries >= 0 {
		m.committed.Set(float64(entries))
	}
}
