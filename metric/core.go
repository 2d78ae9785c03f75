package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "esm"

// Metrics contains the synchronization engine's core metrics
type Metrics struct {
	// Status model
	StatusTransitions  *prometheus.CounterVec
	InvalidTransitions *prometheus.CounterVec
	DAOStatus          *prometheus.GaugeVec

	// Synchronization passes
	SyncPasses   *prometheus.CounterVec
	SyncDuration *prometheus.HistogramVec

	// Coordinator
	LockWait       *prometheus.HistogramVec
	LockTimeouts   *prometheus.CounterVec
	Rollbacks      prometheus.Counter
	PartialCommits prometheus.Counter
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StatusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "status",
				Name:      "transitions_total",
				Help:      "Published DAO status transitions",
			},
			[]string{"dao", "from", "to"},
		),
		InvalidTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "status",
				Name:      "invalid_transitions_total",
				Help:      "Rejected DAO status transitions",
			},
			[]string{"dao"},
		),
		DAOStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "status",
				Name:      "current",
				Help:      "Current DAO status (0=uninitialized, 1=booting, 2=synchronizing, 3=ready, 4=degraded, 5=failed)",
			},
			[]string{"dao"},
		),
		SyncPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "passes_total",
				Help:      "Synchronization passes by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "pass_duration_seconds",
				Help:      "Duration of synchronization passes",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"strategy"},
		),
		LockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for the coordinator lock",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"mode"},
		),
		LockTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "lock_timeouts_total",
				Help:      "Lock acquisitions that timed out",
			},
			[]string{"mode"},
		),
		Rollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "rollbacks_total",
				Help:      "Lock sessions rolled back, explicitly or on unlock",
			},
		),
		PartialCommits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "partial_commits_total",
				Help:      "Commits where resources diverged",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StatusTransitions,
		m.InvalidTransitions,
		m.DAOStatus,
		m.SyncPasses,
		m.SyncDuration,
		m.LockWait,
		m.LockTimeouts,
		m.Rollbacks,
		m.PartialCommits,
	}
}

// RecordTransition records a published status transition. status is the
// numeric value of the new status.
func (m *Metrics) RecordTransition(dao, from, to string, status int) {
	m.StatusTransitions.WithLabelValues(dao, from, to).Inc()
	m.DAOStatus.WithLabelValues(dao).Set(float64(status))
}

// RecordSyncPass records the outcome of one synchronization pass
func (m *Metrics) RecordSyncPass(strategy, outcome string, duration time.Duration) {
	m.SyncPasses.WithLabelValues(strategy, outcome).Inc()
	m.SyncDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordLockWait records how long a caller waited for the lock
func (m *Metrics) RecordLockWait(mode string, waited time.Duration, timedOut bool) {
	m.LockWait.WithLabelValues(mode).Observe(waited.Seconds())
	if timedOut {
		m.LockTimeouts.WithLabelValues(mode).Inc()
	}
}
