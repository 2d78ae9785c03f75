package metric

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/errors"
)

func gatheredNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	require.NoError(t, registry.RegisterCounter("test-service", "test_counter", counter))
	counter.Inc()

	assert.True(t, gatheredNames(t, registry)["test_counter"])
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestMetricsRegistry_RegisterGaugeAndHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_hist", Help: "h"})

	require.NoError(t, registry.RegisterGauge("svc", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("svc", "test_hist", hist))

	gauge.Set(42)
	hist.Observe(0.5)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_gauge"])
	assert.True(t, names["test_hist"])
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "x"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "x"})

	require.NoError(t, registry.RegisterCounter("svc", "dup_counter", c1))

	err := registry.RegisterCounter("svc", "dup_counter", c2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same prometheus name under another service still conflicts in prometheus.
	err = registry.RegisterCounter("other", "dup_counter", c2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "x"})
	require.NoError(t, registry.RegisterCounter("svc", "gone_counter", counter))
	counter.Inc()

	assert.True(t, registry.Unregister("svc", "gone_counter"))
	assert.False(t, registry.Unregister("svc", "gone_counter"))
	assert.False(t, gatheredNames(t, registry)["gone_counter"])

	// Name is free again.
	again := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "x"})
	assert.NoError(t, registry.RegisterCounter("svc", "gone_counter", again))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_%d", i)
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "x"})
			errs <- registry.RegisterCounter("svc", name, c)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMetricsRegistry_RegistrarInterface(t *testing.T) {
	var _ MetricsRegistrar = NewMetricsRegistry()
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordTransition("graph", "READY", "SYNCHRONIZING", 2)
	m.RecordTransition("graph", "READY", "SYNCHRONIZING", 2)
	m.RecordSyncPass("incremental", "committed", 10*time.Millisecond)
	m.RecordLockWait("exclusive", time.Millisecond, false)
	m.RecordLockWait("exclusive", time.Second, true)
	m.PartialCommits.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("graph", "READY", "SYNCHRONIZING")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DAOStatus.WithLabelValues("graph")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncPasses.WithLabelValues("incremental", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockTimeouts.WithLabelValues("exclusive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartialCommits))

	names := gatheredNames(t, registry)
	assert.True(t, names["esm_status_transitions_total"])
	assert.True(t, names["esm_sync_pass_duration_seconds"])
	assert.True(t, names["esm_coordinator_lock_wait_seconds"])
}

func TestHandler_ServesCoreMetrics(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordTransition("primary", "BOOTING", "READY", 3)

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := testutil.GatherAndCount(registry.PrometheusRegistry(), "esm_status_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, body)
}
