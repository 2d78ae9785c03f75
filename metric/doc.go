// Package metric provides the Prometheus metrics registry for the
// synchronization middleware.
//
// A MetricsRegistry owns a private prometheus.Registry preloaded with the core
// metrics (status transitions, synchronization passes, coordinator lock
// waits) plus the Go and process collectors. Components that need their own
// series register them through the MetricsRegistrar interface, keyed by
// service name so two components may reuse a metric name without colliding
// in the bookkeeping.
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordSyncPass("incremental", "committed", time.Since(start))
//	mux.Handle("/metrics", registry.Handler())
package metric
