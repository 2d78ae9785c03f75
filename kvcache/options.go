package kvcache

import (
	"log/slog"

	"github.com/khaller93/es-middleware-sub003/metric"
)

// Option configures a cache using the functional options pattern.
type Option func(*options)

type options struct {
	metricsReg    metric.MetricsRegistrar
	metricsPrefix string
	logger        *slog.Logger
}

// WithMetrics exports cache statistics as Prometheus metrics. Ignored when
// registry is nil or prefix is empty.
func WithMetrics(registry metric.MetricsRegistrar, prefix string) Option {
	return func(o *options) {
		if registry != nil && prefix != "" {
			o.metricsReg = registry
			o.metricsPrefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) metrics() (*cacheMetrics, error) {
	if o.metricsReg == nil {
		return nil, nil
	}
	return newCacheMetrics(o.metricsReg, o.metricsPrefix)
}
