package config

import (
	"github.com/khaller93/es-middleware-sub003/analytics"
	"github.com/khaller93/es-middleware-sub003/pgs"
	"github.com/khaller93/es-middleware-sub003/synchronizer"
)

// EngineConfig returns the synchronization engine configuration.
func (c *Config) EngineConfig() synchronizer.Config {
	cfg := synchronizer.DefaultConfig()
	cfg.Strategy = c.Sync.Strategy
	cfg.QueueSize = c.Sync.QueueSize
	cfg.Retry = c.Sync.Retry.ToRetryConfig()
	return cfg
}

// Projector returns a factory for the projector of one pass. Label scoped
// blank nodes share a single projector; skolem scoped ones get a fresh
// scope per pass.
func (c *Config) Projector() func() *pgs.Projector {
	schema := c.Schema.Schema
	if c.Schema.BlankNodes == BlankNodesSkolem {
		return func() *pgs.Projector {
			return pgs.NewProjector(schema, pgs.NewSkolemScope())
		}
	}
	p := pgs.NewProjector(schema, pgs.LabelScope{})
	return func() *pgs.Projector { return p }
}

// PageRankConfig returns the PageRank job configuration.
func (c *Config) PageRankConfig() analytics.PageRankConfig {
	pr := c.Analytics.PageRank
	return analytics.PageRankConfig{
		Iterations:    pr.Iterations,
		DampingFactor: pr.Damping,
		Tolerance:     pr.Tolerance,
	}
}
