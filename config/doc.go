// Package config loads and validates the middleware configuration.
//
// Configuration is resolved once at startup. The Loader starts from
// Default, merges each layer in order (JSON or YAML files, later layers
// win key by key) and finally applies ESM_* environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("esm.yaml")
//	loader.AddLayer("esm.local.yaml")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//	    return err
//	}
//	engine, err := synchronizer.NewEngine(cfg.EngineConfig(), deps, tracker, bus, ids)
//
// Validation rejects unknown strategy or backend names, a badger backend
// without a path and skolem blank nodes combined with the incremental
// strategy. All validation errors wrap errors.ErrInvalidConfig.
//
// # Environment Overrides
//
//	ESM_SYNC_STRATEGY       sync.strategy
//	ESM_LOCK_TIMEOUT        lock.timeout (e.g. "10s")
//	ESM_PRIMARY_BACKEND     primary.backend
//	ESM_PRIMARY_PATH        primary.path
//	ESM_PRIMARY_SEED        primary.seed
//	ESM_CACHE_BACKEND       cache.backend
//	ESM_CACHE_PATH          cache.path
//	ESM_NATS_URL            nats.url
//	ESM_HTTP_ADDR           http.addr
//	ESM_FULLTEXT_ENABLED    fulltext.enabled
//	ESM_ANALYTICS_ENABLED   analytics.pagerank.enabled
//	ESM_LOG_LEVEL           log.level
package config
