package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/pgs"
	"github.com/khaller93/es-middleware-sub003/synchronizer"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Blank node identity modes
const (
	BlankNodesLabel  = "label"
	BlankNodesSkolem = "skolem"
)

// Config represents the complete middleware configuration. It is resolved
// once at startup into strategy and adapter instances.
type Config struct {
	Sync      SyncConfig      `json:"sync"`
	Lock      LockConfig      `json:"lock"`
	Schema    SchemaConfig    `json:"schema"`
	Primary   PrimaryConfig   `json:"primary"`
	Cache     CacheConfig     `json:"cache"`
	FullText  FullTextConfig  `json:"fulltext"`
	Analytics AnalyticsConfig `json:"analytics"`
	NATS      NATSConfig      `json:"nats"`
	HTTP      HTTPConfig      `json:"http"`
	Log       LogConfig       `json:"log"`
}

// SyncConfig configures the synchronization engine.
type SyncConfig struct {
	Strategy  string      `json:"strategy"`
	QueueSize int         `json:"queue_size"`
	Retry     RetryConfig `json:"retry"`
}

// RetryConfig configures the attempts of one synchronization pass.
type RetryConfig struct {
	MaxRetries    int      `json:"max_retries"`
	InitialDelay  Duration `json:"initial_delay"`
	MaxDelay      Duration `json:"max_delay"`
	BackoffFactor float64  `json:"backoff_factor"`
}

// ToRetryConfig converts to the errors package retry configuration.
func (r RetryConfig) ToRetryConfig() errors.RetryConfig {
	return errors.RetryConfig{
		MaxRetries:    r.MaxRetries,
		InitialDelay:  r.InitialDelay.Duration(),
		MaxDelay:      r.MaxDelay.Duration(),
		BackoffFactor: r.BackoffFactor,
	}
}

// LockConfig configures the consistency coordinator.
type LockConfig struct {
	Timeout Duration `json:"timeout"`
}

// SchemaConfig names the property graph properties and selects how blank
// nodes are identified.
type SchemaConfig struct {
	pgs.Schema
	BlankNodes string `json:"blank_nodes"`
}

// PrimaryConfig configures the primary triple store.
type PrimaryConfig struct {
	Backend        string `json:"backend"`
	Path           string `json:"path,omitempty"`
	Seed           string `json:"seed,omitempty"`
	ChangeLogLimit int    `json:"change_log_limit"`
}

// CacheConfig configures the analytic cache.
type CacheConfig struct {
	Backend  string `json:"backend"`
	Path     string `json:"path,omitempty"`
	InMemory bool   `json:"in_memory,omitempty"`
}

// FullTextConfig configures the full-text index.
type FullTextConfig struct {
	Enabled    bool     `json:"enabled"`
	Predicates []string `json:"predicates,omitempty"`
}

// AnalyticsConfig configures graph analytics jobs.
type AnalyticsConfig struct {
	PageRank PageRankConfig `json:"pagerank"`
}

// PageRankConfig configures the PageRank job.
type PageRankConfig struct {
	Enabled    bool    `json:"enabled"`
	Iterations int     `json:"iterations"`
	Damping    float64 `json:"damping"`
	Tolerance  float64 `json:"tolerance"`

	// MinInterval spaces reruns triggered by graph events.
	MinInterval Duration `json:"min_interval"`
}

// NATSConfig configures the event bridge. An empty URL disables it.
type NATSConfig struct {
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the default configuration: in-memory stores, incremental
// synchronization and the HTTP server on :8080.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Strategy:  synchronizer.StrategyIncremental,
			QueueSize: 256,
			Retry: RetryConfig{
				MaxRetries:    3,
				InitialDelay:  Duration(100 * time.Millisecond),
				MaxDelay:      Duration(5 * time.Second),
				BackoffFactor: 2,
			},
		},
		Lock:      LockConfig{Timeout: Duration(30 * time.Second)},
		Schema:    SchemaConfig{Schema: pgs.DefaultSchema(), BlankNodes: BlankNodesLabel},
		Primary:   PrimaryConfig{Backend: BackendMemory, ChangeLogLimit: 4096},
		Cache:     CacheConfig{Backend: BackendMemory},
		FullText:  FullTextConfig{Enabled: true},
		Analytics: AnalyticsConfig{PageRank: PageRankConfig{Enabled: false, Iterations: 20, Damping: 0.85, Tolerance: 1e-6,
			MinInterval: Duration(time.Second)}},
		NATS:      NATSConfig{SubjectPrefix: "esm.status"},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
		"Config", "Validate", "validate configuration")
}

// Validate checks the configuration and normalizes names.
func (c *Config) Validate() error {
	strategy, err := synchronizer.ParseStrategy(c.Sync.Strategy)
	if err != nil {
		return invalid("sync.strategy %q is not full or incremental", c.Sync.Strategy)
	}
	c.Sync.Strategy = strategy
	if c.Sync.QueueSize <= 0 {
		return invalid("sync.queue_size must be positive")
	}
	r := c.Sync.Retry
	if r.MaxRetries < 0 {
		return invalid("sync.retry.max_retries must not be negative")
	}
	if r.InitialDelay < 0 || r.MaxDelay < r.InitialDelay {
		return invalid("sync.retry delays must satisfy 0 <= initial_delay <= max_delay")
	}
	if r.BackoffFactor < 1 {
		return invalid("sync.retry.backoff_factor must be at least 1")
	}
	if c.Lock.Timeout <= 0 {
		return invalid("lock.timeout must be positive")
	}

	if err := c.Schema.Schema.Validate(); err != nil {
		return err
	}
	c.Schema.BlankNodes = strings.ToLower(c.Schema.BlankNodes)
	switch c.Schema.BlankNodes {
	case BlankNodesLabel:
	case BlankNodesSkolem:
		// Skolem identities are minted per pass and cannot be matched by a
		// later delta.
		if c.Sync.Strategy != synchronizer.StrategyFull {
			return invalid("schema.blank_nodes %q requires sync.strategy %q", BlankNodesSkolem, synchronizer.StrategyFull)
		}
	default:
		return invalid("schema.blank_nodes %q is not label or skolem", c.Schema.BlankNodes)
	}

	if err := validateBackend("primary", c.Primary.Backend, c.Primary.Path, false); err != nil {
		return err
	}
	if c.Primary.ChangeLogLimit < 0 {
		return invalid("primary.change_log_limit must not be negative")
	}
	if err := validateBackend("cache", c.Cache.Backend, c.Cache.Path, c.Cache.InMemory); err != nil {
		return err
	}

	pr := c.Analytics.PageRank
	if pr.Enabled {
		if pr.Iterations <= 0 {
			return invalid("analytics.pagerank.iterations must be positive")
		}
		if pr.Damping <= 0 || pr.Damping >= 1 {
			return invalid("analytics.pagerank.damping must be in (0, 1)")
		}
		if pr.Tolerance <= 0 {
			return invalid("analytics.pagerank.tolerance must be positive")
		}
		if pr.MinInterval < 0 {
			return invalid("analytics.pagerank.min_interval must not be negative")
		}
	}

	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return invalid("nats.subject_prefix is required when nats.url is set")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format %q is not text or json", c.Log.Format)
	}
	return nil
}

func validateBackend(section, backend, path string, inMemory bool) error {
	switch backend {
	case BackendMemory:
		return nil
	case BackendBadger:
		if path == "" && !inMemory {
			return invalid("%s.path is required for the badger backend", section)
		}
		return nil
	default:
		return invalid("%s.backend %q is not memory or badger", section, backend)
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}
