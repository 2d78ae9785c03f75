package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khaller93/es-middleware-sub003/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ESM"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: EnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every layer and the environment overrides.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("failed to load %s: %w", path, err),
				"Loader", "Load", "read configuration layer")
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "encode merged configuration")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"Loader", "Load", "decode merged configuration")
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadRaw loads a JSON or YAML file as a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) error {
		val, ok := l.env(name)
		if !ok {
			return nil
		}
		if err := validateEnvVar(l.envPrefix+"_"+name, val); err != nil {
			return err
		}
		*dst = val
		return nil
	}
	boolean := func(name string, dst *bool) error {
		var val string
		if err := str(name, &val); err != nil || val == "" {
			return err
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
		}
		*dst = b
		return nil
	}
	duration := func(name string, dst *Duration) error {
		var val string
		if err := str(name, &val); err != nil || val == "" {
			return err
		}
		d, err := ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
		}
		*dst = Duration(d)
		return nil
	}

	overrides := []func() error{
		func() error { return str("SYNC_STRATEGY", &cfg.Sync.Strategy) },
		func() error { return duration("LOCK_TIMEOUT", &cfg.Lock.Timeout) },
		func() error { return str("PRIMARY_BACKEND", &cfg.Primary.Backend) },
		func() error { return str("PRIMARY_PATH", &cfg.Primary.Path) },
		func() error { return str("PRIMARY_SEED", &cfg.Primary.Seed) },
		func() error { return str("CACHE_BACKEND", &cfg.Cache.Backend) },
		func() error { return str("CACHE_PATH", &cfg.Cache.Path) },
		func() error { return str("NATS_URL", &cfg.NATS.URL) },
		func() error { return str("HTTP_ADDR", &cfg.HTTP.Addr) },
		func() error { return boolean("FULLTEXT_ENABLED", &cfg.FullText.Enabled) },
		func() error { return boolean("ANALYTICS_ENABLED", &cfg.Analytics.PageRank.Enabled) },
		func() error { return str("LOG_LEVEL", &cfg.Log.Level) },
	}
	for _, apply := range overrides {
		if err := apply(); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Loader", "applyEnvOverrides", "apply environment override")
		}
	}
	return nil
}

func (l *Loader) env(name string) (string, bool) {
	val, ok := l.lookupEnv(l.envPrefix + "_" + name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}
