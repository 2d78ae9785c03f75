package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxConfigSize = 1 << 20
	maxJSONDepth  = 64
	maxEnvVarLen  = 4096
)

// checkConfigPath accepts JSON and YAML files that resolve inside the working
// directory. Absolute paths are accepted as long as they are already clean.
func checkConfigPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}

	if filepath.IsAbs(path) {
		if filepath.Clean(path) != path {
			return fmt.Errorf("config path %s is not clean", path)
		}
		return nil
	}
	if !filepath.IsLocal(path) {
		return fmt.Errorf("config path %s escapes the working directory", path)
	}
	return nil
}

func safeReadFile(path string) ([]byte, error) {
	if err := checkConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config path %s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigSize)
	}
	return os.ReadFile(path)
}

// safeWriteFile writes with owner-only permissions.
func safeWriteFile(path string, data []byte) error {
	if err := checkConfigPath(path); err != nil {
		return err
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data exceeds %d bytes", maxConfigSize)
	}
	return os.WriteFile(path, data, 0600)
}

func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s exceeds %d bytes", key, maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("environment variable %s contains a NUL byte", key)
	}
	return nil
}

// validateJSONDepth walks the token stream and rejects documents nested
// deeper than maxJSONDepth before they reach the decoder.
func validateJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed JSON: %w", err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting exceeds depth %d", maxJSONDepth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
