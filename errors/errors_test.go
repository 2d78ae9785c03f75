package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"lock timeout", &LockTimeoutError{Owner: "pagerank", Waited: time.Second}, true},
		{"invalid transition", &InvalidTransitionError{DAO: "graph", From: "READY", To: "BOOTING"}, false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("timeout")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsTransient(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"partial commit", &PartialCommitError{Committed: []string{"cache"}, Failed: "graph", Err: fmt.Errorf("boom")}, true},
		{"fatal in message", fmt.Errorf("fatal: disk gone"), true},
		{"transient", ErrStorageUnavailable, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsFatal(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"wrapped invalid data", fmt.Errorf("decode: %w", ErrInvalidData), true},
		{"schema violation", &SchemaViolationError{Triple: "<a> <b> ?", Position: "object", Reason: "unknown term kind"}, true},
		{"storage unavailable", ErrStorageUnavailable, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsInvalid(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"unknown", fmt.Errorf("something odd"), ErrorTransient},
		{"fatal", ErrMissingConfig, ErrorFatal},
		{"invalid", ErrInvalidData, ErrorInvalid},
		{"sync failure with schema cause", &SyncFailureError{Strategy: "incremental", Err: &SchemaViolationError{Reason: "x"}}, ErrorInvalid},
		{"sync failure with plain cause", &SyncFailureError{Strategy: "full", Err: fmt.Errorf("read failed")}, ErrorTransient},
		{"sync failure with partial commit", &SyncFailureError{Strategy: "full", Err: &PartialCommitError{Failed: "graph", Err: fmt.Errorf("x")}}, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "C", "M", "a") != nil {
		t.Fatal("wrapping nil must return nil")
	}

	err := Wrap(ErrNoActiveSession, "BadgerCache", "Commit", "commit session")
	want := "BadgerCache.Commit: commit session failed: no active write session"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, ErrNoActiveSession) {
		t.Error("wrapped error lost its cause")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("disk")

	tests := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"transient", WrapTransient(base, "C", "M", "a"), ErrorTransient},
		{"invalid", WrapInvalid(base, "C", "M", "a"), ErrorInvalid},
		{"fatal", WrapFatal(base, "C", "M", "a"), ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var ce *ClassifiedError
			if !errors.As(test.err, &ce) {
				t.Fatalf("expected ClassifiedError, got %T", test.err)
			}
			if ce.Class != test.class {
				t.Errorf("expected class %s, got %s", test.class, ce.Class)
			}
			if ce.Component != "C" || ce.Operation != "M" {
				t.Errorf("unexpected context %s.%s", ce.Component, ce.Operation)
			}
			if !errors.Is(test.err, base) {
				t.Error("classified error lost its cause")
			}
		})
	}
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.ShouldRetry(nil, 0) {
		t.Error("nil error must not be retried")
	}
	if !cfg.ShouldRetry(ErrStorageUnavailable, 0) {
		t.Error("transient error should be retried")
	}
	if cfg.ShouldRetry(ErrStorageUnavailable, cfg.MaxRetries) {
		t.Error("retries must stop at MaxRetries")
	}
	if cfg.ShouldRetry(&SchemaViolationError{Reason: "bad"}, 0) {
		t.Error("schema violation must not be retried")
	}
}

func TestRetryConfig_ToRetryConfig(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 3}
	rc := cfg.ToRetryConfig()

	if rc.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", rc.MaxAttempts)
	}
	if rc.Multiplier != 3 || rc.InitialDelay != time.Millisecond || rc.MaxDelay != time.Second {
		t.Errorf("unexpected conversion: %+v", rc)
	}
	if !rc.AddJitter {
		t.Error("jitter should be enabled")
	}
}
