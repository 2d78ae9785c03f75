package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Consistency taxonomy sentinels. Typed errors below unwrap to these so callers
// can match with errors.Is without knowing the concrete type.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrSyncFailure       = errors.New("synchronization failure")
	ErrLockTimeout       = errors.New("lock acquisition timed out")
	ErrPartialCommit     = errors.New("partial commit")
	ErrUnavailable       = errors.New("representation unavailable")
	ErrHalted            = errors.New("synchronization halted")
	ErrCommitFailed      = errors.New("commit failed")
)

// InvalidTransitionError reports a status edge outside the allowed set.
type InvalidTransitionError struct {
	DAO  string
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s for %s", e.From, e.To, e.DAO)
}

func (e *InvalidTransitionError) Unwrap() error     { return ErrInvalidTransition }
func (e *InvalidTransitionError) Class() ErrorClass { return ErrorInvalid }

// SchemaViolationError reports a triple that cannot be projected onto the
// property graph. Position names the offending term (subject, predicate, object).
type SchemaViolationError struct {
	Triple   string
	Position string
	Reason   string
}

func (e *SchemaViolationError) Error() string {
	if e.Position == "" {
		return fmt.Sprintf("schema violation: %s: %s", e.Reason, e.Triple)
	}
	return fmt.Sprintf("schema violation: %s %s: %s", e.Position, e.Reason, e.Triple)
}

func (e *SchemaViolationError) Unwrap() error     { return ErrSchemaViolation }
func (e *SchemaViolationError) Class() ErrorClass { return ErrorInvalid }

// SyncFailureError reports an aborted synchronization pass.
type SyncFailureError struct {
	CorrelationID uint64
	Strategy      string
	Err           error
}

func (e *SyncFailureError) Error() string {
	return fmt.Sprintf("%s synchronization %d aborted: %v", e.Strategy, e.CorrelationID, e.Err)
}

func (e *SyncFailureError) Unwrap() []error { return []error{ErrSyncFailure, e.Err} }

// Class inherits the class of the cause so schema violations and partial
// commits are not retried as if they were transient.
func (e *SyncFailureError) Class() ErrorClass {
	if class, ok := classOf(e.Err); ok {
		return class
	}
	if IsFatal(e.Err) {
		return ErrorFatal
	}
	return ErrorTransient
}

// LockTimeoutError is returned when the coordinator lock was not granted
// before the caller's deadline. No lock is held when it is returned.
type LockTimeoutError struct {
	Owner  string
	Waited time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock for %q not acquired within %s", e.Owner, e.Waited.Round(time.Millisecond))
}

func (e *LockTimeoutError) Unwrap() error     { return ErrLockTimeout }
func (e *LockTimeoutError) Class() ErrorClass { return ErrorTransient }

// CommitError reports a commit that failed before any resource committed.
// Every resource was rolled back, so the unit left no trace.
type CommitError struct {
	Resource string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit of %s failed, unit rolled back: %v", e.Resource, e.Err)
}

func (e *CommitError) Unwrap() []error { return []error{ErrCommitFailed, e.Err} }

// Class is transient unless the cause says otherwise.
func (e *CommitError) Class() ErrorClass {
	if class, ok := classOf(e.Err); ok {
		return class
	}
	return ErrorTransient
}

// PartialCommitError reports that some resources of a unit committed while
// others did not. It is never retried automatically.
type PartialCommitError struct {
	Committed []string
	Failed    string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("partial commit: %s failed after [%s] committed: %v",
		e.Failed, strings.Join(e.Committed, ", "), e.Err)
}

func (e *PartialCommitError) Unwrap() []error   { return []error{ErrPartialCommit, e.Err} }
func (e *PartialCommitError) Class() ErrorClass { return ErrorFatal }

// StaleError signals that a representation cannot serve consistent data.
type StaleError struct {
	DAO    string
	Status string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s is %s: data stale or unavailable", e.DAO, strings.ToLower(e.Status))
}

func (e *StaleError) Unwrap() error     { return ErrUnavailable }
func (e *StaleError) Class() ErrorClass { return ErrorTransient }
