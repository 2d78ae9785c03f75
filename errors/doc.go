// Package errors provides standardized error handling for the synchronization
// middleware.
//
// # Error Classification
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input, non-retryable) and Fatal (unrecoverable, stop processing).
// Classification looks at the error chain first, so a typed error or a
// ClassifiedError anywhere in the chain decides the class:
//
//	if errors.IsTransient(err) {
//	    // retry with backoff
//	}
//
// # Consistency Taxonomy
//
// The synchronization engine reports failures through typed errors that unwrap
// to package sentinels:
//
//   - InvalidTransitionError (ErrInvalidTransition, invalid): a status edge outside the allowed set
//   - SchemaViolationError (ErrSchemaViolation, invalid): a triple that cannot be projected
//   - SyncFailureError (ErrSyncFailure, class of its cause): an aborted synchronization pass
//   - LockTimeoutError (ErrLockTimeout, transient): the coordinator lock was not granted in time
//   - PartialCommitError (ErrPartialCommit, fatal): graph and cache commits diverged
//   - StaleError (ErrUnavailable, transient): a DAO is degraded, failed or not yet booted
//
// # Error Wrapping Pattern
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// via Wrap, WrapTransient, WrapInvalid and WrapFatal.
package errors
