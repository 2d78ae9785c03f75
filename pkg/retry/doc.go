// Package retry provides exponential backoff retry logic for transient failures.
//
// The synchronization engine uses it to re-run a failed pass: each failed
// attempt that will be followed by another one triggers Config.OnRetry, which
// the engine uses to publish the recovery transition before backing off.
//
//	err := retry.Do(ctx, cfg, func() error {
//	    return strategy.Synchronize(ctx, correlationID)
//	})
//
// Errors wrapped with NonRetryable (schema violations, partial commits) end
// the loop immediately and are returned unchanged.
package retry
