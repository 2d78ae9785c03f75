// Package access guards consumers of the knowledge graph representations.
// A DAO that is not booted, DEGRADED or FAILED yields *errors.StaleError,
// which unwraps to errors.ErrUnavailable and is classified transient.
package access
