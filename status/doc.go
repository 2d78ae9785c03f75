// Package status models the lifecycle of each data access object (DAO) of
// the middleware: the primary RDF store, the derived property graph and the
// full-text index.
//
// Every DAO owns exactly one DAOStatus. A Tracker validates each requested
// transition against the allowed edge set
//
//	UNINITIALIZED -> BOOTING -> READY
//	READY -> SYNCHRONIZING -> READY | DEGRADED
//	DEGRADED | FAILED -> SYNCHRONIZING
//	any status except FAILED -> FAILED
//
// and publishes a TransitionEvent for every accepted change. Rejected
// transitions return *errors.InvalidTransitionError and publish nothing, so
// callers must not assume a requested transition took effect.
//
// Transitions of one DAO are totally ordered. Transitions of different DAOs
// are independent and are related only through their correlation ids.
package status
