// Package health maps DAO statuses onto the three health levels served at
// /health.
//
// READY and SYNCHRONIZING are healthy: a synchronizing representation still
// serves (eventually consistent) data. UNINITIALIZED, BOOTING and DEGRADED
// are degraded. FAILED is unhealthy and carries the sanitized failure cause.
//
//	monitor := health.NewMonitor(status.Primary, status.Graph, status.FullText)
//	sub, err := monitor.Follow(bus)
//	...
//	overall := monitor.AggregateHealth("esm")
//
// The system is unhealthy if any DAO is, degraded if any DAO is, and
// healthy otherwise.
package health
