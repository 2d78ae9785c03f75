// Package analytics computes graph analytics over the derived property
// graph and persists them in the analytic cache.
//
// The PageRank Job reads the graph under the shared lock and writes one
// score per vertex under the exclusive lock, so scores and graph commit or
// roll back together with synchronization passes. Scores of vertices that
// left the graph are removed by the next run, or earlier by the
// synchronizer's cache invalidation.
package analytics
