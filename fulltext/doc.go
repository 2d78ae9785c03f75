// Package fulltext maintains a full-text index over the literals of the
// primary store as the third DAO of the middleware.
//
// Tokens are NFKC normalized and case folded, so "Café", "CAFÉ" and
// "café" all find the same subjects. The Updater applies each
// primary write's delta and publishes
//
//	fulltext: READY -> SYNCHRONIZING -> READY
//
// under the write's correlation id. A failed update leaves the DAO FAILED
// and the next write rebuilds the whole index.
package fulltext
