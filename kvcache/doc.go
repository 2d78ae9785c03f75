// Package kvcache provides the persisted key/value cache that sits next to
// the derived graph, for example PageRank scores keyed by vertex identity.
//
// The cache is a coordinator resource. Writes are accepted only inside a
// session (Begin ... Commit or Rollback); a rolled back session leaves the
// committed content byte-for-byte as it was. Two implementations exist:
// MemoryCache buffers writes in a map and BadgerCache maps a session to a
// badger read-write transaction.
package kvcache
