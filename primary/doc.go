// Package primary provides the authoritative RDF triple store the derived
// representations are computed from.
//
// Every effective write publishes READY→SYNCHRONIZING→READY for the
// primary DAO under one fresh correlation id and records the net delta in
// a change log, so the incremental strategy can fetch it with
// ChangedTriples. Writes that change nothing publish nothing. Consumers
// call Acknowledge once a delta has been applied.
//
// MemoryStore keeps everything in process. BadgerStore persists triples
// and the change log in BadgerDB and commits both in one transaction.
package primary
