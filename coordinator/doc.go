// Package coordinator provides the lock, commit, rollback and unlock
// discipline every writer of the derived resource set follows.
//
// A Coordinator guards a fixed list of resources (the derived graph handle
// and the persisted cache). Lock grants exclusive access in FIFO order and
// begins a transaction on every resource; Session.Commit commits them as
// one unit and Session.Rollback restores their content at Lock. Unlock
// releases the lock and rolls back a session that was never finished.
//
// If a commit fails after another resource already committed, the
// resources have diverged. The coordinator returns a PartialCommitError
// and refuses every later Lock until Resolve is called, usually after a
// full rebuild.
//
// Reentrancy is carried by the context: Session.Context returns a context
// under which Lock and RLock return a child session of the same unit.
//
//	err := coord.WithLock(ctx, "pagerank", func(ctx context.Context, s *coordinator.Session) error {
//	    return cache.Put(ctx, key, value)
//	})
//
// Readers that only need each graph operation to be atomic may skip the
// lock altogether and accept that they can observe a pass half applied.
package coordinator
