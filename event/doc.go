// Package event delivers DAO status transitions to interested components.
//
// The Bus implements status.Publisher. Every accepted transition is
// enqueued for each matching subscription and Publish returns at once, so a
// write path that triggers a long synchronization never waits for it.
// Delivery per subscription is FIFO, which keeps the events of one DAO in
// order; there is no ordering across DAOs beyond the shared correlation id.
//
//	sub, err := bus.Subscribe(status.Primary, event.Statuses(status.Ready),
//	    func(ctx context.Context, ev status.TransitionEvent) {
//	        engine.Enqueue(ctx, ev.CorrelationID)
//	    })
//	defer sub.Unsubscribe()
//
// Callers that need to know when a write has propagated wait for the
// matching READY event:
//
//	ev, err := bus.WaitFor(ctx, status.Graph, id, status.Ready, status.Failed)
//
// Correlation ids come from a CorrelationSource that is created once and
// injected into every DAO that starts a logical write.
//
// A Bridge exports transitions to NATS for observers outside the process.
package event
