// Package worker provides a generic, thread-safe worker pool.
//
// A Pool[T] runs a fixed number of goroutines that drain a bounded FIFO
// queue. Submit is non-blocking and reports ErrQueueFull under backpressure;
// SubmitWait blocks until the item is queued, the caller's context ends, or
// the pool stops. A pool with a single worker therefore processes submitted
// items strictly in submission order, which the synchronization engine relies
// on to serialize passes:
//
//	pool := worker.NewPool[Task](1, 256, engine.run,
//	    worker.WithMetricsRegistry[Task](registry, "esm_sync_dispatch"),
//	)
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(10 * time.Second)
//
//	if err := pool.SubmitWait(ctx, task); err != nil {
//	    return err
//	}
//
// Statistics are always tracked with atomics and exposed through Stats.
// Prometheus metrics are opt-in through WithMetricsRegistry.
//
// Pool errors are plain sentinels (ErrPoolNotStarted, ErrPoolStopped,
// ErrQueueFull, ErrStopTimeout). Errors returned by the processor are counted
// as failures but otherwise not interpreted.
package worker
