// Package worker provides a generic, thread-safe worker pool used by the
// batch runner to generate independent datasets concurrently.
//
// The pool manages a fixed number of goroutines draining a bounded queue.
// Submit is non-blocking: a full queue returns ErrQueueFull as a
// backpressure signal rather than stalling the caller. Statistics are
// always tracked with atomic counters; Prometheus metrics are opt-in via
// WithMetricsRegistry and register under the shared metric.Registry.
//
//	pool := worker.NewPool(4, 64,
//	    func(ctx context.Context, job generationJob) error {
//	        return run(ctx, job)
//	    },
//	    worker.WithMetricsRegistry[generationJob](registry, "batch"),
//	)
//	pool.Start(ctx)
//	defer pool.Stop(10 * time.Second)
//
// Worker count is fixed at creation; there is no dynamic scaling, no
// priority ordering, and no per-item cancellation. Per-item timeouts belong
// in the processor function, which receives the Start context.
package worker
