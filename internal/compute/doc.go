// Package compute provides execution backends for per-particle loops.
//
//   - CPU: splits [0, n) into contiguous chunks, one goroutine per worker
//   - Serial: runs the whole range on the caller's goroutine
//
// Every chunk is tagged with a worker index so callers can keep
// per-worker scratch state (random sources, accumulators) without locks:
//
//	backend := compute.GetBackend()
//	backend.ParallelFor(n, 1024, func(worker, start, end int) {
//	    for i := start; i < end; i++ { ... }
//	})
package compute
