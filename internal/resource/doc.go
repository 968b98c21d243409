// Package resource implements the Controller that governs tile memory,
// compressor workers and swap IO.
//
//   - Memory: resident tile bytes, with an optional limit that makes the
//     tile manager evict eagerly
//   - Concurrency: a semaphore bounding background compressor jobs
//   - IO: a token bucket rate-limiting swap file reads and writes
//
// # Memory
//
// AcquireMemory is fail-fast. The tile manager never refuses a buffer, so it
// falls back to ForceMemory and lets OverMemoryLimit drive eviction:
//
//	if err := rc.AcquireMemory(n); err != nil {
//	    rc.ForceMemory(n)
//	}
//	defer rc.ReleaseMemory(n)
//
// # Background Workers
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO Rate Limiting
//
//	w := resource.NewRateLimitedWriterAt(ctx, file, rc)
//	r := resource.NewRateLimitedReaderAt(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller as unlimited.
package resource
