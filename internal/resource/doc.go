// Package resource implements the Controller for engine-wide limits.
//
// The Controller manages three resource types:
//
//   - Memory: bytes held by published tables (non-blocking, fail-fast)
//   - Concurrency: compilation slots (semaphore)
//   - IO: token-bucket rate limit for table store reads
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns ErrMemoryLimitExceeded
// immediately if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(size)
//
// # Compilation Slots
//
//	if err := rc.AcquireCompile(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseCompile()
//
// # IO Rate Limiting
//
//	reader := resource.NewRateLimitedReader(ctx, blob, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
