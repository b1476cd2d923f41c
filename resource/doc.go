// Package resource implements the Controller that bounds memory and IO used
// by owned allocations, arena chunks and region snapshots.
//
// # Memory Budget
//
// AcquireMemory blocks until the bytes fit under the configured limit or the
// context ends. TryAcquireMemory never blocks:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(ctx, 4096); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(4096)
//
// # IO Rate Limiting
//
// A token bucket throttles snapshot traffic:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 32 << 20,
//	})
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods treat a nil *Controller as unlimited, so callers can pass one
// around without nil checks.
package resource
