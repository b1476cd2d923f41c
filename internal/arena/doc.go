// Package arena provides the off-heap bump allocator behind eop.Arena.
//
// Memory comes from anonymous mmap chunks, so it is zero-filled, never moved
// and invisible to the garbage collector. Only pointer-free data may live in
// it.
//
// # Features
//
//   - Power-of-two chunks (1 MiB default) carved by a bump pointer
//   - Dedicated chunks for requests larger than the chunk size
//   - Generation counter bumped by Reset and Free so callers can detect
//     stale carvings
//   - Optional MemoryAcquirer charged for every mapped chunk
//
// # Safety
//
// Allocation failures are returned as errors. Reset re-zeroes the retained
// chunk, so memory handed out after a Reset is raw again.
package arena
