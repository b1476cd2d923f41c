// Package mmap maps anonymous, read-write memory outside the Go heap.
//
// Chunks obtained here are invisible to the garbage collector. They must only
// hold pointer-free data and must be closed explicitly.
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes() // zero-filled
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT
package mmap
