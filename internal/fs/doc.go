// Package fs abstracts the few filesystem operations snapshot files need,
// so tests can inject write, sync and rename failures.
//
//   - [LocalFS]: the os package
//   - [FaultyFS]: wraps another FileSystem and fails on request
//
// [WriteAtomic] writes a file through a temporary sibling and renames it into
// place, so readers never observe a partially written snapshot.
//
// Operations take no context.Context: local file IO is not interruptible at
// the syscall level. Callers throttle through the writer they wrap instead.
package fs
