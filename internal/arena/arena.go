package arena

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/eop/internal/mmap"
)

// MemoryAcquirer reserves memory before a chunk is mapped.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrMaxChunksExceeded is returned when the arena exceeds MaxChunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrClosed is returned by allocations after Free.
	ErrClosed = errors.New("arena: closed")
	// ErrInvalidAlignment is returned for alignments that are not a power of two.
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")
)

const (
	// DefaultChunkSize is the default size of a chunk (1MB).
	DefaultChunkSize = 1024 * 1024
	// DefaultAlignment is used when Alloc is called with align <= 0.
	DefaultAlignment = 8
	// MaxChunks limits the number of live chunks.
	MaxChunks = 65536
)

// Stats tracks arena memory usage.
//
//   - BytesReserved: bytes currently mapped
//   - BytesUsed: bytes handed out (before alignment)
//   - BytesWasted: alignment padding and abandoned chunk tails
//   - ChunksMapped, TotalAllocs: historical counters
type Stats struct {
	ChunksMapped  uint64
	ActiveChunks  uint64
	BytesReserved uint64
	BytesUsed     uint64
	BytesWasted   uint64
	TotalAllocs   uint64
}

type chunk struct {
	mapping *mmap.Mapping
	data    []byte
	offset  int
}

// Arena is a chunked off-heap allocator. It is safe for concurrent use,
// but Reset and Free invalidate everything handed out before them.
type Arena struct {
	mu         sync.Mutex
	chunkSize  int
	chunks     []*chunk
	current    *chunk
	stats      Stats
	closed     bool
	generation atomic.Uint32
	acquirer   MemoryAcquirer
	onMap      func(size int)
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges every mapped chunk to acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithOnMap registers a callback invoked after each chunk is mapped.
func WithOnMap(fn func(size int)) Option {
	return func(a *Arena) {
		a.onMap = fn
	}
}

// New creates an arena and maps its first chunk.
// chunkSize is rounded up to a power of two; <= 0 selects DefaultChunkSize.
func New(ctx context.Context, chunkSize int, opts ...Option) (*Arena, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunkSize = 1 << bits.Len(uint(chunkSize-1)) //nolint:gosec // chunkSize > 0

	a := &Arena{chunkSize: chunkSize}
	for _, opt := range opts {
		opt(a)
	}

	// Generation 0 is never valid.
	a.generation.Store(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.mapChunkLocked(ctx, chunkSize)
	if err != nil {
		return nil, err
	}
	a.current = c
	return a, nil
}

// ChunkSize returns the effective chunk size.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// Generation returns the current generation.
func (a *Arena) Generation() uint32 {
	return a.generation.Load()
}

func (a *Arena) mapChunkLocked(ctx context.Context, size int) (*chunk, error) {
	if len(a.chunks) >= MaxChunks {
		return nil, ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(ctx, int64(size)); err != nil {
			return nil, err
		}
	}

	m, err := mmap.MapAnon(size)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(size))
		}
		return nil, fmt.Errorf("arena: map chunk of %d bytes: %w", size, err)
	}

	c := &chunk{mapping: m, data: m.Bytes()}
	a.chunks = append(a.chunks, c)

	a.stats.ChunksMapped++
	a.stats.ActiveChunks++
	a.stats.BytesReserved += uint64(size)

	if a.onMap != nil {
		a.onMap(size)
	}
	return c, nil
}

// Alloc returns size zeroed bytes aligned to align.
// The slice stays valid until Reset or Free.
func (a *Arena) Alloc(ctx context.Context, size, align int) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}
	if align <= 0 {
		align = DefaultAlignment
	}
	if align&(align-1) != 0 {
		return nil, ErrInvalidAlignment
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	// Chunks are page aligned, so aligning the offset aligns the address.
	if size+align > a.chunkSize {
		c, err := a.mapChunkLocked(ctx, size)
		if err != nil {
			return nil, err
		}
		c.offset = size
		a.account(size, 0)
		return c.data[:size:size], nil
	}

	start := alignUp(a.current.offset, align)
	if start+size > len(a.current.data) {
		tail := len(a.current.data) - a.current.offset
		c, err := a.mapChunkLocked(ctx, a.chunkSize)
		if err != nil {
			return nil, err
		}
		a.stats.BytesWasted += uint64(tail)
		a.current = c
		start = 0
	}

	pad := start - a.current.offset
	end := start + size
	a.current.offset = end
	a.account(size, pad)
	return a.current.data[start:end:end], nil
}

func (a *Arena) account(size, pad int) {
	a.stats.BytesUsed += uint64(size)
	a.stats.BytesWasted += uint64(pad)
	a.stats.TotalAllocs++
}

func alignUp(off, align int) int {
	return (off + align - 1) &^ (align - 1)
}

// Stats returns a snapshot of the arena statistics.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Reset unmaps all but the first chunk and re-zeroes the used part of it.
// Everything allocated before Reset becomes invalid.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	a.generation.Add(1)

	first := a.chunks[0]
	for _, c := range a.chunks[1:] {
		_ = a.unmapLocked(c)
	}
	clear(first.data[:first.offset])
	first.offset = 0

	a.chunks = a.chunks[:1]
	a.current = first

	a.stats.ActiveChunks = 1
	a.stats.BytesReserved = uint64(len(first.data))
	a.stats.BytesUsed = 0
	a.stats.BytesWasted = 0
}

// Free unmaps every chunk and returns their memory to the acquirer.
// The arena cannot be used afterwards.
func (a *Arena) Free() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.generation.Add(1)

	var errs []error
	for _, c := range a.chunks {
		if err := a.unmapLocked(c); err != nil {
			errs = append(errs, err)
		}
	}
	a.chunks = nil
	a.current = nil

	a.stats.ActiveChunks = 0
	a.stats.BytesReserved = 0
	a.stats.BytesUsed = 0
	a.stats.BytesWasted = 0

	return errors.Join(errs...)
}

func (a *Arena) unmapLocked(c *chunk) error {
	size := len(c.data)
	c.data = nil
	err := c.mapping.Close()
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(size))
	}
	return err
}

// Usage returns the share of reserved bytes handed out, in percent.
func (a *Arena) Usage() float64 {
	s := a.Stats()
	if s.BytesReserved == 0 {
		return 0
	}
	return float64(s.BytesUsed) / float64(s.BytesReserved) * 100
}

func (a *Arena) String() string {
	s := a.Stats()
	usage := 0.0
	if s.BytesReserved > 0 {
		usage = float64(s.BytesUsed) / float64(s.BytesReserved) * 100
	}
	return fmt.Sprintf(
		"Arena{chunks: %d, reserved: %.2f MB, used: %.2f MB, wasted: %.2f KB, usage: %.1f%%, allocs: %d}",
		s.ActiveChunks,
		float64(s.BytesReserved)/(1024*1024),
		float64(s.BytesUsed)/(1024*1024),
		float64(s.BytesWasted)/1024,
		usage,
		s.TotalAllocs,
	)
}
