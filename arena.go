package eop

import (
	"context"

	"github.com/hupe1980/eop/internal/arena"
)

// ArenaStats reports arena memory usage.
type ArenaStats struct {
	ChunksMapped  uint64 // Historical: chunks ever mapped
	ActiveChunks  uint64
	BytesReserved uint64 // Current: bytes mapped
	BytesUsed     uint64 // Current: bytes handed to regions
	BytesWasted   uint64 // Current: alignment padding and chunk tails
	TotalAllocs   uint64 // Historical: regions carved
}

// Arena supplies raw off-heap storage for regions.
//
// Memory is mapped in chunks outside the Go heap, so only pointer-free
// element types may be placed in it. Reset and Close invalidate every region
// carved from the arena; such regions report ErrStaleRegion.
type Arena struct {
	a *arena.Arena
}

// NewArena maps the first chunk of a new arena.
// Recognized options: WithChunkSize, WithResourceController, WithLogger.
func NewArena(ctx context.Context, opts ...Option) (*Arena, error) {
	o := applyOptions(opts)

	a, err := arena.New(ctx, o.chunkSize,
		arena.WithMemoryAcquirer(o.resources),
		arena.WithOnMap(o.logger.LogChunkMapped),
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &Arena{a: a}, nil
}

func (a *Arena) alloc(ctx context.Context, size, align int) ([]byte, uint32, error) {
	gen := a.a.Generation()
	buf, err := a.a.Alloc(ctx, size, align)
	if err != nil {
		return nil, 0, translateError(err)
	}
	return buf, gen, nil
}

// Generation changes on every Reset and Close.
func (a *Arena) Generation() uint32 {
	return a.a.Generation()
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() ArenaStats {
	s := a.a.Stats()
	return ArenaStats{
		ChunksMapped:  s.ChunksMapped,
		ActiveChunks:  s.ActiveChunks,
		BytesReserved: s.BytesReserved,
		BytesUsed:     s.BytesUsed,
		BytesWasted:   s.BytesWasted,
		TotalAllocs:   s.TotalAllocs,
	}
}

// Reset recycles the arena's memory. Every region carved before Reset
// becomes stale; the retained memory is zeroed.
func (a *Arena) Reset() {
	a.a.Reset()
}

// Close unmaps all memory. It is idempotent.
func (a *Arena) Close() error {
	return a.a.Free()
}

func (a *Arena) String() string {
	return a.a.String()
}
