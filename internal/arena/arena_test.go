package arena

import (
	"context"
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAcquirer struct {
	used  int64
	limit int64
}

var errNoMemory = errors.New("no memory")

func (c *countingAcquirer) AcquireMemory(_ context.Context, n int64) error {
	if c.limit > 0 && c.used+n > c.limit {
		return errNoMemory
	}
	c.used += n
	return nil
}

func (c *countingAcquirer) ReleaseMemory(n int64) { c.used -= n }

func newArena(t *testing.T, chunkSize int, opts ...Option) *Arena {
	t.Helper()
	a, err := New(context.Background(), chunkSize, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Free() })
	return a
}

func TestArena_New(t *testing.T) {
	t.Run("default chunk size", func(t *testing.T) {
		a := newArena(t, 0)
		assert.Equal(t, DefaultChunkSize, a.ChunkSize())
		assert.Equal(t, uint32(1), a.Generation())

		stats := a.Stats()
		assert.Equal(t, uint64(1), stats.ChunksMapped)
		assert.Equal(t, uint64(DefaultChunkSize), stats.BytesReserved)
	})

	t.Run("rounds to power of two", func(t *testing.T) {
		a := newArena(t, 1025)
		assert.Equal(t, 2048, a.ChunkSize())
	})
}

func TestArena_Alloc(t *testing.T) {
	ctx := context.Background()

	t.Run("zeroed", func(t *testing.T) {
		a := newArena(t, 1024)

		buf, err := a.Alloc(ctx, 100, 0)
		require.NoError(t, err)
		require.Len(t, buf, 100)
		assert.Equal(t, 100, cap(buf))
		for i, b := range buf {
			if b != 0 {
				t.Fatalf("byte %d not zero: %d", i, b)
			}
		}
	})

	t.Run("zero size", func(t *testing.T) {
		a := newArena(t, 1024)

		buf, err := a.Alloc(ctx, 0, 0)
		require.NoError(t, err)
		assert.Nil(t, buf)
	})

	t.Run("alignment", func(t *testing.T) {
		a := newArena(t, 4096)

		for _, align := range []int{1, 2, 4, 8, 16, 64} {
			_, err := a.Alloc(ctx, 3, 1) // knock the offset off alignment
			require.NoError(t, err)

			buf, err := a.Alloc(ctx, 5, align)
			require.NoError(t, err)
			ptr := uintptr(unsafe.Pointer(&buf[0]))
			assert.Zero(t, ptr%uintptr(align), "align=%d", align)
		}
	})

	t.Run("invalid alignment", func(t *testing.T) {
		a := newArena(t, 1024)

		_, err := a.Alloc(ctx, 8, 3)
		assert.ErrorIs(t, err, ErrInvalidAlignment)
	})

	t.Run("multiple chunks", func(t *testing.T) {
		a := newArena(t, 128)

		for i := 0; i < 10; i++ {
			_, err := a.Alloc(ctx, 64, 8)
			require.NoError(t, err)
		}
		assert.Greater(t, a.Stats().ChunksMapped, uint64(1))
	})

	t.Run("oversized gets dedicated chunk", func(t *testing.T) {
		a := newArena(t, 256)

		small, err := a.Alloc(ctx, 16, 8)
		require.NoError(t, err)

		big, err := a.Alloc(ctx, 1000, 8)
		require.NoError(t, err)
		assert.Len(t, big, 1000)

		// The current chunk keeps serving small requests.
		next, err := a.Alloc(ctx, 16, 8)
		require.NoError(t, err)
		assert.Equal(t, uintptr(unsafe.Pointer(&small[0]))+16, uintptr(unsafe.Pointer(&next[0])))
		assert.Equal(t, uint64(2), a.Stats().ActiveChunks)
	})

	t.Run("disjoint", func(t *testing.T) {
		a := newArena(t, 1024)

		x, err := a.Alloc(ctx, 8, 8)
		require.NoError(t, err)
		y, err := a.Alloc(ctx, 8, 8)
		require.NoError(t, err)

		x[0] = 1
		assert.Equal(t, byte(0), y[0])
	})
}

func TestArena_Stats(t *testing.T) {
	ctx := context.Background()
	a := newArena(t, 1024)

	_, err := a.Alloc(ctx, 100, 8)
	require.NoError(t, err)
	_, err = a.Alloc(ctx, 200, 8)
	require.NoError(t, err)

	stats := a.Stats()
	assert.Equal(t, uint64(300), stats.BytesUsed)
	assert.Equal(t, uint64(4), stats.BytesWasted) // 100 -> 104
	assert.Equal(t, uint64(2), stats.TotalAllocs)
	assert.Contains(t, a.String(), "allocs: 2")
	assert.InDelta(t, 300.0/1024*100, a.Usage(), 0.001)
}

func TestArena_Reset(t *testing.T) {
	ctx := context.Background()
	acq := &countingAcquirer{}
	a := newArena(t, 256, WithMemoryAcquirer(acq))

	buf, err := a.Alloc(ctx, 64, 8)
	require.NoError(t, err)
	buf[0] = 0xFF

	for i := 0; i < 10; i++ {
		_, err := a.Alloc(ctx, 128, 8)
		require.NoError(t, err)
	}
	require.Greater(t, a.Stats().ActiveChunks, uint64(1))

	gen := a.Generation()
	a.Reset()

	assert.Equal(t, gen+1, a.Generation())
	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.ActiveChunks)
	assert.Zero(t, stats.BytesUsed)
	assert.Equal(t, int64(256), acq.used)

	// Retained memory is raw again.
	again, err := a.Alloc(ctx, 64, 8)
	require.NoError(t, err)
	assert.Equal(t, byte(0), again[0])
}

func TestArena_Free(t *testing.T) {
	ctx := context.Background()
	acq := &countingAcquirer{}
	a, err := New(ctx, 1024, WithMemoryAcquirer(acq))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), acq.used)

	_, err = a.Alloc(ctx, 2048, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1024+2048), acq.used)

	require.NoError(t, a.Free())
	assert.Zero(t, acq.used)
	assert.Zero(t, a.Stats().ActiveChunks)

	_, err = a.Alloc(ctx, 8, 8)
	assert.ErrorIs(t, err, ErrClosed)

	// Idempotent
	assert.NoError(t, a.Free())
}

func TestArena_AcquirerFailure(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, 1024, WithMemoryAcquirer(&countingAcquirer{limit: 512}))
	assert.ErrorIs(t, err, errNoMemory)

	acq := &countingAcquirer{limit: 1024}
	a := newArena(t, 1024, WithMemoryAcquirer(acq))

	_, err = a.Alloc(ctx, 4096, 8)
	assert.ErrorIs(t, err, errNoMemory)
	assert.Equal(t, int64(1024), acq.used)
}

func TestArena_OnMap(t *testing.T) {
	var mapped []int
	a := newArena(t, 128, WithOnMap(func(size int) { mapped = append(mapped, size) }))

	_, err := a.Alloc(context.Background(), 512, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{128, 512}, mapped)
}

func BenchmarkArenaAlloc(b *testing.B) {
	a, err := New(context.Background(), DefaultChunkSize)
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = a.Free() }()

	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		for j := 0; j < 1000; j++ {
			if _, err := a.Alloc(ctx, 64, 8); err != nil {
				b.Fatal(err)
			}
		}
		a.Reset()
	}
}
