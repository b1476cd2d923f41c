package eop

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/eop/resource"
)

type particle struct {
	Pos  [3]float32
	Mass float64
	ID   uint32
}

func (p *particle) Construct() error {
	p.Mass = 1
	return nil
}

type labeled struct {
	Label string
}

func newTestArena(t *testing.T, opts ...Option) *Arena {
	t.Helper()
	a, err := NewArena(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewRegion(t *testing.T) {
	ctx := context.Background()

	t.Run("heap", func(t *testing.T) {
		r, err := NewRegion[labeled](ctx, nil, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, r.Len())
		assert.Equal(t, 0, r.Live())
	})

	t.Run("arena", func(t *testing.T) {
		a := newTestArena(t)
		r, err := NewRegion[particle](ctx, a, 100)
		require.NoError(t, err)
		assert.Equal(t, 100, r.Len())

		stats := a.Stats()
		assert.Equal(t, uint64(1), stats.TotalAllocs)
		assert.GreaterOrEqual(t, stats.BytesUsed, uint64(100*32))
	})

	t.Run("pointerful type off-heap", func(t *testing.T) {
		a := newTestArena(t)
		_, err := NewRegion[labeled](ctx, a, 1)
		assert.ErrorIs(t, err, ErrPointerfulType)

		_, err = NewRegion[labeled](ctx, a, 0)
		assert.ErrorIs(t, err, ErrPointerfulType)
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := NewRegion[int](ctx, nil, -1)
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("empty", func(t *testing.T) {
		a := newTestArena(t)
		r, err := NewRegion[particle](ctx, a, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, r.Len())
		require.NoError(t, Construct(r))
	})
}

func TestRegion_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestArena(t, WithChunkSize(4096))

	r, err := NewRegion[particle](ctx, a, 8)
	require.NoError(t, err)

	require.NoError(t, Construct(r))
	assert.Equal(t, 8, r.Live())

	p, err := r.At(3)
	require.NoError(t, err)
	assert.Equal(t, particle{Mass: 1}, *p)
	p.ID = 3

	var ids []uint32
	require.NoError(t, DestructWith(r, TypedFinalizer(func(p *particle) error {
		ids = append(ids, p.ID)
		return nil
	})))
	assert.Equal(t, []uint32{0, 0, 0, 3, 0, 0, 0, 0}, ids)
	assert.Equal(t, 0, r.Live())

	_, err = r.At(3)
	assert.ErrorIs(t, err, ErrSlotRaw)
}

func TestRegion_Cell(t *testing.T) {
	r, err := NewRegion[int](context.Background(), nil, 3)
	require.NoError(t, err)

	c, err := r.Cell(1)
	require.NoError(t, err)
	assert.Equal(t, Raw, c.State())

	require.NoError(t, c.ConstructFrom(42))
	assert.Equal(t, Initialized, c.State())
	assert.True(t, r.Initialized(1))
	assert.ErrorIs(t, c.Construct(), ErrSlotInitialized)

	v, err := r.At(1)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)

	require.NoError(t, c.Destruct())
	assert.ErrorIs(t, c.Destruct(), ErrSlotRaw)

	_, err = r.Cell(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.False(t, r.Initialized(99))
}

func TestRegion_Range(t *testing.T) {
	r, err := NewRegion[int](context.Background(), nil, 6)
	require.NoError(t, err)

	head, err := r.Range(0, 2)
	require.NoError(t, err)
	tail, err := r.Range(2, 6)
	require.NoError(t, err)

	require.NoError(t, ConstructFrom(head, 1))
	require.NoError(t, ConstructFrom(tail, 2))

	var got []int
	for i := range r.Len() {
		v, err := r.At(i)
		require.NoError(t, err)
		got = append(got, *v)
	}
	assert.Equal(t, []int{1, 1, 2, 2, 2, 2}, got)

	_, err = r.Range(4, 7)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.Range(3, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRegion_PartialFailure(t *testing.T) {
	r, err := NewRegion[int](context.Background(), nil, 3)
	require.NoError(t, err)

	c, err := r.Cell(1)
	require.NoError(t, err)
	require.NoError(t, c.Construct())

	err = Construct(r)
	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	assert.Equal(t, 1, cellErr.Index)
	assert.True(t, r.Initialized(0))
	assert.True(t, r.Initialized(1))
	assert.False(t, r.Initialized(2))
}

func TestRegion_Stale(t *testing.T) {
	ctx := context.Background()

	t.Run("after reset", func(t *testing.T) {
		a := newTestArena(t)
		r, err := NewRegion[particle](ctx, a, 4)
		require.NoError(t, err)
		require.NoError(t, Construct(r))

		gen := a.Generation()
		a.Reset()
		assert.NotEqual(t, gen, a.Generation())

		_, err = r.At(0)
		assert.ErrorIs(t, err, ErrStaleRegion)
		assert.ErrorIs(t, Destruct(r), ErrStaleRegion)

		fresh, err := NewRegion[particle](ctx, a, 4)
		require.NoError(t, err)
		require.NoError(t, Construct(fresh))
	})

	t.Run("after close", func(t *testing.T) {
		a, err := NewArena(ctx)
		require.NoError(t, err)
		r, err := NewRegion[particle](ctx, a, 4)
		require.NoError(t, err)

		require.NoError(t, a.Close())
		require.NoError(t, a.Close())

		assert.ErrorIs(t, Construct(r), ErrStaleRegion)
		_, err = NewRegion[particle](ctx, a, 1)
		assert.ErrorIs(t, err, ErrArenaClosed)
	})
}

func TestArena_Budget(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 10})

	a, err := NewArena(ctx, WithChunkSize(16<<10), WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, int64(16<<10), rc.MemoryUsage())

	_, err = NewRegion[[1024]byte](ctx, a, 32)
	require.NoError(t, err)
	assert.Equal(t, int64(16<<10)+32<<10, rc.MemoryUsage())

	_, err = NewRegion[[1024]byte](ctx, a, 80)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = NewRegion[[1024]byte](short, a, 32)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, a.Close())
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestHasPointers(t *testing.T) {
	type inner struct {
		A [4]int16
		B complex64
	}
	type nested struct {
		I inner
		S []byte
	}

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"int", 0, false},
		{"array", [8]float32{}, false},
		{"struct", particle{}, false},
		{"nested plain", inner{}, false},
		{"empty array of pointers", [0]*int{}, false},
		{"string", "", true},
		{"slice field", nested{}, true},
		{"pointer", new(int), true},
		{"map", map[int]int{}, true},
		{"interface array", [1]any{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasPointers(reflect.TypeOf(tt.v)))
		})
	}
}
