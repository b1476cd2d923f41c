package eop

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/eop/internal/conv"
)

// Region is a fixed run of raw slots for T.
//
// Storage comes either from the Go heap (nil arena) or from an Arena; the
// latter requires a pointer-free T. Which slots are live is tracked in a
// roaring bitmap, so a region's cells follow the same checked transitions
// as Slot. A Region is not safe for concurrent use.
type Region[T any] struct {
	data  []T
	live  *roaring.Bitmap
	arena *Arena
	gen   uint32
}

// NewRegion returns a region of n raw slots. With a nil arena the storage is
// an ordinary slice.
func NewRegion[T any](ctx context.Context, a *Arena, n int) (*Region[T], error) {
	if _, err := conv.Uint32(n); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	r := &Region[T]{live: roaring.New()}

	var zero T
	size := int(unsafe.Sizeof(zero))

	if a != nil && hasPointers(reflect.TypeFor[T]()) {
		return nil, fmt.Errorf("%w: %s", ErrPointerfulType, typeName[T]())
	}

	if a == nil || size == 0 || n == 0 {
		r.data = make([]T, n)
		return r, nil
	}

	total, err := conv.Mul(n, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLength, err)
	}

	buf, gen, err := a.alloc(ctx, total, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}

	r.data = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n) //nolint:gosec // pointer-free T in off-heap memory
	r.arena = a
	r.gen = gen
	return r, nil
}

func (r *Region[T]) check() error {
	if r.arena != nil && r.arena.Generation() != r.gen {
		return ErrStaleRegion
	}
	return nil
}

func (r *Region[T]) checkIndex(i int) error {
	if err := r.check(); err != nil {
		return err
	}
	if i < 0 || i >= len(r.data) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(r.data))
	}
	return nil
}

// Len returns the number of slots.
func (r *Region[T]) Len() int {
	return len(r.data)
}

// Live returns the number of initialized slots.
func (r *Region[T]) Live() int {
	return int(r.live.GetCardinality()) //nolint:gosec // bounded by Len
}

// Initialized reports whether slot i holds a live object.
// It is false for indices outside the region.
func (r *Region[T]) Initialized(i int) bool {
	return i >= 0 && i < len(r.data) && r.live.Contains(uint32(i)) //nolint:gosec // i < Len <= MaxUint32
}

// At returns a pointer to the live object in slot i.
func (r *Region[T]) At(i int) (*T, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	if !r.Initialized(i) {
		return nil, ErrSlotRaw
	}
	return &r.data[i], nil
}

// Cell returns slot i as a Cell.
func (r *Region[T]) Cell(i int) (Cell, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	return regionCell[T]{r: r, i: i}, nil
}

// Cells implements Container.
func (r *Region[T]) Cells() iter.Seq[Cell] {
	return r.cells(0, len(r.data))
}

// Range returns slots [lo, hi) as a Container.
func (r *Region[T]) Range(lo, hi int) (Container, error) {
	if lo < 0 || hi > len(r.data) || lo > hi {
		return nil, fmt.Errorf("%w: [%d,%d) not in [0,%d)", ErrIndexOutOfRange, lo, hi, len(r.data))
	}
	return CellSeq(r.cells(lo, hi)), nil
}

func (r *Region[T]) cells(lo, hi int) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for i := lo; i < hi; i++ {
			if !yield(regionCell[T]{r: r, i: i}) {
				return
			}
		}
	}
}

// bytes views the whole storage as raw bytes.
func (r *Region[T]) bytes() []byte {
	if len(r.data) == 0 {
		return nil
	}
	size := unsafe.Sizeof(r.data[0])
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(r.data))), uintptr(len(r.data))*size) //nolint:gosec // view of owned storage
}

type regionCell[T any] struct {
	r *Region[T]
	i int
}

func (c regionCell[T]) State() State {
	if c.r.Initialized(c.i) {
		return Initialized
	}
	return Raw
}

func (c regionCell[T]) Construct() error {
	return c.construct(func(p *T) error { return constructAt(p) })
}

func (c regionCell[T]) ConstructFrom(initializer any) error {
	return c.construct(func(p *T) error { return copyConstructAt(p, initializer) })
}

func (c regionCell[T]) construct(fn func(*T) error) error {
	if err := c.r.check(); err != nil {
		return err
	}
	if c.r.Initialized(c.i) {
		return ErrSlotInitialized
	}
	if err := fn(&c.r.data[c.i]); err != nil {
		return err
	}
	c.r.live.Add(uint32(c.i)) //nolint:gosec // i < Len <= MaxUint32
	return nil
}

func (c regionCell[T]) Destruct() error {
	return c.Finalize(nil)
}

func (c regionCell[T]) Finalize(f Finalizer) error {
	if err := c.r.check(); err != nil {
		return err
	}
	if !c.r.Initialized(c.i) {
		return ErrSlotRaw
	}
	if err := destructAt(&c.r.data[c.i], f); err != nil {
		return err
	}
	c.r.live.Remove(uint32(c.i)) //nolint:gosec // i < Len <= MaxUint32
	return nil
}
