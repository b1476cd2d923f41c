package eop

import "iter"

// Container is an ordered sequence of cells. The lifecycle operations work
// on any Container, whatever backs it.
//
// Bulk operations assume every cell is in the same state when a pass starts.
// They do not pre-check this; a cell in the wrong state stops the pass with
// ErrSlotInitialized or ErrSlotRaw.
type Container interface {
	Cells() iter.Seq[Cell]
}

// Slots is a homogeneous container. Sub-slices are containers too, which is
// how parts of a sequence are constructed differently.
type Slots[T any] []Slot[T]

// NewSlots returns n raw slots.
func NewSlots[T any](n int) Slots[T] {
	return make(Slots[T], n)
}

// Cells implements Container.
func (s Slots[T]) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for i := range s {
			if !yield(&s[i]) {
				return
			}
		}
	}
}

// Tuple is a heterogeneous container of cells, e.g.
//
//	var (
//	    id   eop.Slot[int]
//	    name eop.Slot[string]
//	)
//	t := eop.Tuple{&id, &name}
type Tuple []Cell

// Cells implements Container.
func (t Tuple) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for _, c := range t {
			if !yield(c) {
				return
			}
		}
	}
}

// CellSeq adapts an iterator to Container.
type CellSeq iter.Seq[Cell]

// Cells implements Container.
func (s CellSeq) Cells() iter.Seq[Cell] {
	return iter.Seq[Cell](s)
}
