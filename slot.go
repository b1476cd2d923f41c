package eop

// Cell is the type-erased view of one slot used by the bulk lifecycle
// operations. *Slot[T] and region cells implement it, so sequences of cells
// may mix element types.
type Cell interface {
	// State reports whether the cell holds a live object.
	State() State
	// Construct default-constructs the element in place.
	Construct() error
	// ConstructFrom copy-constructs the element from initializer in place.
	ConstructFrom(initializer any) error
	// Destruct destroys the element, leaving raw storage.
	Destruct() error
	// Finalize destroys the element through f, leaving raw storage.
	Finalize(f Finalizer) error
}

// Slot is storage for exactly one T together with its lifetime state.
//
// The zero Slot is raw. The only transitions are
//
//	raw --Construct/ConstructFrom--> initialized --Destruct/Finalize--> raw
//
// and both directions are checked: constructing an initialized slot returns
// ErrSlotInitialized, destructing a raw one returns ErrSlotRaw, and the slot
// is left untouched. A Slot must not be copied once constructed; go vet
// reports copies.
type Slot[T any] struct {
	_     noCopy
	value T
	state State
}

// noCopy makes go vet's copylocks check flag copied values of the struct
// embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

var _ Cell = (*Slot[int])(nil)

// State implements Cell.
func (s *Slot[T]) State() State {
	return s.state
}

// Initialized reports whether the slot holds a live object.
func (s *Slot[T]) Initialized() bool {
	return s.state == Initialized
}

// Address returns a non-owning address of the slot's storage.
// It stays valid as long as the slot does, whatever its state.
func (s *Slot[T]) Address() Address[T] {
	return ReferenceTo(&s.value)
}

// Get returns a pointer to the live object.
func (s *Slot[T]) Get() (*T, error) {
	if s.state != Initialized {
		return nil, ErrSlotRaw
	}
	return &s.value, nil
}

// Construct implements Cell.
func (s *Slot[T]) Construct() error {
	if s.state == Initialized {
		return ErrSlotInitialized
	}
	if err := constructAt(&s.value); err != nil {
		return err
	}
	s.state = Initialized
	return nil
}

// ConstructFrom implements Cell.
func (s *Slot[T]) ConstructFrom(initializer any) error {
	if s.state == Initialized {
		return ErrSlotInitialized
	}
	if err := copyConstructAt(&s.value, initializer); err != nil {
		return err
	}
	s.state = Initialized
	return nil
}

// Destruct implements Cell.
func (s *Slot[T]) Destruct() error {
	return s.Finalize(nil)
}

// Finalize implements Cell. A nil f is the same as Destruct.
func (s *Slot[T]) Finalize(f Finalizer) error {
	if s.state != Initialized {
		return ErrSlotRaw
	}
	if err := destructAt(&s.value, f); err != nil {
		return err
	}
	s.state = Raw
	return nil
}
