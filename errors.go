package eop

import (
	"errors"
	"fmt"

	"github.com/hupe1980/eop/internal/arena"
	"github.com/hupe1980/eop/internal/blockcodec"
)

var (
	// ErrSlotInitialized is returned when constructing a slot that already
	// holds a live object.
	ErrSlotInitialized = errors.New("eop: slot already initialized")
	// ErrSlotRaw is returned when destructing or reading a raw slot.
	ErrSlotRaw = errors.New("eop: slot is raw")
	// ErrIncompatibleInitializer is returned when an initializer can neither
	// be copied into nor consumed by the element type.
	ErrIncompatibleInitializer = errors.New("eop: incompatible initializer")
	// ErrReleased is returned by Release on an already released handle.
	ErrReleased = errors.New("eop: owned handle already released")
	// ErrPointerfulType is returned when off-heap storage or snapshots are
	// requested for an element type that contains pointers.
	ErrPointerfulType = errors.New("eop: element type contains pointers")
	// ErrStaleRegion is returned when a region outlived a Reset or Close of
	// its arena.
	ErrStaleRegion = errors.New("eop: region is stale")
	// ErrArenaClosed is returned when allocating from a closed arena.
	ErrArenaClosed = errors.New("eop: arena is closed")
	// ErrIndexOutOfRange is returned for slot indices outside a region.
	ErrIndexOutOfRange = errors.New("eop: index out of range")
	// ErrInvalidLength is returned for negative or oversized region lengths.
	ErrInvalidLength = errors.New("eop: invalid region length")
	// ErrCorruptSnapshot is returned for malformed region snapshots.
	ErrCorruptSnapshot = errors.New("eop: corrupt region snapshot")
	// ErrElementSizeMismatch is returned when a snapshot was written for an
	// element type of a different size.
	ErrElementSizeMismatch = errors.New("eop: element size mismatch")
)

// Op names a lifecycle transition.
type Op string

const (
	OpConstruct     Op = "construct"
	OpConstructFrom Op = "construct_from"
	OpDestruct      Op = "destruct"
	OpFinalize      Op = "finalize"
)

// CellError reports the cell at which a lifecycle pass stopped.
//
// Cells before Index completed the transition; the cell at Index and every
// cell after it are left as they were. The element's own error is
// available unchanged via errors.Unwrap.
type CellError struct {
	Op    Op
	Index int
	Err   error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("eop: %s cell %d: %v", e.Op, e.Index, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, arena.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrArenaClosed, err)
	}
	if errors.Is(err, blockcodec.ErrCorrupt) || errors.Is(err, blockcodec.ErrUnknownType) {
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	return err
}
