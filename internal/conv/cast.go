package conv

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Uint32 converts a non-negative int to uint32.
func Uint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrOverflow, v)
	}
	return uint32(v), nil
}

// Int converts an unsigned value to int.
func Int[U ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr](v U) (int, error) {
	if uint64(v) > math.MaxInt {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, uint64(v))
	}
	return int(v), nil
}

// Mul returns a*b for non-negative operands, failing on overflow.
func Mul(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand %d*%d", ErrOverflow, a, b)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, fmt.Errorf("%w: %d*%d", ErrOverflow, a, b)
	}
	return int(lo), nil
}
