package eop

import (
	"context"
	"time"
)

// Construct default-constructs every cell of c in iteration order.
//
// Each element is zeroed and, when *T implements Constructible, its
// Construct method runs. Construction stops at the first failing cell:
// earlier cells stay initialized, the failing cell and all later ones stay
// raw. The returned *CellError unwraps to the element's error.
func Construct(c Container, opts ...Option) error {
	return runPass(c, OpConstruct, Cell.Construct, opts)
}

// ConstructFrom copy-constructs every cell of c from initializer in
// iteration order. A T initializer is copied, a non-nil *T is dereferenced
// and copied, anything else is handed to the element's Initializable
// method. Failure semantics match Construct.
//
// To seed parts of a sequence differently, call ConstructFrom on each part.
func ConstructFrom(c Container, initializer any, opts ...Option) error {
	return runPass(c, OpConstructFrom, func(cell Cell) error {
		return cell.ConstructFrom(initializer)
	}, opts)
}

// Destruct destroys every cell of c in iteration order without releasing
// storage. Each element's Destructible hook runs, then its storage is
// zeroed. Destruction stops at the first failing cell, which stays live
// along with every later cell.
func Destruct(c Container, opts ...Option) error {
	return runPass(c, OpDestruct, Cell.Destruct, opts)
}

// DestructWith destroys every cell of c, routing each live object through f
// before its default destruction. A nil f is the same as Destruct.
func DestructWith(c Container, f Finalizer, opts ...Option) error {
	if f == nil {
		return Destruct(c, opts...)
	}
	return runPass(c, OpFinalize, func(cell Cell) error {
		return cell.Finalize(f)
	}, opts)
}

func runPass(c Container, op Op, step func(Cell) error, optFns []Option) error {
	o := applyOptions(optFns)
	start := time.Now()

	var (
		n   int
		err error
	)
	for cell := range c.Cells() {
		if e := step(cell); e != nil {
			err = &CellError{Op: op, Index: n, Err: e}
			break
		}
		n++
	}

	elapsed := time.Since(start)
	switch op {
	case OpConstruct, OpConstructFrom:
		o.metricsCollector.RecordConstruct(n, elapsed, err)
	default:
		o.metricsCollector.RecordDestruct(n, elapsed, err)
	}
	o.logger.LogBulk(context.Background(), op, n, err)

	return err
}
