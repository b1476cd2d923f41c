package eop

import (
	"errors"
	"fmt"
)

// journal records element hooks across a test. Tests in this package do
// not run in parallel.
var journal struct {
	constructed int
	destructed  []string
}

func resetJournal() {
	journal.constructed = 0
	journal.destructed = nil
}

type point struct {
	X, Y int32
}

// widget has a non-zero default state and observable cleanup.
type widget struct {
	Name  string
	Ready bool
}

func (w *widget) Construct() error {
	w.Name = "default"
	w.Ready = true
	journal.constructed++
	return nil
}

func (w *widget) Destruct() error {
	journal.destructed = append(journal.destructed, w.Name)
	return nil
}

var errFaulty = errors.New("faulty constructor")

// faulty cannot be default-constructed.
type faulty struct {
	V int
}

func (f *faulty) Construct() error {
	f.V = 99 // partially formed before failing
	return errFaulty
}

var errBrittle = errors.New("brittle destructor")

// brittle cannot be destroyed.
type brittle struct {
	V int
}

func (b *brittle) Destruct() error {
	return errBrittle
}

// kelvin accepts foreign initializers.
type kelvin struct {
	K float64
}

func (k *kelvin) ConstructFrom(initializer any) error {
	switch v := initializer.(type) {
	case float64:
		k.K = v + 273.15
		return nil
	case string:
		return fmt.Errorf("kelvin from string %q", v)
	default:
		return fmt.Errorf("kelvin from %T", initializer)
	}
}

// countingFinalizer counts invocations and remembers the objects it saw.
type countingFinalizer struct {
	calls int
	seen  []any
}

func (c *countingFinalizer) Finalize(obj any) error {
	c.calls++
	c.seen = append(c.seen, obj)
	return nil
}
