package eop

import "fmt"

// Address is a non-owning handle to storage of a T.
//
// It carries no lifetime responsibility: it is valid only while the storage
// it designates is.
type Address[T any] struct {
	p *T
}

// ReferenceTo returns the address of x. It has no side effects.
func ReferenceTo[T any](x *T) Address[T] {
	return Address[T]{p: x}
}

// Pointer returns the underlying pointer.
func (a Address[T]) Pointer() *T {
	return a.p
}

// IsNil reports whether a designates no storage.
func (a Address[T]) IsNil() bool {
	return a.p == nil
}

// Load copies the value out of the designated storage.
func (a Address[T]) Load() T {
	return *a.p
}

// Store copies v into the designated storage.
func (a Address[T]) Store(v T) {
	*a.p = v
}

func (a Address[T]) String() string {
	return fmt.Sprintf("Address[%s](%p)", typeName[T](), a.p)
}
