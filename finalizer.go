package eop

// Finalizer intercepts destruction. Finalize receives a pointer to each live
// object, in iteration order, before the element's own Destruct hook runs.
// Returning an error stops the pass and leaves that object live.
//
// Finalizers are typically pointer types so they can accumulate state across
// a pass.
type Finalizer interface {
	Finalize(obj any) error
}

// FinalizerFunc adapts a function to the Finalizer interface.
type FinalizerFunc func(obj any) error

// Finalize implements Finalizer.
func (f FinalizerFunc) Finalize(obj any) error {
	return f(obj)
}

// TypedFinalizer calls fn for *T objects and lets every other element type
// through to its default destruction.
func TypedFinalizer[T any](fn func(*T) error) Finalizer {
	return FinalizerFunc(func(obj any) error {
		if p, ok := obj.(*T); ok {
			return fn(p)
		}
		return nil
	})
}

// Collect returns a Finalizer that appends a copy of every finalized T to
// dst before the original is destroyed.
func Collect[T any](dst *[]T) Finalizer {
	return TypedFinalizer(func(p *T) error {
		*dst = append(*dst, *p)
		return nil
	})
}
