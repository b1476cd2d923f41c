package eop

import (
	"fmt"
	"reflect"
)

// State is the lifetime state of a slot.
type State uint8

const (
	// Raw storage holds no live object.
	Raw State = iota
	// Initialized storage holds a live object.
	Initialized
)

func (s State) String() string {
	switch s {
	case Raw:
		return "raw"
	case Initialized:
		return "initialized"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Constructible is implemented by *T for element types that need more than
// the zero value as their default state. Construct runs on zeroed storage.
type Constructible interface {
	Construct() error
}

// Initializable is implemented by *T for element types that can be built
// from initializers other than a T or *T. It runs on zeroed storage.
type Initializable interface {
	ConstructFrom(initializer any) error
}

// Destructible is implemented by *T for element types that own something
// beyond their storage. Destruct runs before the storage is zeroed.
type Destructible interface {
	Destruct() error
}

// constructAt default-constructs *p in place.
func constructAt[T any](p *T) error {
	var zero T
	*p = zero
	if c, ok := any(p).(Constructible); ok {
		if err := c.Construct(); err != nil {
			*p = zero
			return err
		}
	}
	return nil
}

// copyConstructAt builds *p from initializer in place. The result never
// aliases the initializer's storage.
func copyConstructAt[T any](p *T, initializer any) error {
	switch v := initializer.(type) {
	case nil:
		// nil is a valid value of interface element types.
		if reflect.TypeFor[T]().Kind() == reflect.Interface {
			var zero T
			*p = zero
			return nil
		}
	case T:
		*p = v
		return nil
	case *T:
		if v != nil {
			*p = *v
			return nil
		}
	}

	var zero T
	*p = zero
	if c, ok := any(p).(Initializable); ok {
		if err := c.ConstructFrom(initializer); err != nil {
			*p = zero
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %T into %s", ErrIncompatibleInitializer, initializer, typeName[T]())
}

// destructAt runs f and the Destructible hook on *p, then zeroes it.
// On error *p is left live.
func destructAt[T any](p *T, f Finalizer) error {
	if f != nil {
		if err := f.Finalize(p); err != nil {
			return err
		}
	}
	if d, ok := any(p).(Destructible); ok {
		if err := d.Destruct(); err != nil {
			return err
		}
	}
	var zero T
	*p = zero
	return nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// hasPointers reports whether values of t hold references the garbage
// collector must see.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
