// Package conv provides checked integer conversions and arithmetic.
//
// Use it where values cross a width or signedness boundary and come from
// callers or from encoded data (slot counts, element sizes, snapshot
// headers). Provably bounded values can use plain casts.
package conv
