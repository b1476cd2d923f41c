package mmap

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrInvalidSize is returned for non-positive mapping sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrClosed is returned when a closed mapping is used.
	ErrClosed = errors.New("mmap: mapping is closed")
)

// Mapping is an anonymous memory mapping.
// It owns the underlying byte slice and unmaps it on Close.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// MapAnon maps size bytes of zero-filled anonymous memory.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped memory, or nil once the mapping is closed.
// Slices obtained before Close must not be touched afterwards.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the mapping length in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if m.unmap == nil || data == nil {
		return nil
	}
	return m.unmap(data)
}
