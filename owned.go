package eop

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/time/rate"

	"github.com/hupe1980/eop/resource"
)

// Owned exclusively owns one heap-allocated T.
//
// Release destroys and deallocates the object exactly once. A handle that
// becomes unreachable without Release is reported as leaked: its memory
// budget is returned and a warning is logged, but its Destruct hook does not
// run.
//
// Owned is not safe for concurrent use.
type Owned[T any] struct {
	value   *T
	state   *ownedState
	cleanup runtime.Cleanup
}

// ownedState is shared with the leak cleanup and must not reference the
// handle.
type ownedState struct {
	typeName  string
	bytes     int64
	released  atomic.Bool
	resources *resource.Controller
	logger    *Logger
	metrics   MetricsCollector
}

var leakLog = rate.Sometimes{First: 3, Interval: 10 * time.Second}

// AllocateOwned reserves memory for a T from the configured budget,
// allocates it and constructs it with init.
//
// A nil init default-constructs the object like Construct does. Constructor
// arguments are captured by the init closure; CopyOf builds one that copies
// a value.
//
// If the budget cannot be reserved before ctx ends, the wrapped reservation
// error is returned. If init fails, the storage is discarded, the budget is
// returned and init's error is returned unchanged. Each call yields an
// independent object.
func AllocateOwned[T any](ctx context.Context, init func(*T) error, opts ...Option) (*Owned[T], error) {
	o := applyOptions(opts)
	name := typeName[T]()

	var zero T
	bytes := int64(unsafe.Sizeof(zero))

	if err := o.resources.AcquireMemory(ctx, bytes); err != nil {
		err = fmt.Errorf("eop: allocate %s: %w", name, err)
		o.metricsCollector.RecordAllocate(bytes, err)
		o.logger.LogAllocate(ctx, name, bytes, err)
		return nil, err
	}

	p := new(T)

	var err error
	if init == nil {
		err = constructAt(p)
	} else {
		err = init(p)
	}
	if err != nil {
		*p = zero
		o.resources.ReleaseMemory(bytes)
		o.metricsCollector.RecordAllocate(bytes, err)
		o.logger.LogAllocate(ctx, name, bytes, err)
		return nil, err
	}

	st := &ownedState{
		typeName:  name,
		bytes:     bytes,
		resources: o.resources,
		logger:    o.logger,
		metrics:   o.metricsCollector,
	}
	h := &Owned[T]{value: p, state: st}
	h.cleanup = runtime.AddCleanup(h, reportLeak, st)

	o.metricsCollector.RecordAllocate(bytes, nil)
	o.logger.LogAllocate(ctx, name, bytes, nil)

	return h, nil
}

// CopyOf returns an init function for AllocateOwned that copies v.
func CopyOf[T any](v T) func(*T) error {
	return func(p *T) error {
		*p = v
		return nil
	}
}

func reportLeak(st *ownedState) {
	if st.released.Swap(true) {
		return
	}
	st.resources.ReleaseMemory(st.bytes)
	st.metrics.RecordRelease(st.bytes, true)
	leakLog.Do(func() {
		st.logger.LogLeak(st.typeName, st.bytes)
	})
}

// Get returns the owned object, or nil after Release.
func (h *Owned[T]) Get() *T {
	return h.value
}

// Address returns a non-owning address of the owned object. It must not be
// used after Release.
func (h *Owned[T]) Address() Address[T] {
	return ReferenceTo(h.value)
}

// Released reports whether Release has been called.
func (h *Owned[T]) Released() bool {
	return h.state.released.Load()
}

// Release runs the object's Destruct hook, zeroes and drops it, and returns
// its memory budget. Deallocation happens even when Destruct fails; that
// error is returned afterwards. Calling Release again returns ErrReleased.
func (h *Owned[T]) Release() error {
	if h.state.released.Swap(true) {
		return ErrReleased
	}
	h.cleanup.Stop()

	p := h.value
	h.value = nil

	var err error
	if d, ok := any(p).(Destructible); ok {
		err = d.Destruct()
	}
	var zero T
	*p = zero

	h.state.resources.ReleaseMemory(h.state.bytes)
	h.state.metrics.RecordRelease(h.state.bytes, false)

	return err
}
