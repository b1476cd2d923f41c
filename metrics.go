package eop

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting lifecycle metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordConstruct is called after each Construct or ConstructFrom pass.
	// cells is the number of cells that became initialized.
	RecordConstruct(cells int, duration time.Duration, err error)

	// RecordDestruct is called after each Destruct or DestructWith pass.
	// cells is the number of cells that became raw.
	RecordDestruct(cells int, duration time.Duration, err error)

	// RecordAllocate is called after each AllocateOwned.
	RecordAllocate(bytes int64, err error)

	// RecordRelease is called when an owned handle gives back its memory.
	// leaked is true when the handle was collected without Release.
	RecordRelease(bytes int64, leaked bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordConstruct(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDestruct(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordAllocate(int64, error)               {}
func (NoopMetricsCollector) RecordRelease(int64, bool)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	ConstructPasses atomic.Int64
	ConstructCells  atomic.Int64
	ConstructErrors atomic.Int64
	ConstructNanos  atomic.Int64
	DestructPasses  atomic.Int64
	DestructCells   atomic.Int64
	DestructErrors  atomic.Int64
	DestructNanos   atomic.Int64
	Allocations     atomic.Int64
	AllocateErrors  atomic.Int64
	Releases        atomic.Int64
	Leaks           atomic.Int64
	LiveBytes       atomic.Int64
}

// RecordConstruct implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConstruct(cells int, duration time.Duration, err error) {
	b.ConstructPasses.Add(1)
	b.ConstructCells.Add(int64(cells))
	b.ConstructNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ConstructErrors.Add(1)
	}
}

// RecordDestruct implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDestruct(cells int, duration time.Duration, err error) {
	b.DestructPasses.Add(1)
	b.DestructCells.Add(int64(cells))
	b.DestructNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DestructErrors.Add(1)
	}
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(bytes int64, err error) {
	if err != nil {
		b.AllocateErrors.Add(1)
		return
	}
	b.Allocations.Add(1)
	b.LiveBytes.Add(bytes)
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(bytes int64, leaked bool) {
	b.Releases.Add(1)
	b.LiveBytes.Add(-bytes)
	if leaked {
		b.Leaks.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ConstructPasses:   b.ConstructPasses.Load(),
		ConstructCells:    b.ConstructCells.Load(),
		ConstructErrors:   b.ConstructErrors.Load(),
		ConstructAvgNanos: avg(b.ConstructNanos.Load(), b.ConstructPasses.Load()),
		DestructPasses:    b.DestructPasses.Load(),
		DestructCells:     b.DestructCells.Load(),
		DestructErrors:    b.DestructErrors.Load(),
		DestructAvgNanos:  avg(b.DestructNanos.Load(), b.DestructPasses.Load()),
		Allocations:       b.Allocations.Load(),
		AllocateErrors:    b.AllocateErrors.Load(),
		Releases:          b.Releases.Load(),
		Leaks:             b.Leaks.Load(),
		LiveBytes:         b.LiveBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ConstructPasses   int64
	ConstructCells    int64
	ConstructErrors   int64
	ConstructAvgNanos int64
	DestructPasses    int64
	DestructCells     int64
	DestructErrors    int64
	DestructAvgNanos  int64
	Allocations       int64
	AllocateErrors    int64
	Releases          int64
	Leaks             int64
	LiveBytes         int64
}
