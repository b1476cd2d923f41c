package eop

import (
	"log/slog"

	"github.com/hupe1980/eop/internal/blockcodec"
	"github.com/hupe1980/eop/internal/fs"
	"github.com/hupe1980/eop/resource"
)

// Compression selects the block compression used by region snapshots.
type Compression uint8

const (
	// CompressionNone stores region contents uncompressed.
	CompressionNone Compression = Compression(blockcodec.None)
	// CompressionLZ4 favors encode speed.
	CompressionLZ4 Compression = Compression(blockcodec.LZ4)
	// CompressionZSTD favors ratio.
	CompressionZSTD Compression = Compression(blockcodec.ZSTD)
)

func (c Compression) String() string {
	return blockcodec.Type(c).String()
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	chunkSize        int
	compression      Compression
	fs               fs.FileSystem
}

// Option configures lifecycle passes, owned allocations, arenas and
// snapshots. Options that do not apply to an operation are ignored.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := eop.NewJSONLogger(slog.LevelDebug)
//	err := eop.Construct(slots, eop.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = defaultLogger
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
//	metrics := &eop.BasicMetricsCollector{}
//	err := eop.Destruct(slots, eop.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController charges owned allocations and arena chunks to the
// controller's memory budget and throttles snapshots by its IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithChunkSize sets the arena chunk size. It is rounded up to a power of
// two; values <= 0 select the default of 1 MiB.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithCompression sets the compression used by Region.Encode.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// withFileSystem swaps the filesystem used by snapshot files.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           defaultLogger,
		metricsCollector: NoopMetricsCollector{},
		compression:      CompressionLZ4,
		fs:               fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
