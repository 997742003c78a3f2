package dtable

import (
	"log/slog"

	"github.com/hupe1980/dtable/internal/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	resources        resource.Config
	compileOptions   []CompileOption
	encodeOptions    []EncodeOption
}

// Option configures an Engine or a Store.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &dtable.BasicMetricsCollector{}
//	eng := dtable.NewEngine(dtable.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
//	fmt.Printf("Classifications: %d, Avg latency: %dns\n", stats.ClassifyCount, stats.ClassifyAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := dtable.NewJSONLogger(slog.LevelInfo)
//	eng := dtable.NewEngine(dtable.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

// WithMemoryLimit bounds the bytes held by published tables.
// An Engine refuses to publish a table that would exceed it.
// Zero (the default) only tracks usage.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MemoryLimitBytes = bytes
	}
}

// WithIOLimit rate-limits table store reads to bytes per second.
// Zero (the default) is unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithMaxConcurrentCompiles bounds the compilations an Engine runs at once.
// Defaults to 1.
func WithMaxConcurrentCompiles(n int64) Option {
	return func(o *options) {
		o.resources.MaxConcurrentCompiles = n
	}
}

// WithCompileOptions sets the options an Engine passes to CompileContext.
func WithCompileOptions(opts ...CompileOption) Option {
	return func(o *options) {
		o.compileOptions = append(o.compileOptions, opts...)
	}
}

// WithEncodeOptions sets the options a Store passes to Encode.
//
// Example:
//
//	store := dtable.NewStore(bs, dtable.WithEncodeOptions(dtable.WithCompression(dtable.CompressionZSTD)))
func WithEncodeOptions(opts ...EncodeOption) Option {
	return func(o *options) {
		o.encodeOptions = append(o.encodeOptions, opts...)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
