package dtable

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    classifyHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordClassify(matches uint64, duration time.Duration, err error) {
//	    p.classifyHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordCompile is called after each compilation through an Engine.
	RecordCompile(rules int, duration time.Duration, err error)

	// RecordClassify is called after each Engine classification.
	// matches is the size of the match set.
	RecordClassify(matches uint64, duration time.Duration, err error)

	// RecordEncode is called after a Store encodes and writes a table.
	RecordEncode(bytes int, duration time.Duration, err error)

	// RecordDecode is called after a Store reads and decodes a table.
	RecordDecode(bytes int, duration time.Duration, err error)

	// RecordPublish is called after each snapshot publication.
	RecordPublish(version uint64, bytes int64, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCompile(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordClassify(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordEncode(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordDecode(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordPublish(uint64, int64, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CompileCount       atomic.Int64
	CompileErrors      atomic.Int64
	CompileTotalNanos  atomic.Int64
	ClassifyCount      atomic.Int64
	ClassifyErrors     atomic.Int64
	ClassifyMisses     atomic.Int64
	ClassifyTotalNanos atomic.Int64
	EncodeCount        atomic.Int64
	EncodeBytes        atomic.Int64
	EncodeErrors       atomic.Int64
	DecodeCount        atomic.Int64
	DecodeBytes        atomic.Int64
	DecodeErrors       atomic.Int64
	PublishCount       atomic.Int64
	PublishErrors      atomic.Int64
	LastVersion        atomic.Uint64
}

// RecordCompile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompile(_ int, duration time.Duration, err error) {
	b.CompileCount.Add(1)
	b.CompileTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CompileErrors.Add(1)
	}
}

// RecordClassify implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClassify(matches uint64, duration time.Duration, err error) {
	b.ClassifyCount.Add(1)
	b.ClassifyTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.ClassifyErrors.Add(1)
	case matches == 0:
		b.ClassifyMisses.Add(1)
	}
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(bytes int, _ time.Duration, err error) {
	b.EncodeCount.Add(1)
	if err != nil {
		b.EncodeErrors.Add(1)
		return
	}
	b.EncodeBytes.Add(int64(bytes))
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(bytes int, _ time.Duration, err error) {
	b.DecodeCount.Add(1)
	if err != nil {
		b.DecodeErrors.Add(1)
		return
	}
	b.DecodeBytes.Add(int64(bytes))
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(version uint64, _ int64, err error) {
	b.PublishCount.Add(1)
	if err != nil {
		b.PublishErrors.Add(1)
		return
	}
	b.LastVersion.Store(version)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CompileCount:     b.CompileCount.Load(),
		CompileErrors:    b.CompileErrors.Load(),
		CompileAvgNanos:  avg(b.CompileTotalNanos.Load(), b.CompileCount.Load()),
		ClassifyCount:    b.ClassifyCount.Load(),
		ClassifyErrors:   b.ClassifyErrors.Load(),
		ClassifyMisses:   b.ClassifyMisses.Load(),
		ClassifyAvgNanos: avg(b.ClassifyTotalNanos.Load(), b.ClassifyCount.Load()),
		EncodeCount:      b.EncodeCount.Load(),
		EncodeBytes:      b.EncodeBytes.Load(),
		EncodeErrors:     b.EncodeErrors.Load(),
		DecodeCount:      b.DecodeCount.Load(),
		DecodeBytes:      b.DecodeBytes.Load(),
		DecodeErrors:     b.DecodeErrors.Load(),
		PublishCount:     b.PublishCount.Load(),
		PublishErrors:    b.PublishErrors.Load(),
		LastVersion:      b.LastVersion.Load(),
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
	CompileCount     int64
	CompileErrors    int64
	CompileAvgNanos  int64
	ClassifyCount    int64
	ClassifyErrors   int64
	ClassifyMisses   int64
	ClassifyAvgNanos int64
	EncodeCount      int64
	EncodeBytes      int64
	EncodeErrors     int64
	DecodeCount      int64
	DecodeBytes      int64
	DecodeErrors     int64
	PublishCount     int64
	PublishErrors    int64
	LastVersion      uint64
}
