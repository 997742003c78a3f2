package dtable

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/internal/resource"
	"github.com/hupe1980/dtable/rule"
)

// Engine serves classifications from the most recently published table.
//
// Readers never block: the current table is held in an atomic pointer and
// replaced wholesale. Writers (Compile, Publish, Load) run one at a time and
// a new table becomes visible only once it is complete.
type Engine struct {
	opts options
	rc   *resource.Controller

	current atomic.Pointer[snapshot]
	version atomic.Uint64
	closed  atomic.Bool

	mu sync.Mutex // serializes writers
}

type snapshot struct {
	table   *Table
	version uint64
	size    int64
}

// NewEngine creates an engine without a table.
func NewEngine(opts ...Option) *Engine {
	o := applyOptions(opts)
	return &Engine{
		opts: o,
		rc:   resource.NewController(o.resources),
	}
}

// Compile compiles rs and publishes the result.
func (e *Engine) Compile(ctx context.Context, rs *rule.RuleSet) (*Table, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := e.rc.AcquireCompile(ctx); err != nil {
		return nil, err
	}
	defer e.rc.ReleaseCompile()

	start := time.Now()
	t, err := CompileContext(ctx, rs, e.opts.compileOptions...)
	elapsed := time.Since(start)

	rules, attrs := 0, 0
	if rs != nil {
		rules, attrs = len(rs.Rules), len(rs.Attributes)
	}
	e.opts.logger.LogCompile(ctx, rules, attrs, elapsed, err)
	e.opts.metricsCollector.RecordCompile(rules, elapsed, err)
	if err != nil {
		return nil, err
	}

	if err := e.Publish(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Publish makes t the table served by the engine and returns once readers
// observe it. The memory of the previous table is released.
func (e *Engine) Publish(ctx context.Context, t *Table) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrNoTable)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrClosed
	}

	size := int64(t.SizeInBytes())
	if err := e.rc.AcquireMemory(size); err != nil {
		err = fmt.Errorf("publish %d bytes (limit %d, in use %d): %w", size, e.rc.MemoryLimit(), e.rc.MemoryUsage(), err)
		e.opts.logger.LogPublish(ctx, 0, t.Len(), size, err)
		e.opts.metricsCollector.RecordPublish(0, size, err)
		return err
	}

	next := &snapshot{table: t, version: e.version.Add(1), size: size}
	if prev := e.current.Swap(next); prev != nil {
		e.rc.ReleaseMemory(prev.size)
	}

	e.opts.logger.LogPublish(ctx, next.version, t.Len(), size, nil)
	e.opts.metricsCollector.RecordPublish(next.version, size, nil)
	return nil
}

// Load publishes the current table of a store.
func (e *Engine) Load(ctx context.Context, s *Store) error {
	if e.closed.Load() {
		return ErrClosed
	}
	t, _, err := s.LoadCurrent(ctx)
	if err != nil {
		return err
	}
	return e.Publish(ctx, t)
}

// Table returns the published table, or nil.
func (e *Engine) Table() *Table {
	if s := e.current.Load(); s != nil {
		return s.table
	}
	return nil
}

// Version returns the number of publications so far. It is 0 before the
// first table is published.
func (e *Engine) Version() uint64 {
	if s := e.current.Load(); s != nil {
		return s.version
	}
	return 0
}

// MemoryUsage returns the bytes reserved for the published table.
func (e *Engine) MemoryUsage() int64 {
	return e.rc.MemoryUsage()
}

func (e *Engine) table() (*Table, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	s := e.current.Load()
	if s == nil {
		return nil, ErrNoTable
	}
	return s.table, nil
}

// ClassifyAll classifies rec against the published table.
func (e *Engine) ClassifyAll(ctx context.Context, rec rule.Record) (*bitmap.Bitmap, error) {
	_, matches, err := e.classify(ctx, rec)
	return matches, err
}

// Classify returns the lowest-index rule of the published table matching rec.
func (e *Engine) Classify(ctx context.Context, rec rule.Record) (Match, bool, error) {
	t, matches, err := e.classify(ctx, rec)
	if err != nil {
		return Match{}, false, err
	}
	return t.first(matches)
}

// classify returns the matches together with the table they index into.
func (e *Engine) classify(ctx context.Context, rec rule.Record) (*Table, *bitmap.Bitmap, error) {
	start := time.Now()

	t, err := e.table()
	var matches *bitmap.Bitmap
	if err == nil {
		matches, err = t.ClassifyAll(rec)
	}

	elapsed := time.Since(start)
	e.opts.logger.LogClassify(ctx, matches.Cardinality(), err)
	e.opts.metricsCollector.RecordClassify(matches.Cardinality(), elapsed, err)
	if err != nil {
		return nil, nil, err
	}
	return t, matches, nil
}

// Close drops the published table and releases its memory.
// Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if prev := e.current.Swap(nil); prev != nil {
		e.rc.ReleaseMemory(prev.size)
	}
	return nil
}
