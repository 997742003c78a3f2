package dtable

import (
	"context"
	"fmt"
	"runtime"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/rule"
	"golang.org/x/sync/errgroup"
)

// Match identifies a matching rule.
type Match struct {
	Index  int
	Name   string
	Output string
}

// Step records one attribute application of a classification.
type Step struct {
	Attribute  string
	Bucket     int    // bucket selected on the breakpoint axis, -1 if skipped
	Candidates uint64 // candidate set size after the step
	Skipped    bool   // attribute constrained by no rule
}

// ClassifyAll returns every rule matching rec.
//
// Attributes that no rule constrains are ignored; every other attribute must
// have a value in rec, otherwise *MissingAttributeError is returned. Values
// of attributes unknown to the table are ignored.
func (t *Table) ClassifyAll(rec rule.Record) (*bitmap.Bitmap, error) {
	if err := t.checkRecord(rec); err != nil {
		return nil, err
	}
	return t.filter(rec, nil, nil), nil
}

// Classify returns the matching rule with the lowest index.
func (t *Table) Classify(rec rule.Record) (Match, bool, error) {
	matches, err := t.ClassifyAll(rec)
	if err != nil {
		return Match{}, false, err
	}
	return t.first(matches)
}

// ClassifyOrdered is ClassifyAll with an explicit attribute order, given as
// a permutation of attribute positions. The result does not depend on the
// order.
func (t *Table) ClassifyOrdered(rec rule.Record, order []int) (*bitmap.Bitmap, error) {
	if !t.isPermutation(order) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, order)
	}
	if err := t.checkRecord(rec); err != nil {
		return nil, err
	}
	return t.filter(rec, order, nil), nil
}

// Trace classifies rec and reports the candidate set size after every
// attribute. The trace ends early when the candidate set becomes empty.
func (t *Table) Trace(rec rule.Record) ([]Step, error) {
	if err := t.checkRecord(rec); err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(t.attrs))
	t.filter(rec, nil, func(s Step) {
		steps = append(steps, s)
	})
	return steps, nil
}

// BatchResult holds the matches of ClassifyBatch.
type BatchResult struct {
	Matches []*bitmap.Bitmap // per record, in input order
	Union   *bitmap.Bitmap   // rules matched by at least one record
}

// ClassifyBatch classifies many records in parallel. It fails as a whole if
// any record fails.
func (t *Table) ClassifyBatch(ctx context.Context, recs []rule.Record) (BatchResult, error) {
	matches := make([]*bitmap.Bitmap, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rec := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := t.ClassifyAll(rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	union, err := bitmap.Aggregate(ctx, bitmap.OpOr, 0, matches...)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Matches: matches, Union: union}, nil
}

// Coverage returns the rules constraining attr, i.e. the union of its
// buckets. Rules leaving attr unconstrained are not included.
func (t *Table) Coverage(ctx context.Context, attr string) (*bitmap.Bitmap, error) {
	a, ok := t.attribute(attr)
	if !ok {
		return nil, fmt.Errorf("%w %q", rule.ErrUnknownAttribute, attr)
	}
	return bitmap.Aggregate(ctx, bitmap.OpOr, 0, a.Buckets()...)
}

// checkRecord runs before any filtering so that the error does not depend
// on where the candidate set became empty.
func (t *Table) checkRecord(rec rule.Record) error {
	for _, a := range t.attrs {
		if !a.Constrained() {
			continue
		}
		if _, ok := rec[a.Name()]; !ok {
			return &MissingAttributeError{Attribute: a.Name()}
		}
	}
	return nil
}

func (t *Table) filter(rec rule.Record, order []int, trace func(Step)) *bitmap.Bitmap {
	candidates := t.all
	if candidates.IsEmpty() {
		return candidates
	}

	for i := range t.attrs {
		pos := i
		if order != nil {
			pos = order[i]
		}
		a := t.attrs[pos]

		if !a.Constrained() {
			if trace != nil {
				trace(Step{Attribute: a.Name(), Bucket: -1, Candidates: candidates.Cardinality(), Skipped: true})
			}
			continue
		}

		v := rec[a.Name()]
		candidates = a.Filter(candidates, v)
		if trace != nil {
			trace(Step{Attribute: a.Name(), Bucket: a.Locate(v), Candidates: candidates.Cardinality()})
		}
		if candidates.IsEmpty() {
			break
		}
	}
	return candidates
}

func (t *Table) first(matches *bitmap.Bitmap) (Match, bool, error) {
	i, ok := matches.Minimum()
	if !ok {
		return Match{}, false, nil
	}
	m, _ := t.Rule(int(i))
	return m, true, nil
}
