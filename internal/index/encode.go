package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/internal/wire"
	"github.com/hupe1980/dtable/rule"
)

// Encode writes the attribute:
//
//	name | constrained u8 | breakpointCount uvarint | breakpoints
//	wildcard bitmap | bucketCount uvarint | per bucket: presence u8 [+ bitmap]
func (a *Attribute) Encode(w *wire.Writer) {
	w.String(a.name)
	w.Bool(a.constrained)
	w.Uvarint(uint64(len(a.breakpoints)))
	for _, v := range a.breakpoints {
		w.Value(v)
	}
	w.Bitmap(a.wildcard)
	w.Uvarint(uint64(len(a.buckets)))
	for _, b := range a.buckets {
		if b == nil {
			w.Bool(false)
			continue
		}
		w.Bool(true)
		w.Bitmap(b)
	}
}

// Decode reads an attribute written by Encode and checks it against a table
// of ruleCount rules. The attribute is returned only if it is consistent.
func Decode(r *wire.Reader, ruleCount int) (*Attribute, error) {
	name, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	a := &Attribute{name: name}

	if a.constrained, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}

	n, err := r.Count(1)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: breakpoints: %w", name, err)
	}
	if n > 0 {
		a.breakpoints = make([]rule.Value, n)
	}
	for i := range n {
		v, err := r.Value()
		if err != nil {
			return nil, fmt.Errorf("attribute %q: breakpoint %d: %w", name, i, err)
		}
		if v.IsNaN() {
			return nil, fmt.Errorf("attribute %q: breakpoint %d is NaN", name, i)
		}
		if i > 0 && rule.Compare(a.breakpoints[i-1], v) >= 0 {
			return nil, fmt.Errorf("attribute %q: breakpoints not strictly ascending at %d", name, i)
		}
		a.breakpoints[i] = v
	}
	if a.constrained != (n > 0) {
		return nil, fmt.Errorf("attribute %q: constrained flag disagrees with %d breakpoints", name, n)
	}

	if a.wildcard, err = readSet(r, ruleCount); err != nil {
		return nil, fmt.Errorf("attribute %q: wildcard: %w", name, err)
	}

	count, err := r.Count(1)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: buckets: %w", name, err)
	}
	if count != 2*n+1 {
		return nil, fmt.Errorf("attribute %q: %d buckets for %d breakpoints", name, count, n)
	}

	a.buckets = make([]*bitmap.Bitmap, count)
	for i := range a.buckets {
		present, err := r.Bool()
		if err != nil {
			return nil, fmt.Errorf("attribute %q: bucket %d: %w", name, i, err)
		}
		if !present {
			continue
		}
		if a.buckets[i], err = readSet(r, ruleCount); err != nil {
			return nil, fmt.Errorf("attribute %q: bucket %d: %w", name, i, err)
		}
	}

	covered := bitmap.Reduce(bitmap.OpOr, a.buckets...)
	if covered.Intersects(a.wildcard) {
		return nil, fmt.Errorf("attribute %q: wildcard rules appear in buckets", name)
	}
	if covered.Cardinality()+a.wildcard.Cardinality() != uint64(ruleCount) {
		return nil, fmt.Errorf("attribute %q: buckets and wildcard do not cover all %d rules", name, ruleCount)
	}

	return a, nil
}

var errRuleOutOfRange = errors.New("rule index out of range")

// readSet reads a bitmap whose members must all be below ruleCount.
// Empty sets are returned as nil.
func readSet(r *wire.Reader, ruleCount int) (*bitmap.Bitmap, error) {
	b, err := r.Bitmap()
	if err != nil {
		return nil, err
	}
	if b.IsEmpty() {
		return nil, nil
	}
	if last, _ := b.Maximum(); uint64(last) >= uint64(ruleCount) {
		return nil, fmt.Errorf("%w: %d >= %d", errRuleOutOfRange, last, ruleCount)
	}
	return b, nil
}
