// Package index implements the compiled per-attribute index of a decision
// table.
//
// An attribute's equality keys and range endpoints are merged into one sorted
// breakpoint axis. n breakpoints split the value domain into 2n+1 buckets:
//
//	gap(-inf, b0) | point(b0) | gap(b0, b1) | point(b1) | ... | gap(bn-1, +inf)
//
// Each bucket holds the rules whose constraint admits every value in it, so a
// lookup is a binary search plus one bitmap fetch. Wildcard rules are kept in
// a separate set that is admitted by every lookup.
package index

import (
	"slices"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/rule"
)

// Attribute is the compiled index of one attribute position.
// It is immutable once built.
type Attribute struct {
	name        string
	breakpoints []rule.Value
	buckets     []*bitmap.Bitmap // len 2n+1, nil = empty
	wildcard    *bitmap.Bitmap
	constrained bool
}

// Build compiles the constraints at position pos of every rule.
//
// Rule i receives id i. Constraints are assumed to be validated: ranges have
// comparable endpoints with low < high and neither endpoint nor any equality
// key is NaN.
func Build(name string, rules []rule.Rule, pos int) *Attribute {
	a := &Attribute{name: name}

	keys := make([]rule.Value, 0, len(rules))
	wildcard := bitmap.NewBuilder()
	for i, r := range rules {
		c := r.Constraint(pos)
		switch c.Op {
		case rule.OpEqual:
			keys = append(keys, c.Value)
		case rule.OpRange:
			keys = append(keys, c.Low, c.High)
		default:
			wildcard.Add(uint32(i))
		}
	}
	a.wildcard = freeze(wildcard)
	if len(keys) == 0 {
		a.buckets = []*bitmap.Bitmap{nil}
		return a
	}
	a.constrained = true

	slices.SortFunc(keys, rule.Compare)
	a.breakpoints = slices.CompactFunc(keys, rule.Equal)
	a.breakpoints = slices.Clip(a.breakpoints)

	n := len(a.breakpoints)
	points := make([]*bitmap.Builder, n)
	starts := make([][]uint32, n)
	ends := make([][]uint32, n)

	for i, r := range rules {
		c := r.Constraint(pos)
		switch c.Op {
		case rule.OpEqual:
			p := a.point(c.Value)
			if points[p] == nil {
				points[p] = bitmap.NewBuilder()
			}
			points[p].Add(uint32(i))
		case rule.OpRange:
			lo, hi := a.point(c.Low), a.point(c.High)
			starts[lo] = append(starts[lo], uint32(i))
			ends[hi] = append(ends[hi], uint32(i))
		}
	}

	// Sweep the axis left to right. A range is active from the point bucket
	// of its low endpoint up to, but excluding, the point bucket of its high
	// endpoint.
	a.buckets = make([]*bitmap.Bitmap, 2*n+1)
	active := bitmap.NewBuilder()
	var gap *bitmap.Bitmap
	for p := range n {
		a.buckets[2*p] = gap

		active.AddMany(starts[p])
		for _, id := range ends[p] {
			active.Remove(id)
		}

		point := active.Snapshot()
		gap = point
		if points[p] != nil {
			points[p].Or(point)
			point = points[p].Freeze()
		}
		if point.IsEmpty() {
			point = nil
		}
		if gap.IsEmpty() {
			gap = nil
		}
		a.buckets[2*p+1] = point
	}
	a.buckets[2*n] = gap

	return a
}

// point returns the breakpoint position of v, which must be on the axis.
func (a *Attribute) point(v rule.Value) int {
	i, _ := slices.BinarySearchFunc(a.breakpoints, v, rule.Compare)
	return i
}

func freeze(b *bitmap.Builder) *bitmap.Bitmap {
	if b.IsEmpty() {
		return nil
	}
	return b.Freeze()
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Constrained reports whether any rule constrains this attribute.
// Lookups on an unconstrained attribute admit every rule.
func (a *Attribute) Constrained() bool { return a.constrained }

// Breakpoints returns the sorted breakpoint axis. The slice must not be
// modified.
func (a *Attribute) Breakpoints() []rule.Value { return a.breakpoints }

// BucketCount returns 2n+1 for n breakpoints.
func (a *Attribute) BucketCount() int { return len(a.buckets) }

// Bucket returns the rules of bucket i, or nil if it is empty.
func (a *Attribute) Bucket(i int) *bitmap.Bitmap { return a.buckets[i] }

// Buckets returns every bucket. Empty buckets are nil.
func (a *Attribute) Buckets() []*bitmap.Bitmap { return a.buckets }

// Wildcard returns the rules that leave this attribute unconstrained.
func (a *Attribute) Wildcard() *bitmap.Bitmap { return a.wildcard }

// Locate returns the bucket containing v.
func (a *Attribute) Locate(v rule.Value) int {
	i, found := slices.BinarySearchFunc(a.breakpoints, v, rule.Compare)
	if found {
		return 2*i + 1
	}
	return 2 * i
}

// Lookup returns the rules whose constraint on this attribute admits v,
// excluding wildcard rules.
//
// Invalid values are below every breakpoint and land in the first gap,
// which no constraint covers.
func (a *Attribute) Lookup(v rule.Value) *bitmap.Bitmap {
	return a.buckets[a.Locate(v)]
}

// Filter narrows the candidate set to the rules admitting v:
// (candidates ∩ bucket) ∪ (candidates ∩ wildcard).
func (a *Attribute) Filter(candidates *bitmap.Bitmap, v rule.Value) *bitmap.Bitmap {
	bucket := a.Lookup(v)
	switch {
	case bucket == nil:
		return candidates.And(a.wildcard)
	case a.wildcard == nil:
		return candidates.And(bucket)
	default:
		return candidates.And(bucket).Or(candidates.And(a.wildcard))
	}
}

// SizeInBytes estimates the in-memory size of the bucket bitmaps.
func (a *Attribute) SizeInBytes() uint64 {
	size := a.wildcard.SizeInBytes()
	for _, b := range a.buckets {
		size += b.SizeInBytes()
	}
	for _, v := range a.breakpoints {
		size += 32 + uint64(len(v.Str))
	}
	return size
}
