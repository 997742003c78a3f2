package dtable

import (
	"slices"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/internal/index"
)

// Table is a compiled decision table.
//
// A Table is immutable: it is safe to classify with from any number of
// goroutines without locking. A new rule set requires a new compilation.
type Table struct {
	attrs   []*index.Attribute
	byName  map[string]int
	outputs []string
	names   []string
	all     *bitmap.Bitmap // every rule index, the initial candidate set
}

func newTable(attrs []*index.Attribute, outputs, names []string) *Table {
	byName := make(map[string]int, len(attrs))
	for i, a := range attrs {
		byName[a.Name()] = i
	}
	return &Table{
		attrs:   attrs,
		byName:  byName,
		outputs: outputs,
		names:   names,
		all:     bitmap.Range(0, uint32(len(outputs))),
	}
}

// Len returns the number of rules R.
func (t *Table) Len() int {
	return len(t.outputs)
}

// Attributes returns the attribute names in compile order.
func (t *Table) Attributes() []string {
	names := make([]string, len(t.attrs))
	for i, a := range t.attrs {
		names[i] = a.Name()
	}
	return names
}

// Output returns the output of rule i.
func (t *Table) Output(i int) (string, bool) {
	if i < 0 || i >= len(t.outputs) {
		return "", false
	}
	return t.outputs[i], true
}

// Rule returns the match descriptor of rule i.
func (t *Table) Rule(i int) (Match, bool) {
	if i < 0 || i >= len(t.outputs) {
		return Match{}, false
	}
	return Match{Index: i, Name: t.names[i], Output: t.outputs[i]}, true
}

// TableStats describes the shape of a compiled table.
type TableStats struct {
	Rules       int
	Attributes  int
	Constrained int    // attributes constrained by at least one rule
	Breakpoints int    // total over all attributes
	Buckets     int    // total over all attributes
	SizeInBytes uint64 // estimated in-memory footprint
}

// Stats returns shape statistics of the table.
func (t *Table) Stats() TableStats {
	s := TableStats{
		Rules:       len(t.outputs),
		Attributes:  len(t.attrs),
		SizeInBytes: t.SizeInBytes(),
	}
	for _, a := range t.attrs {
		if a.Constrained() {
			s.Constrained++
		}
		s.Breakpoints += len(a.Breakpoints())
		s.Buckets += a.BucketCount()
	}
	return s
}

// SizeInBytes estimates the in-memory footprint of the table.
func (t *Table) SizeInBytes() uint64 {
	size := t.all.SizeInBytes()
	for _, a := range t.attrs {
		size += a.SizeInBytes() + uint64(len(a.Name()))
	}
	for i := range t.outputs {
		size += uint64(len(t.outputs[i]) + len(t.names[i]) + 32)
	}
	return size
}

func (t *Table) attribute(name string) (*index.Attribute, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.attrs[i], true
}

func (t *Table) isPermutation(order []int) bool {
	if len(order) != len(t.attrs) {
		return false
	}
	sorted := slices.Clone(order)
	slices.Sort(sorted)
	for i, p := range sorted {
		if p != i {
			return false
		}
	}
	return true
}
