package bitmap

import "github.com/RoaringBitmap/roaring/v2"

// Builder accumulates ids before they are frozen into an immutable Bitmap.
// A Builder is not safe for concurrent use.
type Builder struct {
	rb *roaring.Bitmap
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{rb: roaring.New()}
}

// Add adds an id.
func (b *Builder) Add(id uint32) {
	b.rb.Add(id)
}

// AddMany adds all ids.
func (b *Builder) AddMany(ids []uint32) {
	b.rb.AddMany(ids)
}

// Remove removes an id.
func (b *Builder) Remove(id uint32) {
	b.rb.Remove(id)
}

// Or merges every id of other into the builder.
func (b *Builder) Or(other *Bitmap) {
	b.rb.Or(other.roaring())
}

// IsEmpty returns true if no id has been added.
func (b *Builder) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Cardinality returns the number of ids added so far.
func (b *Builder) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Snapshot returns a run-optimized immutable copy of the current contents.
// The builder stays usable.
func (b *Builder) Snapshot() *Bitmap {
	rb := b.rb.Clone()
	rb.RunOptimize()
	return &Bitmap{rb: rb}
}

// Freeze returns the accumulated ids as an immutable Bitmap.
// The builder must not be used afterwards.
func (b *Builder) Freeze() *Bitmap {
	rb := b.rb
	b.rb = nil
	rb.RunOptimize()
	return &Bitmap{rb: rb}
}
