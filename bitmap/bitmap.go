package bitmap

import (
	"fmt"
	"io"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is an immutable compressed set of 32-bit rule indices.
// It wraps the official roaring implementation.
//
// Set operations return a new Bitmap and never modify their operands, so a
// Bitmap can be shared by any number of goroutines once it has been built.
// A nil *Bitmap behaves as the empty set for every read operation.
type Bitmap struct {
	rb *roaring.Bitmap
}

var empty = &Bitmap{rb: roaring.New()}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Of returns a bitmap containing the given ids.
func Of(ids ...uint32) *Bitmap {
	return &Bitmap{rb: roaring.BitmapOf(ids...)}
}

// Range returns a bitmap containing every id in [lo, hi).
func Range(lo, hi uint32) *Bitmap {
	rb := roaring.New()
	if hi > lo {
		rb.AddRange(uint64(lo), uint64(hi))
	}
	return &Bitmap{rb: rb}
}

func (b *Bitmap) roaring() *roaring.Bitmap {
	if b == nil || b.rb == nil {
		return empty.rb
	}
	return b.rb
}

// And returns the intersection of b and other.
// Containers are intersected pairwise, so sparse operands never expand into
// dense bitmaps.
func (b *Bitmap) And(other *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring.And(b.roaring(), other.roaring())}
}

// Or returns the union of b and other.
func (b *Bitmap) Or(other *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring.Or(b.roaring(), other.roaring())}
}

// AndNot returns the ids of b that are not in other.
func (b *Bitmap) AndNot(other *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring.AndNot(b.roaring(), other.roaring())}
}

// Xor returns the symmetric difference of b and other.
func (b *Bitmap) Xor(other *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring.Xor(b.roaring(), other.roaring())}
}

// Intersects reports whether b and other share at least one id.
func (b *Bitmap) Intersects(other *Bitmap) bool {
	return b.roaring().Intersects(other.roaring())
}

// Contains reports whether id is in the bitmap.
func (b *Bitmap) Contains(id uint32) bool {
	return b.roaring().Contains(id)
}

// IsEmpty returns true if the bitmap is empty.
func (b *Bitmap) IsEmpty() bool {
	return b.roaring().IsEmpty()
}

// Cardinality returns the number of elements in the bitmap.
func (b *Bitmap) Cardinality() uint64 {
	return b.roaring().GetCardinality()
}

// Minimum returns the smallest id, or false if the bitmap is empty.
func (b *Bitmap) Minimum() (uint32, bool) {
	rb := b.roaring()
	if rb.IsEmpty() {
		return 0, false
	}
	return rb.Minimum(), true
}

// Maximum returns the largest id, or false if the bitmap is empty.
func (b *Bitmap) Maximum() (uint32, bool) {
	rb := b.roaring()
	if rb.IsEmpty() {
		return 0, false
	}
	return rb.Maximum(), true
}

// Iterator returns an ascending iterator over the bitmap.
// The sequence can be ranged over any number of times.
func (b *Bitmap) Iterator() iter.Seq[uint32] {
	rb := b.roaring()
	return func(yield func(uint32) bool) {
		it := rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// ForEach calls fn for every id in ascending order until fn returns false.
func (b *Bitmap) ForEach(fn func(id uint32) bool) {
	for id := range b.Iterator() {
		if !fn(id) {
			return
		}
	}
}

// ToArray returns the ids in ascending order, or nil if the bitmap is empty.
func (b *Bitmap) ToArray() []uint32 {
	rb := b.roaring()
	if rb.IsEmpty() {
		return nil
	}
	return rb.ToArray()
}

// Equals reports whether both bitmaps hold the same ids.
func (b *Bitmap) Equals(other *Bitmap) bool {
	return b.roaring().Equals(other.roaring())
}

// Clone returns a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.roaring().Clone()}
}

// SizeInBytes returns the in-memory size of the bitmap.
func (b *Bitmap) SizeInBytes() uint64 {
	return b.roaring().GetSizeInBytes()
}

// SerializedSize returns the number of bytes WriteTo will produce.
func (b *Bitmap) SerializedSize() uint64 {
	return b.roaring().GetSerializedSizeInBytes()
}

// String returns a human readable representation, e.g. "{1,2,3}".
func (b *Bitmap) String() string {
	return b.roaring().String()
}

// WriteTo writes the bitmap in the portable roaring format.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	return b.roaring().WriteTo(w)
}

// ReadFrom reads a bitmap in the portable roaring format.
// It must only be called on a bitmap that has not been shared yet.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	if b.rb == nil {
		b.rb = roaring.New()
	}
	return b.rb.ReadFrom(r)
}

// Validate checks a deserialized bitmap for broken container invariants,
// which ReadFrom does not detect. Values must be strictly ascending.
func (b *Bitmap) Validate() error {
	rb := b.roaring()
	if err := rb.Validate(); err != nil {
		return err
	}

	it := rb.Iterator()
	if !it.HasNext() {
		return nil
	}
	prev := it.Next()
	for it.HasNext() {
		v := it.Next()
		if v <= prev {
			return fmt.Errorf("bitmap: value %d follows %d", v, prev)
		}
		prev = v
	}
	return nil
}
