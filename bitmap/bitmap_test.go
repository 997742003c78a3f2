package bitmap

import (
	"bytes"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_SetOperations(t *testing.T) {
	a := Of(1, 2, 3, 100, 70000)
	b := Of(2, 3, 4, 70000, 200000)

	assert.Equal(t, []uint32{2, 3, 70000}, a.And(b).ToArray())
	assert.Equal(t, []uint32{1, 2, 3, 4, 100, 70000, 200000}, a.Or(b).ToArray())
	assert.Equal(t, []uint32{1, 100}, a.AndNot(b).ToArray())
	assert.Equal(t, []uint32{1, 4, 100, 200000}, a.Xor(b).ToArray())
	assert.True(t, a.Intersects(b))
	assert.False(t, Of(1).Intersects(Of(2)))
}

func TestBitmap_OperationsDoNotMutate(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4)

	_ = a.And(b)
	_ = a.Or(b)
	_ = a.AndNot(b)
	_ = a.Xor(b)

	assert.Equal(t, []uint32{1, 2, 3}, a.ToArray())
	assert.Equal(t, []uint32{3, 4}, b.ToArray())
}

func TestBitmap_NilIsEmpty(t *testing.T) {
	var n *Bitmap

	assert.True(t, n.IsEmpty())
	assert.Equal(t, uint64(0), n.Cardinality())
	assert.False(t, n.Contains(0))
	_, ok := n.Minimum()
	assert.False(t, ok)
	assert.Equal(t, []uint32{5}, n.Or(Of(5)).ToArray())
	assert.True(t, Of(5).And(n).IsEmpty())
	assert.Empty(t, slices.Collect(n.Iterator()))
}

func TestBitmap_Range(t *testing.T) {
	r := Range(10, 20)
	assert.Equal(t, uint64(10), r.Cardinality())
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(19))
	assert.False(t, r.Contains(20))

	assert.True(t, Range(5, 5).IsEmpty())
	assert.True(t, Range(6, 5).IsEmpty())

	minID, ok := r.Minimum()
	require.True(t, ok)
	assert.Equal(t, uint32(10), minID)
	maxID, ok := r.Maximum()
	require.True(t, ok)
	assert.Equal(t, uint32(19), maxID)
}

func TestBitmap_IteratorIsRestartable(t *testing.T) {
	b := Of(9, 3, 7)
	seq := b.Iterator()

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, []uint32{3, 7, 9}, first)
	assert.Equal(t, first, second)

	var stopped []uint32
	b.ForEach(func(id uint32) bool {
		stopped = append(stopped, id)
		return len(stopped) < 2
	})
	assert.Equal(t, []uint32{3, 7}, stopped)
}

func TestBitmap_Serialization(t *testing.T) {
	b := Range(0, 5000).Or(Of(1<<20, 1<<30))

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(b.SerializedSize()), n)

	var got Bitmap
	_, err = got.ReadFrom(&buf)
	require.NoError(t, err)
	assert.True(t, b.Equals(&got))
	assert.NoError(t, got.Validate())
}

// arrayContainer returns the portable encoding of a single array container
// holding values verbatim.
func arrayContainer(values ...uint16) []byte {
	p := binary.LittleEndian.AppendUint32(nil, 12346) // cookie without run containers
	p = binary.LittleEndian.AppendUint32(p, 1)
	p = binary.LittleEndian.AppendUint16(p, 0)
	p = binary.LittleEndian.AppendUint16(p, uint16(len(values)-1))
	p = binary.LittleEndian.AppendUint32(p, 16)
	for _, v := range values {
		p = binary.LittleEndian.AppendUint16(p, v)
	}
	return p
}

func TestBitmap_Validate(t *testing.T) {
	var nilBitmap *Bitmap
	assert.NoError(t, nilBitmap.Validate())
	assert.NoError(t, Of(3, 1, 2).Validate())
	assert.NoError(t, Range(0, 100000).Validate())

	tests := []struct {
		name   string
		values []uint16
		valid  bool
	}{
		{"Sorted", []uint16{1, 5, 9}, true},
		{"Duplicate", []uint16{1, 5, 5, 9}, false},
		{"Unsorted", []uint16{9, 1, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bitmap
			_, err := b.ReadFrom(bytes.NewReader(arrayContainer(tt.values...)))
			require.NoError(t, err)
			if tt.valid {
				assert.NoError(t, b.Validate())
			} else {
				assert.Error(t, b.Validate())
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	bld := NewBuilder()
	assert.True(t, bld.IsEmpty())

	bld.Add(1)
	bld.AddMany([]uint32{2, 3, 4})
	bld.Remove(3)
	bld.Or(Of(10))
	assert.Equal(t, uint64(4), bld.Cardinality())

	snap := bld.Snapshot()
	bld.Add(11)
	assert.Equal(t, []uint32{1, 2, 4, 10}, snap.ToArray())

	frozen := bld.Freeze()
	assert.Equal(t, []uint32{1, 2, 4, 10, 11}, frozen.ToArray())
}
