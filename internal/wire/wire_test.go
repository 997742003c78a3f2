package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	values := []rule.Value{
		rule.Null(),
		rule.Bool(true),
		rule.Int(math.MinInt64),
		rule.Int(42),
		rule.Float(-0.25),
		rule.Float(math.Inf(1)),
		rule.String(""),
		rule.String("gold"),
	}

	w.Uvarint(300)
	w.Varint(-7)
	w.String("tier")
	for _, v := range values {
		w.Value(v)
	}
	w.Bitmap(bitmap.Of(1, 5, 70000))
	w.Bitmap(nil)
	require.NoError(t, w.Err())
	assert.Equal(t, int64(buf.Len()), w.Len())

	r := NewReader(buf.Bytes())
	u, err := r.Uvarint()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), u)

	i, err := r.Varint()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), i)

	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "tier", s)

	for _, want := range values {
		got, err := r.Value()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	bm, err := r.Bitmap()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 5, 70000}, bm.ToArray())

	bm, err = r.Bitmap()
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())
	assert.Equal(t, 0, r.Remaining())
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.String("a fairly long attribute name")
	w.Value(rule.Float(1.5))
	w.Bitmap(bitmap.Range(0, 1000))
	require.NoError(t, w.Err())

	data := buf.Bytes()
	for n := 0; n < len(data); n++ {
		r := NewReader(data[:n])
		_, err := r.String()
		if err == nil {
			_, err = r.Value()
		}
		if err == nil {
			_, err = r.Bitmap()
		}
		assert.Error(t, err, "prefix %d", n)
	}
}

func TestReader_Count(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uvarint(1 << 40)
	w.Uvarint(2)
	w.Byte(0)
	w.Byte(0)
	require.NoError(t, w.Err())

	r := NewReader(buf.Bytes())
	_, err := r.Count(1)
	require.Error(t, err)

	n, err := r.Count(1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReader_InvalidKind(t *testing.T) {
	r := NewReader([]byte{0})
	_, err := r.Value()
	require.Error(t, err)

	r = NewReader([]byte{byte(rule.KindBool), 7})
	_, err = r.Value()
	require.Error(t, err)
}

// arrayBitmap returns a length-prefixed roaring bitmap with a single array
// container holding values verbatim.
func arrayBitmap(values ...uint16) []byte {
	p := binary.LittleEndian.AppendUint32(nil, 12346) // cookie without run containers
	p = binary.LittleEndian.AppendUint32(p, 1)
	p = binary.LittleEndian.AppendUint16(p, 0)
	p = binary.LittleEndian.AppendUint16(p, uint16(len(values)-1))
	p = binary.LittleEndian.AppendUint32(p, 16)
	for _, v := range values {
		p = binary.LittleEndian.AppendUint16(p, v)
	}
	return append(binary.AppendUvarint(nil, uint64(len(p))), p...)
}

func TestReader_MalformedBitmap(t *testing.T) {
	bm, err := NewReader(arrayBitmap(1, 18, 23, 33, 34)).Bitmap()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 18, 23, 33, 34}, bm.ToArray())

	tests := []struct {
		name   string
		values []uint16
	}{
		{"DuplicateValue", []uint16{1, 18, 23, 33, 33, 34}},
		{"Unsorted", []uint16{23, 1, 18}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(arrayBitmap(tt.values...)).Bitmap()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "wire: malformed bitmap")
		})
	}
}
