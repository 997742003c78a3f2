// Package wire holds the primitive encoders shared by the table format:
// uvarints, length-prefixed strings, typed values and roaring bitmaps.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/rule"
)

// ErrTruncated is returned when the input ends in the middle of a field.
var ErrTruncated = errors.New("wire: truncated input")

// Writer appends encoded fields to an io.Writer.
// The first write error sticks; later calls are no-ops.
type Writer struct {
	w   io.Writer
	buf [binary.MaxVarintLen64]byte
	n   int64
	err error
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Len returns the number of bytes written.
func (w *Writer) Len() int64 { return w.n }

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	w.err = err
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf[0] = b
	w.write(w.buf[:1])
}

// Bool writes a bool as one byte.
func (w *Writer) Bool(b bool) {
	if b {
		w.Byte(1)
		return
	}
	w.Byte(0)
}

// Uvarint writes an unsigned varint.
func (w *Writer) Uvarint(v uint64) {
	n := binary.PutUvarint(w.buf[:], v)
	w.write(w.buf[:n])
}

// Varint writes a zigzag varint.
func (w *Writer) Varint(v int64) {
	n := binary.PutVarint(w.buf[:], v)
	w.write(w.buf[:n])
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	w.Uvarint(uint64(len(s)))
	if w.err != nil {
		return
	}
	n, err := io.WriteString(w.w, s)
	w.n += int64(n)
	w.err = err
}

// Value writes a kind byte followed by the payload.
func (w *Writer) Value(v rule.Value) {
	w.Byte(byte(v.Kind))
	switch v.Kind {
	case rule.KindBool:
		w.Bool(v.B)
	case rule.KindInt:
		w.Varint(v.I64)
	case rule.KindFloat:
		binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(v.F64))
		w.write(w.buf[:8])
	case rule.KindString:
		w.String(v.Str)
	}
}

// Bitmap writes a length-prefixed bitmap in the portable roaring format.
func (w *Writer) Bitmap(b *bitmap.Bitmap) {
	w.Uvarint(b.SerializedSize())
	if w.err != nil {
		return
	}
	n, err := b.WriteTo(w.w)
	w.n += n
	w.err = err
}

// Reader decodes fields from an in-memory buffer. Lengths are checked
// against the remaining input before anything is allocated.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, ErrTruncated
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Bool reads a bool written by Writer.Bool.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("wire: invalid bool byte %#x", b)
	}
}

// Uvarint reads an unsigned varint.
func (r *Reader) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, errors.New("wire: uvarint overflow")
	}
	r.off += n
	return v, nil
}

// Count reads a uvarint used as an element count. Each element takes at
// least minSize bytes, so counts larger than the remaining input allows are
// rejected.
func (r *Reader) Count(minSize int) (int, error) {
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	if minSize < 1 {
		minSize = 1
	}
	if v > uint64(r.Remaining()/minSize) {
		return 0, fmt.Errorf("wire: count %d exceeds remaining input", v)
	}
	return int(v), nil
}

// Varint reads a zigzag varint.
func (r *Reader) Varint() (int64, error) {
	v, n := binary.Varint(r.buf[r.off:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, errors.New("wire: varint overflow")
	}
	r.off += n
	return v, nil
}

func (r *Reader) next(n uint64) ([]byte, error) {
	if n > uint64(r.Remaining()) {
		return nil, ErrTruncated
	}
	p := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return p, nil
}

// String reads a length-prefixed string.
func (r *Reader) String() (string, error) {
	n, err := r.Uvarint()
	if err != nil {
		return "", err
	}
	p, err := r.next(n)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Value reads a value written by Writer.Value.
func (r *Reader) Value() (rule.Value, error) {
	k, err := r.Byte()
	if err != nil {
		return rule.Value{}, err
	}
	switch rule.Kind(k) {
	case rule.KindNull:
		return rule.Null(), nil
	case rule.KindBool:
		b, err := r.Bool()
		return rule.Bool(b), err
	case rule.KindInt:
		i, err := r.Varint()
		return rule.Int(i), err
	case rule.KindFloat:
		p, err := r.next(8)
		if err != nil {
			return rule.Value{}, err
		}
		return rule.Float(math.Float64frombits(binary.LittleEndian.Uint64(p))), nil
	case rule.KindString:
		s, err := r.String()
		return rule.String(s), err
	default:
		return rule.Value{}, fmt.Errorf("wire: unknown value kind %d", k)
	}
}

// Bitmap reads a length-prefixed roaring bitmap. Malformed bitmaps are
// reported as errors, including those that make the roaring decoder panic.
func (r *Reader) Bitmap() (bm *bitmap.Bitmap, err error) {
	n, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	p, err := r.next(n)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			bm, err = nil, fmt.Errorf("wire: malformed bitmap: %v", rec)
		}
	}()

	bm = bitmap.New()
	if _, err := bm.ReadFrom(bytes.NewReader(p)); err != nil {
		return nil, fmt.Errorf("wire: malformed bitmap: %w", err)
	}
	if err := bm.Validate(); err != nil {
		return nil, fmt.Errorf("wire: malformed bitmap: %w", err)
	}
	return bm, nil
}
