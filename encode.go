package dtable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/dtable/internal/compress"
	"github.com/hupe1980/dtable/internal/hash"
	"github.com/hupe1980/dtable/internal/index"
	"github.com/hupe1980/dtable/internal/wire"
)

// Compression selects the block compression of an encoded table.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = Compression(compress.None)
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = Compression(compress.LZ4)
	// CompressionZSTD uses ZSTD compression.
	CompressionZSTD Compression = Compression(compress.ZSTD)
)

// String returns the compression name.
func (c Compression) String() string {
	return compress.Algorithm(c).String()
}

type encodeOptions struct {
	compression Compression
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeOptions)

// WithCompression compresses the table body. Bodies that do not shrink by
// at least 10% are stored uncompressed.
func WithCompression(c Compression) EncodeOption {
	return func(o *encodeOptions) {
		o.compression = c
	}
}

const (
	magic         = "DTBL"
	formatVersion = 1
	headerSize    = 20
)

// header is the fixed-size prefix of an encoded table:
//
//	magic "DTBL" | version u8 | compression u8 | reserved u16
//	bodyLen u32 | rawLen u32 | crc32c(body) u32
type header struct {
	compression compress.Algorithm
	bodyLen     uint32
	rawLen      uint32
	checksum    uint32
}

func (h header) appendTo(dst []byte) []byte {
	dst = append(dst, magic...)
	dst = append(dst, formatVersion, byte(h.compression), 0, 0)
	dst = binary.LittleEndian.AppendUint32(dst, h.bodyLen)
	dst = binary.LittleEndian.AppendUint32(dst, h.rawLen)
	return binary.LittleEndian.AppendUint32(dst, h.checksum)
}

func parseHeader(p []byte) (header, error) {
	if len(p) < headerSize {
		return header{}, corrupt("header", wire.ErrTruncated)
	}
	if string(p[:4]) != magic {
		return header{}, corrupt("bad magic", nil)
	}
	if p[4] != formatVersion {
		return header{}, corrupt(fmt.Sprintf("unsupported version %d", p[4]), nil)
	}
	alg := compress.Algorithm(p[5])
	if !alg.Valid() {
		return header{}, corrupt("header", fmt.Errorf("%w: %s", compress.ErrUnknownAlgorithm, alg))
	}
	if p[6] != 0 || p[7] != 0 {
		return header{}, corrupt("reserved bytes set", nil)
	}
	h := header{
		compression: alg,
		bodyLen:     binary.LittleEndian.Uint32(p[8:]),
		rawLen:      binary.LittleEndian.Uint32(p[12:]),
		checksum:    binary.LittleEndian.Uint32(p[16:]),
	}
	if h.rawLen > compress.MaxRawSize || h.bodyLen > compress.MaxRawSize {
		return header{}, corrupt("body size out of range", nil)
	}
	return h, nil
}

// Encode serializes a table.
func Encode(t *Table, opts ...EncodeOption) ([]byte, error) {
	var o encodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := t.encodeBody()
	if err != nil {
		return nil, err
	}
	if len(raw) > compress.MaxRawSize {
		return nil, fmt.Errorf("encode: body of %d bytes exceeds %d", len(raw), compress.MaxRawSize)
	}

	body, alg, err := compress.Compress(compress.Algorithm(o.compression), raw)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	h := header{
		compression: alg,
		bodyLen:     uint32(len(body)),
		rawLen:      uint32(len(raw)),
		checksum:    hash.CRC32C(body),
	}
	out := make([]byte, 0, headerSize+len(body))
	out = h.appendTo(out)
	return append(out, body...), nil
}

// MarshalBinary implements encoding.BinaryMarshaler without compression.
func (t *Table) MarshalBinary() ([]byte, error) {
	return Encode(t)
}

// WriteTo writes the uncompressed encoding of t to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	data, err := Encode(t)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (t *Table) encodeBody() ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)

	w.Uvarint(uint64(len(t.attrs)))
	w.Uvarint(uint64(len(t.outputs)))
	for _, a := range t.attrs {
		a.Encode(w)
	}
	for i := range t.outputs {
		w.String(t.outputs[i])
		w.String(t.names[i])
	}

	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a table written by Encode.
//
// Any malformed, truncated or inconsistent input yields *CorruptTableError.
// The table is returned only if the whole input was valid.
func Decode(data []byte) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, corrupt("decode panic", fmt.Errorf("%v", r))
		}
	}()

	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	stored := data[headerSize:]
	if uint64(len(stored)) != uint64(h.bodyLen) {
		return nil, corrupt(fmt.Sprintf("body is %d bytes, header says %d", len(stored), h.bodyLen), nil)
	}
	if !hash.Verify(stored, h.checksum) {
		return nil, corrupt("checksum mismatch", nil)
	}

	body, err := compress.Decompress(h.compression, stored, int(h.rawLen))
	if err != nil {
		return nil, corrupt("decompress", err)
	}

	return decodeBody(body)
}

// ReadTable reads one encoded table from r.
func ReadTable(r io.Reader) (*Table, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, corrupt("header", readErr(err))
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(r, int64(h.bodyLen)))
	if err != nil {
		return nil, corrupt("body", err)
	}
	if len(body) != int(h.bodyLen) {
		return nil, corrupt("body", wire.ErrTruncated)
	}
	return Decode(append(buf, body...))
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wire.ErrTruncated
	}
	return err
}

func decodeBody(body []byte) (*Table, error) {
	r := wire.NewReader(body)

	attrCount, err := r.Count(1)
	if err != nil {
		return nil, corrupt("attribute count", err)
	}
	if attrCount == 0 {
		return nil, corrupt("no attributes", nil)
	}
	// Every rule has at least its two empty strings at the end of the body.
	ruleCount, err := r.Count(2)
	if err != nil {
		return nil, corrupt("rule count", err)
	}

	attrs := make([]*index.Attribute, attrCount)
	seen := make(map[string]struct{}, attrCount)
	for i := range attrCount {
		a, err := index.Decode(r, ruleCount)
		if err != nil {
			return nil, corrupt(fmt.Sprintf("attribute %d", i), err)
		}
		if _, dup := seen[a.Name()]; dup || a.Name() == "" {
			return nil, corrupt(fmt.Sprintf("attribute %d: invalid name %q", i, a.Name()), nil)
		}
		seen[a.Name()] = struct{}{}
		attrs[i] = a
	}

	outputs := make([]string, ruleCount)
	names := make([]string, ruleCount)
	for i := range ruleCount {
		if outputs[i], err = r.String(); err != nil {
			return nil, corrupt(fmt.Sprintf("rule %d output", i), err)
		}
		if names[i], err = r.String(); err != nil {
			return nil, corrupt(fmt.Sprintf("rule %d name", i), err)
		}
	}

	if r.Remaining() != 0 {
		return nil, corrupt(fmt.Sprintf("%d trailing bytes", r.Remaining()), nil)
	}

	return newTable(attrs, outputs, names), nil
}
