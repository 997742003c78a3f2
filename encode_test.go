package dtable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/dtable/internal/hash"
	"github.com/hupe1980/dtable/rule"
	"github.com/hupe1980/dtable/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomTable(t *testing.T, seed int64, cfg testutil.RuleSetConfig) (*rule.RuleSet, *Table) {
	t.Helper()
	rs := testutil.NewRNG(seed).RuleSet(cfg)
	tbl, err := Compile(rs)
	require.NoError(t, err)
	return rs, tbl
}

func assertSameClassification(t *testing.T, rs *rule.RuleSet, want, got *Table, domain int) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	require.Equal(t, want.Attributes(), got.Attributes())
	assert.Equal(t, want.Stats().Breakpoints, got.Stats().Breakpoints)

	for i := range want.Len() {
		wm, _ := want.Rule(i)
		gm, _ := got.Rule(i)
		require.Equal(t, wm, gm)
	}

	rng := testutil.NewRNG(1)
	for range 200 {
		rec := rng.Record(rs, domain)
		w, err := want.ClassifyAll(rec)
		require.NoError(t, err)
		g, err := got.ClassifyAll(rec)
		require.NoError(t, err)
		require.True(t, w.Equals(g), "record %v", rec)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := testutil.RuleSetConfig{Attributes: 4, Rules: 2000, Domain: 32}
	rs, tbl := randomTable(t, 11, cfg)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Encode(tbl, WithCompression(c))
			require.NoError(t, err)
			assert.Equal(t, "DTBL", string(data[:4]))

			got, err := Decode(data)
			require.NoError(t, err)
			assertSameClassification(t, rs, tbl, got, cfg.Domain)
		})
	}
}

func TestEncode_CompressionShrinks(t *testing.T) {
	rs := rule.NewRuleSet("a")
	for i := range 5000 {
		rs.MustAppend(fmt.Sprintf("rule-%d", i), "same-output-for-everyone", map[string]rule.Constraint{
			"a": rule.IntRange(int64(i), int64(i+10)),
		})
	}
	tbl, err := Compile(rs)
	require.NoError(t, err)

	plain, err := Encode(tbl)
	require.NoError(t, err)
	packed, err := Encode(tbl, WithCompression(CompressionZSTD))
	require.NoError(t, err)
	assert.Less(t, len(packed), len(plain))
	assert.Equal(t, byte(CompressionZSTD), packed[5])
}

func TestEncode_SmallTable(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)

	data, err := Encode(tbl, WithCompression(CompressionLZ4))
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	m, ok, err := got.Classify(rule.Record{"age": rule.Int(30), "tier": rule.String("gold")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "approve", m.Output)
}

func TestEncode_EmptyTable(t *testing.T) {
	tbl, err := Compile(rule.NewRuleSet("a"))
	require.NoError(t, err)

	data, err := tbl.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"a"}, got.Attributes())
}

func TestWriteTo_ReadTable(t *testing.T) {
	cfg := testutil.RuleSetConfig{Attributes: 3, Rules: 300, Domain: 16}
	rs, tbl := randomTable(t, 5, cfg)

	var buf bytes.Buffer
	n, err := tbl.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	// A second table follows the first in the same stream.
	_, err = tbl.WriteTo(&buf)
	require.NoError(t, err)

	for range 2 {
		got, err := ReadTable(&buf)
		require.NoError(t, err)
		assertSameClassification(t, rs, tbl, got, cfg.Domain)
	}

	_, err = ReadTable(&buf)
	assert.ErrorIs(t, err, ErrCorruptTable)
}

func TestDecode_Truncated(t *testing.T) {
	_, tbl := randomTable(t, 8, testutil.RuleSetConfig{Attributes: 3, Rules: 40, Domain: 8})

	for _, c := range []Compression{CompressionNone, CompressionZSTD} {
		data, err := Encode(tbl, WithCompression(c))
		require.NoError(t, err)

		for n := range len(data) {
			got, err := Decode(data[:n])
			require.ErrorIs(t, err, ErrCorruptTable, "prefix %d", n)
			require.Nil(t, got)

			_, err = ReadTable(bytes.NewReader(data[:n]))
			require.ErrorIs(t, err, ErrCorruptTable, "prefix %d", n)
		}
	}
}

func TestDecode_BitFlips(t *testing.T) {
	_, tbl := randomTable(t, 9, testutil.RuleSetConfig{Attributes: 3, Rules: 40, Domain: 8})
	data, err := Encode(tbl)
	require.NoError(t, err)

	for i := range data {
		for bit := range 8 {
			mutated := bytes.Clone(data)
			mutated[i] ^= 1 << bit

			got, err := Decode(mutated)
			if i == 5 && err == nil {
				// A flipped compression byte can name another valid
				// algorithm; only a panic-free result is required then.
				continue
			}
			require.ErrorIs(t, err, ErrCorruptTable, "byte %d bit %d", i, bit)
			require.Nil(t, got)
		}
	}
}

func TestDecode_ValidChecksumBadBody(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)
	body, err := tbl.encodeBody()
	require.NoError(t, err)

	tests := []struct {
		name string
		body []byte
	}{
		{"TrailingBytes", append(bytes.Clone(body), 0)},
		{"Garbage", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
		{"NoAttributes", []byte{0, 0}},
		{"HugeRuleCount", binary.AppendUvarint([]byte{1}, 1<<40)},
		{"Empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(frame(tt.body))
			assert.ErrorIs(t, err, ErrCorruptTable)
		})
	}
}

func TestDecode_MalformedBitmap(t *testing.T) {
	// One unconstrained attribute whose wildcard set is a single array
	// container, followed by three rules with empty output and name.
	body := func(values ...uint16) []byte {
		set := binary.LittleEndian.AppendUint32(nil, 12346)
		set = binary.LittleEndian.AppendUint32(set, 1)
		set = binary.LittleEndian.AppendUint16(set, 0)
		set = binary.LittleEndian.AppendUint16(set, uint16(len(values)-1))
		set = binary.LittleEndian.AppendUint32(set, 16)
		for _, v := range values {
			set = binary.LittleEndian.AppendUint16(set, v)
		}

		p := []byte{1, 3, 1, 'x', 0, 0}
		p = binary.AppendUvarint(p, uint64(len(set)))
		p = append(p, set...)
		p = append(p, 1, 0)
		return append(p, 0, 0, 0, 0, 0, 0)
	}

	tbl, err := Decode(frame(body(0, 1, 2)))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	_, err = Decode(frame(body(0, 1, 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptTable)

	var ce *CorruptTableError
	assert.True(t, errors.As(err, &ce))
}

func TestDecode_Header(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)
	data, err := Encode(tbl)
	require.NoError(t, err)

	mutate := func(f func(p []byte)) []byte {
		p := bytes.Clone(data)
		f(p)
		return p
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"Magic", mutate(func(p []byte) { copy(p, "XXXX") })},
		{"Version", mutate(func(p []byte) { p[4] = 2 })},
		{"Algorithm", mutate(func(p []byte) { p[5] = 9 })},
		{"Reserved", mutate(func(p []byte) { p[7] = 1 })},
		{"RawTooLarge", mutate(func(p []byte) { binary.LittleEndian.PutUint32(p[12:], 1<<31) })},
		{"BodyLen", mutate(func(p []byte) { binary.LittleEndian.PutUint32(p[8:], 3) })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var corruptErr *CorruptTableError
			require.ErrorAs(t, err, &corruptErr)
			assert.NotEmpty(t, corruptErr.Reason)
			assert.True(t, errors.Is(err, ErrCorruptTable))
		})
	}
}

// frame wraps a raw body in a valid uncompressed header.
func frame(body []byte) []byte {
	h := header{bodyLen: uint32(len(body)), rawLen: uint32(len(body))}
	h.checksum = hash.CRC32C(body)
	return append(h.appendTo(nil), body...)
}
