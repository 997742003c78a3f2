// Package compress implements the block compression of encoded tables.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm defines the compression algorithm used.
type Algorithm uint8

const (
	// None stores the block as is.
	None Algorithm = 0
	// LZ4 indicates LZ4 block compression (fast).
	LZ4 Algorithm = 1
	// ZSTD indicates ZSTD block compression (better ratio).
	ZSTD Algorithm = 2
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(a))
	}
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a <= ZSTD
}

// MaxRawSize bounds the decompressed size of a block.
const MaxRawSize = 1 << 30

// maxRatio bounds rawLen / compressedLen accepted by Decompress, so that a
// corrupted size field cannot trigger an oversized allocation.
const maxRatio = 1024

var (
	// ErrSizeMismatch is returned when a block does not decompress to the
	// announced size.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
	// ErrUnknownAlgorithm is returned for algorithms other than None, LZ4
	// and ZSTD.
	ErrUnknownAlgorithm = errors.New("compress: unknown algorithm")
)

// ZSTD encoder/decoder pools
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxRawSize), zstd.WithDecoderConcurrency(1))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compress compresses data with alg.
//
// It returns the algorithm actually used: when compression saves less than
// 10% the data is returned unchanged with None.
func Compress(alg Algorithm, data []byte) ([]byte, Algorithm, error) {
	if alg == None || len(data) == 0 {
		return data, None, nil
	}

	var compressed []byte
	var err error

	switch alg {
	case LZ4:
		compressed, err = compressLZ4(data)
	case ZSTD:
		compressed = compressZSTD(data)
	default:
		return nil, None, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
	if err != nil {
		return nil, None, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return data, None, nil
	}
	return compressed, alg, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

// Decompress decompresses a block that must expand to exactly rawLen bytes.
func Decompress(alg Algorithm, data []byte, rawLen int) ([]byte, error) {
	if rawLen < 0 || rawLen > MaxRawSize {
		return nil, fmt.Errorf("compress: raw size %d out of range", rawLen)
	}

	if alg == None {
		if len(data) != rawLen {
			return nil, ErrSizeMismatch
		}
		return data, nil
	}
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
	if rawLen > maxRatio*(len(data)+64) {
		return nil, fmt.Errorf("compress: raw size %d implausible for %d bytes", rawLen, len(data))
	}

	result := make([]byte, rawLen)

	switch alg {
	case LZ4:
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, ErrSizeMismatch
		}
		return result, nil

	default:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(data, result[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawLen {
			return nil, ErrSizeMismatch
		}
		return decoded, nil
	}
}
