package bitmap

import (
	"context"
	"fmt"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// Op selects the reduction applied by Aggregate.
type Op uint8

const (
	// OpOr unions all operands.
	OpOr Op = iota
	// OpXor folds all operands with symmetric difference.
	OpXor
	// OpAndNot removes the union of operands[1:] from operands[0].
	OpAndNot
)

// String returns the operator name.
func (op Op) String() string {
	switch op {
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpAndNot:
		return "andnot"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// partitionBits is the width of the low part of an id. Ids sharing the upper
// bits live in the same roaring container.
const partitionBits = 16

// minParallelOperands is the operand count below which Aggregate reduces
// sequentially.
const minParallelOperands = 8

// Reduce folds the operands sequentially. It is the reference for Aggregate.
func Reduce(op Op, operands ...*Bitmap) *Bitmap {
	if len(operands) == 0 {
		return New()
	}
	acc := operands[0].roaring().Clone()
	for _, o := range operands[1:] {
		switch op {
		case OpOr:
			acc.Or(o.roaring())
		case OpXor:
			acc.Xor(o.roaring())
		case OpAndNot:
			acc.AndNot(o.roaring())
		}
	}
	return &Bitmap{rb: acc}
}

// Aggregate reduces many bitmaps with op across a bounded worker pool.
//
// The id space is split into partitions on container boundaries. Each
// partition only sees the operands overlapping it, is reduced independently,
// and the disjoint partial results are merged at the end. Union and xor grow
// with the operand count, so splitting the work this way keeps every worker
// on a small slice of the id space.
//
// workers <= 0 uses GOMAXPROCS.
func Aggregate(ctx context.Context, op Op, workers int, operands ...*Bitmap) (*Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if op > OpAndNot {
		return nil, fmt.Errorf("bitmap: unsupported aggregate %s", op)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if len(operands) < minParallelOperands || workers == 1 {
		return Reduce(op, operands...), nil
	}

	type bounds struct {
		lo, hi uint32 // container keys, inclusive
		ok     bool
	}

	spans := make([]bounds, len(operands))
	var lo, hi uint32
	found := false
	for i, o := range operands {
		minID, ok := o.Minimum()
		if !ok {
			continue
		}
		maxID, _ := o.Maximum()
		spans[i] = bounds{lo: minID >> partitionBits, hi: maxID >> partitionBits, ok: true}
		if !found || spans[i].lo < lo {
			lo = spans[i].lo
		}
		if !found || spans[i].hi > hi {
			hi = spans[i].hi
		}
		found = true
	}
	if !found {
		return New(), nil
	}
	if op == OpAndNot && !spans[0].ok {
		return New(), nil
	}

	keys := int(hi-lo) + 1
	parts := min(workers, keys)
	per := (keys + parts - 1) / parts
	partials := make([]*roaring.Bitmap, parts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for p := range parts {
		pLo := lo + uint32(p*per)
		pHi := min(pLo+uint32(per)-1, hi)
		if pLo > hi {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mask := roaring.New()
			mask.AddRange(uint64(pLo)<<partitionBits, (uint64(pHi)+1)<<partitionBits)

			var acc *roaring.Bitmap
			for i, o := range operands {
				s := spans[i]
				if !s.ok || s.hi < pLo || s.lo > pHi {
					if op == OpAndNot && i == 0 {
						return nil
					}
					continue
				}
				slice := roaring.And(o.roaring(), mask)
				if acc == nil {
					acc = slice
					continue
				}
				switch op {
				case OpOr:
					acc.Or(slice)
				case OpXor:
					acc.Xor(slice)
				case OpAndNot:
					acc.AndNot(slice)
				}
				if op == OpAndNot && acc.IsEmpty() {
					break
				}
			}
			partials[p] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nonNil := partials[:0]
	for _, pb := range partials {
		if pb != nil {
			nonNil = append(nonNil, pb)
		}
	}
	if len(nonNil) == 0 {
		return New(), nil
	}
	return &Bitmap{rb: roaring.FastOr(nonNil...)}, nil
}
