package bitmap

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomOperands(rng *rand.Rand, n int) []*Bitmap {
	ops := make([]*Bitmap, n)
	for i := range ops {
		bld := NewBuilder()
		base := uint32(rng.Intn(8)) << partitionBits
		for range rng.Intn(500) {
			bld.Add(base + uint32(rng.Intn(3<<partitionBits)))
		}
		if rng.Intn(4) == 0 {
			lo := base + uint32(rng.Intn(1000))
			bld.Or(Range(lo, lo+uint32(rng.Intn(20000))))
		}
		ops[i] = bld.Freeze()
	}
	return ops
}

func TestAggregate_MatchesSequentialReduce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, op := range []Op{OpOr, OpXor, OpAndNot} {
		t.Run(op.String(), func(t *testing.T) {
			for range 20 {
				ops := randomOperands(rng, 8+rng.Intn(24))
				want := Reduce(op, ops...)

				for _, workers := range []int{1, 2, 4, 16} {
					got, err := Aggregate(context.Background(), op, workers, ops...)
					require.NoError(t, err)
					assert.True(t, want.Equals(got), "workers=%d", workers)
				}
			}
		})
	}
}

func TestAggregate_SmallAndEmptyInputs(t *testing.T) {
	ctx := context.Background()

	got, err := Aggregate(ctx, OpOr, 4)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	got, err = Aggregate(ctx, OpOr, 4, Of(1), Of(2))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, got.ToArray())

	emptyOps := make([]*Bitmap, 10)
	got, err = Aggregate(ctx, OpXor, 4, emptyOps...)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	// AndNot with an empty base is empty.
	ops := append([]*Bitmap{New()}, randomOperands(rand.New(rand.NewSource(1)), 9)...)
	got, err = Aggregate(ctx, OpAndNot, 4, ops...)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestAggregate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Aggregate(ctx, OpOr, 4, randomOperands(rand.New(rand.NewSource(7)), 10)...)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_UnknownOp(t *testing.T) {
	_, err := Aggregate(context.Background(), Op(99), 2, Of(1))
	assert.Error(t, err)
}
