package dtable

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/dtable/bitmap"
	"github.com/hupe1980/dtable/rule"
	"github.com/hupe1980/dtable/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_MatchesLinearScan(t *testing.T) {
	configs := []testutil.RuleSetConfig{
		{Attributes: 1, Rules: 50, Domain: 8},
		{Attributes: 3, Rules: 200, Domain: 16},
		{Attributes: 5, Rules: 500, Domain: 32, WildcardRate: 0.6},
		{Attributes: 4, Rules: 300, Domain: 64, RangeRate: 0.9},
		{Attributes: 4, Rules: 300, Domain: 64, Skew: 1.5},
	}

	for ci, cfg := range configs {
		t.Run(fmt.Sprintf("Config%d", ci), func(t *testing.T) {
			rng := testutil.NewRNG(int64(42 + ci))
			rs := rng.RuleSet(cfg)

			tbl, err := Compile(rs)
			require.NoError(t, err)

			for range 500 {
				rec := rng.Record(rs, cfg.Domain)
				want := testutil.LinearMatch(rs, rec)

				got, err := tbl.ClassifyAll(rec)
				require.NoError(t, err)
				require.Equal(t, want, got.ToArray(), "record %v", rec)

				m, ok, err := tbl.Classify(rec)
				require.NoError(t, err)
				if len(want) == 0 {
					assert.False(t, ok)
					continue
				}
				require.True(t, ok)
				assert.Equal(t, int(want[0]), m.Index)
				assert.Equal(t, rs.Rules[want[0]].Output, m.Output)
			}
		})
	}
}

func TestClassifyOrdered_AnyPermutation(t *testing.T) {
	rng := testutil.NewRNG(7)
	cfg := testutil.RuleSetConfig{Attributes: 5, Rules: 300, Domain: 16}
	rs := rng.RuleSet(cfg)

	tbl, err := Compile(rs)
	require.NoError(t, err)

	for range 200 {
		rec := rng.Record(rs, cfg.Domain)
		want, err := tbl.ClassifyAll(rec)
		require.NoError(t, err)

		got, err := tbl.ClassifyOrdered(rec, rng.Perm(len(rs.Attributes)))
		require.NoError(t, err)
		assert.True(t, want.Equals(got))
	}
}

func TestClassifyOrdered_InvalidOrder(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)
	rec := rule.Record{"age": rule.Int(30), "tier": rule.String("gold")}

	for _, order := range [][]int{nil, {0}, {0, 0}, {1, 2}, {0, 1, 2}, {-1, 0}} {
		_, err := tbl.ClassifyOrdered(rec, order)
		assert.ErrorIs(t, err, ErrInvalidOrder, "%v", order)
	}

	got, err := tbl.ClassifyOrdered(rec, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, got.ToArray())
}

func TestTrace_Monotonic(t *testing.T) {
	rng := testutil.NewRNG(99)
	cfg := testutil.RuleSetConfig{Attributes: 6, Rules: 400, Domain: 12, WildcardRate: 0.5}
	rs := rng.RuleSet(cfg)

	tbl, err := Compile(rs)
	require.NoError(t, err)

	for range 100 {
		rec := rng.Record(rs, cfg.Domain)
		steps, err := tbl.Trace(rec)
		require.NoError(t, err)
		require.NotEmpty(t, steps)

		prev := uint64(tbl.Len())
		for _, s := range steps {
			assert.LessOrEqual(t, s.Candidates, prev)
			prev = s.Candidates
		}

		last := steps[len(steps)-1]
		if last.Candidates > 0 {
			assert.Len(t, steps, len(rs.Attributes))
		}
		assert.Equal(t, uint64(len(testutil.LinearMatch(rs, rec))), last.Candidates)
	}
}

func TestTrace_EarlyExitAndSkip(t *testing.T) {
	rs := rule.NewRuleSet("a", "free", "b").
		MustAppend("r", "x", map[string]rule.Constraint{
			"a": rule.Eq(rule.Int(1)),
			"b": rule.Eq(rule.Int(2)),
		})
	tbl, err := Compile(rs)
	require.NoError(t, err)

	steps, err := tbl.Trace(rule.Record{"a": rule.Int(1), "b": rule.Int(2)})
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, Step{Attribute: "a", Bucket: 1, Candidates: 1}, steps[0])
	assert.Equal(t, Step{Attribute: "free", Bucket: -1, Candidates: 1, Skipped: true}, steps[1])
	assert.Equal(t, Step{Attribute: "b", Bucket: 1, Candidates: 1}, steps[2])

	steps, err = tbl.Trace(rule.Record{"a": rule.Int(5), "b": rule.Int(2)})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, Step{Attribute: "a", Bucket: 2, Candidates: 0}, steps[0])
}

func TestClassify_InitialCandidatesUnchanged(t *testing.T) {
	rs := rule.NewRuleSet("a", "free").
		MustAppend("one", "x", map[string]rule.Constraint{"a": rule.Eq(rule.Int(1))}).
		MustAppend("any", "y", nil).
		MustAppend("two", "z", map[string]rule.Constraint{"a": rule.Eq(rule.Int(2))})
	tbl, err := Compile(rs)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, tbl.all.ToArray())

	for range 3 {
		m, err := tbl.ClassifyAll(rule.Record{"a": rule.Int(2)})
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2}, m.ToArray())

		m, err = tbl.ClassifyAll(rule.Record{"a": rule.Int(7)})
		require.NoError(t, err)
		assert.Equal(t, []uint32{1}, m.ToArray())
	}
	assert.Equal(t, []uint32{0, 1, 2}, tbl.all.ToArray())

	data, err := Encode(tbl)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, tbl.all.Equals(decoded.all))

	empty, err := Compile(rule.NewRuleSet("a"))
	require.NoError(t, err)
	assert.True(t, empty.all.IsEmpty())
}

func TestClassify_MissingAttribute(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)

	var missing *MissingAttributeError

	_, err = tbl.ClassifyAll(rule.Record{"age": rule.Int(30)})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "tier", missing.Attribute)

	// Reported even when an earlier attribute already rules out every rule.
	_, _, err = tbl.Classify(rule.Record{"age": rule.Int(500)})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "tier", missing.Attribute)

	_, err = tbl.Trace(rule.Record{"tier": rule.String("gold")})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "age", missing.Attribute)

	// Attributes no rule constrains need no value, unknown ones are ignored.
	rs := rule.NewRuleSet("a", "free").
		MustAppend("r", "x", map[string]rule.Constraint{"a": rule.Eq(rule.Int(1))})
	tbl, err = Compile(rs)
	require.NoError(t, err)
	_, ok, err := tbl.Classify(rule.Record{"a": rule.Int(1), "other": rule.Int(3)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClassifyBatch(t *testing.T) {
	rng := testutil.NewRNG(3)
	cfg := testutil.RuleSetConfig{Attributes: 3, Rules: 100, Domain: 10}
	rs := rng.RuleSet(cfg)

	tbl, err := Compile(rs)
	require.NoError(t, err)

	recs := make([]rule.Record, 64)
	for i := range recs {
		recs[i] = rng.Record(rs, cfg.Domain)
	}

	res, err := tbl.ClassifyBatch(t.Context(), recs)
	require.NoError(t, err)
	require.Len(t, res.Matches, len(recs))

	union := bitmap.New()
	for i, rec := range recs {
		assert.Equal(t, testutil.LinearMatch(rs, rec), res.Matches[i].ToArray())
		union = union.Or(res.Matches[i])
	}
	assert.True(t, union.Equals(res.Union))
}

func TestClassifyBatch_Errors(t *testing.T) {
	tbl, err := Compile(loanRules())
	require.NoError(t, err)

	recs := []rule.Record{
		{"age": rule.Int(30), "tier": rule.String("gold")},
		{"age": rule.Int(30)},
	}
	_, err = tbl.ClassifyBatch(t.Context(), recs)
	var missing *MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "record 1")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = tbl.ClassifyBatch(ctx, recs[:1])
	assert.ErrorIs(t, err, context.Canceled)

	res, err := tbl.ClassifyBatch(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.True(t, res.Union.IsEmpty())
}

func TestCoverage(t *testing.T) {
	rs := rule.NewRuleSet("age", "tier").
		MustAppend("adult-gold", "approve", map[string]rule.Constraint{
			"age":  rule.IntRange(18, 65),
			"tier": rule.Eq(rule.String("gold")),
		}).
		MustAppend("minor", "deny", map[string]rule.Constraint{
			"age": rule.IntRange(0, 18),
		}).
		MustAppend("fallback", "review", nil)
	tbl, err := Compile(rs)
	require.NoError(t, err)

	cov, err := tbl.Coverage(t.Context(), "age")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, cov.ToArray())

	cov, err = tbl.Coverage(t.Context(), "tier")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, cov.ToArray())

	_, err = tbl.Coverage(t.Context(), "nope")
	assert.ErrorIs(t, err, rule.ErrUnknownAttribute)
}
