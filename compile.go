package dtable

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/hupe1980/dtable/internal/index"
	"github.com/hupe1980/dtable/rule"
	"golang.org/x/sync/errgroup"
)

// MaxRules bounds the rules of one table; rule indices must fit the bitmaps.
const MaxRules = math.MaxUint32

type compileOptions struct {
	parallelism int
}

// CompileOption configures Compile.
type CompileOption func(*compileOptions)

// WithParallelism bounds the attributes indexed concurrently.
// n <= 0 uses GOMAXPROCS.
func WithParallelism(n int) CompileOption {
	return func(o *compileOptions) {
		o.parallelism = n
	}
}

// Compile compiles a rule set into a Table.
//
// Rule i of the set becomes ruleIndex i. A rule with a malformed range
// fails with *InvalidRangeError; other structural problems fail with
// ErrInvalidRuleSet. An empty rule list yields a table that matches nothing.
func Compile(rs *rule.RuleSet, opts ...CompileOption) (*Table, error) {
	return CompileContext(context.Background(), rs, opts...)
}

// CompileContext is like Compile but stops early when ctx is canceled.
func CompileContext(ctx context.Context, rs *rule.RuleSet, opts ...CompileOption) (*Table, error) {
	o := compileOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism <= 0 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}

	if err := validate(rs); err != nil {
		return nil, err
	}

	attrs := make([]*index.Attribute, len(rs.Attributes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for pos, name := range rs.Attributes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			attrs[pos] = index.Build(name, rs.Rules, pos)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outputs := make([]string, len(rs.Rules))
	names := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		outputs[i] = r.Output
		names[i] = r.Name
	}

	return newTable(attrs, outputs, names), nil
}

func validate(rs *rule.RuleSet) error {
	if rs == nil {
		return fmt.Errorf("%w: nil rule set", ErrInvalidRuleSet)
	}
	if len(rs.Attributes) == 0 {
		return fmt.Errorf("%w: no attributes", ErrInvalidRuleSet)
	}
	if uint64(len(rs.Rules)) > MaxRules {
		return fmt.Errorf("%w: %d rules exceed the limit of %d", ErrInvalidRuleSet, len(rs.Rules), uint64(MaxRules))
	}

	seen := make(map[string]struct{}, len(rs.Attributes))
	for _, a := range rs.Attributes {
		if a == "" {
			return fmt.Errorf("%w: empty attribute name", ErrInvalidRuleSet)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate attribute %q", ErrInvalidRuleSet, a)
		}
		seen[a] = struct{}{}
	}

	for i, r := range rs.Rules {
		if len(r.Constraints) > len(rs.Attributes) {
			return fmt.Errorf("%w: rule %d has %d constraints for %d attributes",
				ErrInvalidRuleSet, i, len(r.Constraints), len(rs.Attributes))
		}
		for pos, c := range r.Constraints {
			if err := validateConstraint(i, rs.Attributes[pos], c); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateConstraint(ruleIndex int, attr string, c rule.Constraint) error {
	invalid := func(reason string) error {
		return &InvalidRangeError{Rule: ruleIndex, Attribute: attr, Low: c.Low, High: c.High, Reason: reason}
	}

	switch c.Op {
	case rule.OpAny:
		return nil
	case rule.OpEqual:
		if !c.Value.IsValid() {
			return fmt.Errorf("%w: rule %d: invalid equality value on attribute %q", ErrInvalidRuleSet, ruleIndex, attr)
		}
		if c.Value.IsNaN() {
			return &InvalidRangeError{Rule: ruleIndex, Attribute: attr, Low: c.Value, High: c.Value, Reason: "NaN equality key"}
		}
		return nil
	case rule.OpRange:
		switch {
		case !c.Low.IsValid() || !c.High.IsValid():
			return invalid("invalid endpoint")
		case c.Low.IsNaN() || c.High.IsNaN():
			return invalid("NaN endpoint")
		case !rule.Comparable(c.Low, c.High):
			return invalid("endpoints of different types")
		case rule.Compare(c.Low, c.High) >= 0:
			return invalid("low must be less than high")
		}
		return nil
	default:
		return fmt.Errorf("%w: rule %d: unknown operator %s on attribute %q", ErrInvalidRuleSet, ruleIndex, c.Op, attr)
	}
}
