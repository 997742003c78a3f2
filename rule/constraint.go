package rule

import "fmt"

// Operator identifies the kind of a Constraint.
type Operator uint8

const (
	// OpAny leaves the attribute unconstrained (wildcard).
	OpAny Operator = iota
	// OpEqual matches values equal to Constraint.Value.
	OpEqual
	// OpRange matches values in [Constraint.Low, Constraint.High).
	OpRange
)

// String returns the operator name.
func (op Operator) String() string {
	switch op {
	case OpAny:
		return "any"
	case OpEqual:
		return "eq"
	case OpRange:
		return "range"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Constraint is a per-attribute predicate of a rule.
//
// The zero Constraint is a wildcard.
type Constraint struct {
	Op    Operator
	Value Value // OpEqual
	Low   Value // OpRange, inclusive
	High  Value // OpRange, exclusive
}

// Any returns a wildcard constraint.
func Any() Constraint {
	return Constraint{Op: OpAny}
}

// Eq returns an equality constraint.
func Eq(v Value) Constraint {
	return Constraint{Op: OpEqual, Value: v}
}

// Between returns a half-open range constraint [low, high).
func Between(low, high Value) Constraint {
	return Constraint{Op: OpRange, Low: low, High: high}
}

// IntRange is shorthand for Between(Int(low), Int(high)).
func IntRange(low, high int64) Constraint {
	return Between(Int(low), Int(high))
}

// IsWildcard reports whether the constraint leaves the attribute unconstrained.
func (c Constraint) IsWildcard() bool {
	return c.Op == OpAny
}

// Matches reports whether v satisfies the constraint.
// This is the linear reference semantics the compiled index must reproduce.
func (c Constraint) Matches(v Value) bool {
	switch c.Op {
	case OpAny:
		return true
	case OpEqual:
		return v.IsValid() && Equal(v, c.Value)
	case OpRange:
		return v.IsValid() && Compare(c.Low, v) <= 0 && Compare(v, c.High) < 0
	default:
		return false
	}
}

// String returns a readable representation of the constraint.
func (c Constraint) String() string {
	switch c.Op {
	case OpAny:
		return "*"
	case OpEqual:
		return "== " + c.Value.String()
	case OpRange:
		return "[" + c.Low.String() + ", " + c.High.String() + ")"
	default:
		return c.Op.String()
	}
}
