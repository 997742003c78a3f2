package rule

import (
	"cmp"
	"math"
	"strconv"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a small typed attribute value.
//
// Values form a single total order (see Compare), which is what lets one
// attribute mix equality keys and range breakpoints on the same axis.
//
// NOTE: The zero Value is KindInvalid and never matches anything.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	Str  string
	B    bool
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an integer value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// IsValid reports whether v carries a kind.
func (v Value) IsValid() bool {
	return v.Kind >= KindNull && v.Kind <= KindString
}

// IsNaN reports whether v is a float NaN.
func (v Value) IsNaN() bool {
	return v.Kind == KindFloat && math.IsNaN(v.F64)
}

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value as float64 for ints and floats.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// String returns a readable representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	default:
		return "invalid"
	}
}

// class groups kinds that are comparable with each other.
type class uint8

const (
	classInvalid class = iota
	classNull
	classBool
	classNumeric
	classString
)

func (v Value) class() class {
	switch v.Kind {
	case KindNull:
		return classNull
	case KindBool:
		return classBool
	case KindInt, KindFloat:
		return classNumeric
	case KindString:
		return classString
	default:
		return classInvalid
	}
}

// Comparable reports whether a and b belong to the same value class, i.e.
// both numeric, both strings, both booleans or both null.
func Comparable(a, b Value) bool {
	return a.class() == b.class() && a.class() != classInvalid
}

// Compare orders two values.
//
// Values are ordered first by class (invalid < null < bool < numeric <
// string), then within the class. Ints and floats compare numerically and
// exactly, so Int(3) equals Float(3). NaN sorts below every other number and
// equals only itself.
func Compare(a, b Value) int {
	ca, cb := a.class(), b.class()
	if ca != cb {
		return cmp.Compare(ca, cb)
	}

	switch ca {
	case classBool:
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	case classNumeric:
		return compareNumeric(a, b)
	case classString:
		return cmp.Compare(a.Str, b.Str)
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

func compareNumeric(a, b Value) int {
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		return cmp.Compare(a.I64, b.I64)
	case a.Kind == KindFloat && b.Kind == KindFloat:
		return cmp.Compare(a.F64, b.F64)
	case a.Kind == KindInt:
		return compareIntFloat(a.I64, b.F64)
	default:
		return -compareIntFloat(b.I64, a.F64)
	}
}

// compareIntFloat compares an int64 with a float64 without losing precision.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= math.MaxInt64:
		return -1
	case f < math.MinInt64:
		return 1
	}

	t := math.Trunc(f)
	ti := int64(t)
	switch {
	case i < ti:
		return -1
	case i > ti:
		return 1
	case f > t:
		return -1
	case f < t:
		return 1
	default:
		return 0
	}
}
