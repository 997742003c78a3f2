package dtable

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dtable/internal/resource"
	"github.com/hupe1980/dtable/rule"
)

var (
	// ErrInvalidRuleSet is returned when a rule set cannot be compiled for a
	// reason other than a malformed range (bad attribute list, too many
	// constraints, invalid equality values).
	ErrInvalidRuleSet = errors.New("invalid rule set")

	// ErrNoTable is returned by an Engine or Store that has no table yet.
	ErrNoTable = errors.New("no table")

	// ErrCorruptTable matches every *CorruptTableError via errors.Is.
	ErrCorruptTable = errors.New("corrupt table")

	// ErrInvalidOrder is returned by ClassifyOrdered when the order is not a
	// permutation of the attribute positions.
	ErrInvalidOrder = errors.New("invalid attribute order")

	// ErrClosed is returned by a closed Engine.
	ErrClosed = errors.New("engine closed")

	// ErrMemoryLimitExceeded is returned when publishing a table would exceed
	// the engine's memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// InvalidRangeError reports a malformed range (or NaN equality) constraint.
// It is returned at compile time; a table is never built from such a rule.
type InvalidRangeError struct {
	Rule      int
	Attribute string
	Low       rule.Value
	High      rule.Value
	Reason    string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("rule %d: invalid range [%s, %s) on attribute %q: %s",
		e.Rule, e.Low, e.High, e.Attribute, e.Reason)
}

// MissingAttributeError reports a record without a value for an attribute
// the table constrains on.
type MissingAttributeError struct {
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("missing value for attribute %q", e.Attribute)
}

// CorruptTableError reports malformed, truncated or inconsistent table bytes.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type CorruptTableError struct {
	Reason string
	cause  error
}

func (e *CorruptTableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("corrupt table: %s: %v", e.Reason, e.cause)
	}
	return "corrupt table: " + e.Reason
}

func (e *CorruptTableError) Unwrap() error { return e.cause }

// Is reports whether target is ErrCorruptTable.
func (e *CorruptTableError) Is(target error) bool { return target == ErrCorruptTable }

func corrupt(reason string, cause error) *CorruptTableError {
	return &CorruptTableError{Reason: reason, cause: cause}
}
