package rule

import (
	"errors"
	"fmt"
)

// Record maps attribute names to the values being classified.
type Record map[string]Value

// Rule is a conjunction of per-attribute constraints mapped to an output.
//
// Constraints are positional: Constraints[i] applies to the i-th attribute
// of the owning RuleSet. Missing trailing constraints are wildcards.
type Rule struct {
	Name        string
	Output      string
	Constraints []Constraint
}

// Constraint returns the constraint for attribute position i.
func (r Rule) Constraint(i int) Constraint {
	if i < 0 || i >= len(r.Constraints) {
		return Any()
	}
	return r.Constraints[i]
}

// Matches reports whether rec satisfies every non-wildcard constraint of r.
// A record without a value for a constrained attribute does not match.
func (r Rule) Matches(attributes []string, rec Record) bool {
	for i, c := range r.Constraints {
		if c.IsWildcard() {
			continue
		}
		if i >= len(attributes) {
			return false
		}
		v, ok := rec[attributes[i]]
		if !ok || !c.Matches(v) {
			return false
		}
	}
	return true
}

// ErrUnknownAttribute is returned when a rule references an attribute the
// rule set does not declare.
var ErrUnknownAttribute = errors.New("unknown attribute")

// RuleSet is an externally authored decision table: the attribute list and
// the ordered rules over it. Rule order decides ties (first rule wins).
type RuleSet struct {
	Attributes []string
	Rules      []Rule
}

// NewRuleSet creates an empty rule set over the given attributes.
func NewRuleSet(attributes ...string) *RuleSet {
	return &RuleSet{Attributes: attributes}
}

// AttributeIndex returns the position of an attribute, or -1.
func (rs *RuleSet) AttributeIndex(name string) int {
	for i, a := range rs.Attributes {
		if a == name {
			return i
		}
	}
	return -1
}

// Append adds a rule built from named constraints. Attributes absent from
// when are wildcards.
func (rs *RuleSet) Append(name, output string, when map[string]Constraint) error {
	r := Rule{Name: name, Output: output}
	if len(when) > 0 {
		r.Constraints = make([]Constraint, len(rs.Attributes))
	}
	for attr, c := range when {
		pos := rs.AttributeIndex(attr)
		if pos < 0 {
			return fmt.Errorf("rule %q: %w %q", name, ErrUnknownAttribute, attr)
		}
		r.Constraints[pos] = c
	}
	rs.Rules = append(rs.Rules, r)
	return nil
}

// MustAppend is like Append but panics on error.
// It is intended for tests and static tables.
func (rs *RuleSet) MustAppend(name, output string, when map[string]Constraint) *RuleSet {
	if err := rs.Append(name, output, when); err != nil {
		panic(err)
	}
	return rs
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.Rules)
}
