// Package rule defines the authored form of a decision table: typed values,
// per-attribute constraints and ordered rule sets.
//
// Values of different kinds are totally ordered:
//
//	invalid < null < bool < numeric < string
//
// Ints and floats compare exactly by numeric value, so Int(3) and Float(3)
// are the same key. NaN sorts below every other number.
//
// A Constraint is a wildcard (Any), an equality (Eq) or a half-open range
// (Between, IntRange). Rule sets can be built in code:
//
//	rs := rule.NewRuleSet("age", "tier").
//	    MustAppend("minor", "deny", map[string]rule.Constraint{
//	        "age": rule.IntRange(0, 18),
//	    })
//
// or parsed from JSON with ParseRuleSet.
package rule
