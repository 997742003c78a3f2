// Package testutil provides testing utilities for dtable.
//
// This package is intended for use in tests only. It provides a seeded,
// thread-safe RNG, random rule set and record generators, and a linear
// reference classifier to check compiled tables against.
//
// # Random Rule Sets
//
//	rng := testutil.NewRNG(seed)
//	rs := rng.RuleSet(testutil.RuleSetConfig{Attributes: 4, Rules: 200, Domain: 32})
//	rec := rng.Record(rs, 32)
//
// # Reference Classification
//
//	want := testutil.LinearMatch(rs, rec) // ascending rule indices
package testutil
