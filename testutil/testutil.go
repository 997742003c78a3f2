package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/dtable/rule"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, larger s concentrates on the first values.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// RuleSetConfig shapes a random rule set.
type RuleSetConfig struct {
	Attributes int
	Rules      int
	// Domain bounds generated keys to [0, Domain).
	Domain int
	// WildcardRate is the probability that a constraint is a wildcard.
	WildcardRate float64
	// RangeRate is the probability that a non-wildcard constraint is a range.
	RangeRate float64
	// Skew > 0 draws equality keys from a Zipf distribution, so that many
	// rules share the same keys.
	Skew float64
}

func (c RuleSetConfig) withDefaults() RuleSetConfig {
	if c.Attributes <= 0 {
		c.Attributes = 3
	}
	if c.Domain <= 1 {
		c.Domain = 16
	}
	if c.WildcardRate == 0 {
		c.WildcardRate = 0.3
	}
	if c.RangeRate == 0 {
		c.RangeRate = 0.5
	}
	return c
}

// AttributeName returns the name RuleSet gives to attribute i.
// Every third attribute holds string keys, the others numbers.
func AttributeName(i int) string {
	if i%3 == 2 {
		return fmt.Sprintf("s%d", i)
	}
	return fmt.Sprintf("n%d", i)
}

func isString(i int) bool { return i%3 == 2 }

// StringKey returns the string key for k. Keys sort like their numbers.
func StringKey(k int) string {
	return fmt.Sprintf("k%04d", k)
}

// RuleSet generates a random, valid rule set.
//
// Numeric attributes mix int and float keys on one axis. Equality keys are
// either Int(k) or Float(k) (equal values of different kinds) or Float(k+0.5).
// Range endpoints are ints or half-way floats.
func (r *RNG) RuleSet(cfg RuleSetConfig) *rule.RuleSet {
	cfg = cfg.withDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()

	attrs := make([]string, cfg.Attributes)
	for i := range attrs {
		attrs[i] = AttributeName(i)
	}
	rs := rule.NewRuleSet(attrs...)

	for i := range cfg.Rules {
		// Some rules carry fewer constraints than attributes; the missing
		// trailing constraints are wildcards.
		n := cfg.Attributes
		if r.rand.Intn(8) == 0 {
			n = r.rand.Intn(cfg.Attributes + 1)
		}

		constraints := make([]rule.Constraint, n)
		for a := range constraints {
			if r.rand.Float64() < cfg.WildcardRate {
				continue
			}
			if r.rand.Float64() < cfg.RangeRate {
				constraints[a] = r.rangeLocked(cfg, isString(a))
			} else {
				constraints[a] = rule.Eq(r.keyLocked(cfg, isString(a)))
			}
		}

		rs.Rules = append(rs.Rules, rule.Rule{
			Name:        fmt.Sprintf("rule-%d", i),
			Output:      fmt.Sprintf("out-%d", r.rand.Intn(8)),
			Constraints: constraints,
		})
	}

	return rs
}

func (r *RNG) keyLocked(cfg RuleSetConfig, str bool) rule.Value {
	k := r.rand.Intn(cfg.Domain)
	if cfg.Skew > 0 {
		k = r.zipfLocked(cfg.Domain, cfg.Skew)
	}
	if str {
		return rule.String(StringKey(k))
	}
	switch r.rand.Intn(3) {
	case 0:
		return rule.Int(int64(k))
	case 1:
		return rule.Float(float64(k))
	default:
		return rule.Float(float64(k) + 0.5)
	}
}

func (r *RNG) rangeLocked(cfg RuleSetConfig, str bool) rule.Constraint {
	lo := r.rand.Intn(cfg.Domain)
	hi := lo + 1 + r.rand.Intn(cfg.Domain-lo)
	if str {
		return rule.Between(rule.String(StringKey(lo)), rule.String(StringKey(hi)))
	}
	low, high := rule.Int(int64(lo)), rule.Int(int64(hi))
	switch r.rand.Intn(4) {
	case 0:
		low = rule.Float(float64(lo) + 0.5)
	case 1:
		high = rule.Float(float64(hi) - 0.5)
	}
	return rule.Between(low, high)
}

// Record generates a random record for rs. Every attribute is present, plus
// one attribute the rule set does not know. Values fall slightly outside
// [0, domain) so that records also miss every range.
func (r *RNG) Record(rs *rule.RuleSet, domain int) rule.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := make(rule.Record, len(rs.Attributes)+1)
	for i, name := range rs.Attributes {
		k := r.rand.Intn(domain+2) - 1
		if isString(i) {
			rec[name] = rule.String(StringKey(k))
			continue
		}
		switch r.rand.Intn(4) {
		case 0:
			rec[name] = rule.Float(float64(k))
		case 1:
			rec[name] = rule.Float(float64(k) + 0.5)
		case 2:
			rec[name] = rule.Float(float64(k) + 0.25)
		default:
			rec[name] = rule.Int(int64(k))
		}
	}
	rec["unknown"] = rule.Int(int64(r.rand.Intn(domain)))
	return rec
}

// LinearMatch scans the rules in order and returns the indices of all
// matching rules, ascending.
func LinearMatch(rs *rule.RuleSet, rec rule.Record) []uint32 {
	var out []uint32
	for i, rl := range rs.Rules {
		if rl.Matches(rs.Attributes, rec) {
			out = append(out, uint32(i))
		}
	}
	return out
}
