package rule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/dtable/codec"
)

// MarshalJSON implements json.Marshaler.
//
// Floats always carry a fraction or exponent so that they decode back as
// floats; integral numbers without one decode as ints.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.B), nil
	case KindInt:
		return strconv.AppendInt(nil, v.I64, 10), nil
	case KindFloat:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return nil, fmt.Errorf("rule: cannot encode %v as JSON", v.F64)
		}
		b := strconv.AppendFloat(nil, v.F64, 'g', -1, 64)
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	case KindString:
		return json.Marshal(v.Str)
	default:
		return nil, errors.New("rule: cannot encode invalid value")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("rule: empty value")
	}

	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}

	text := string(data)
	if !bytes.ContainsAny(data, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			*v = Int(i)
			return nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("rule: invalid value %q", text)
	}
	*v = Float(f)
	return nil
}

type jsonConstraint struct {
	Eq    *Value            `json:"eq,omitempty"`
	Range []json.RawMessage `json:"range,omitempty"`
}

// Infinite range bounds are spelled as strings since JSON numbers cannot
// hold them.
const (
	posInf = `"+inf"`
	negInf = `"-inf"`
)

func marshalBound(v Value) (json.RawMessage, error) {
	if v.Kind == KindFloat && math.IsInf(v.F64, 0) {
		if v.F64 > 0 {
			return json.RawMessage(posInf), nil
		}
		return json.RawMessage(negInf), nil
	}
	return v.MarshalJSON()
}

func unmarshalBound(data json.RawMessage) (Value, error) {
	switch string(bytes.TrimSpace(data)) {
	case posInf:
		return Float(math.Inf(1)), nil
	case negInf:
		return Float(math.Inf(-1)), nil
	}
	var v Value
	err := v.UnmarshalJSON(data)
	return v, err
}

// MarshalJSON implements json.Marshaler.
// Wildcards encode as "*", equality as {"eq":v}, ranges as {"range":[lo,hi]}.
// Infinite range bounds encode as "-inf" and "+inf", so a string range cannot
// start or end at those two strings.
func (c Constraint) MarshalJSON() ([]byte, error) {
	switch c.Op {
	case OpAny:
		return []byte(`"*"`), nil
	case OpEqual:
		v := c.Value
		return json.Marshal(jsonConstraint{Eq: &v})
	case OpRange:
		lo, err := marshalBound(c.Low)
		if err != nil {
			return nil, err
		}
		hi, err := marshalBound(c.High)
		if err != nil {
			return nil, err
		}
		return json.Marshal(jsonConstraint{Range: []json.RawMessage{lo, hi}})
	default:
		return nil, fmt.Errorf("rule: cannot encode constraint %s", c.Op)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte(`"*"`)) || bytes.Equal(data, []byte("null")) {
		*c = Any()
		return nil
	}

	// Decoded through raw fields so that {"eq":null} keeps its null key.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	eq, hasEq := raw["eq"]
	rng, hasRange := raw["range"]
	if len(raw) > btoi(hasEq)+btoi(hasRange) {
		return errors.New(`rule: constraint accepts only "eq" or "range"`)
	}

	switch {
	case hasEq && hasRange:
		return errors.New(`rule: constraint has both "eq" and "range"`)
	case hasEq:
		var v Value
		if err := v.UnmarshalJSON(eq); err != nil {
			return err
		}
		*c = Eq(v)
	case hasRange:
		var bounds []json.RawMessage
		if err := json.Unmarshal(rng, &bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return fmt.Errorf("rule: range needs 2 bounds, got %d", len(bounds))
		}
		lo, err := unmarshalBound(bounds[0])
		if err != nil {
			return err
		}
		hi, err := unmarshalBound(bounds[1])
		if err != nil {
			return err
		}
		*c = Between(lo, hi)
	default:
		*c = Any()
	}
	return nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

type jsonRule struct {
	Name   string                `json:"name,omitempty"`
	Output string                `json:"output"`
	When   map[string]Constraint `json:"when,omitempty"`
}

type jsonRuleSet struct {
	Attributes []string   `json:"attributes"`
	Rules      []jsonRule `json:"rules"`
}

// MarshalJSON implements json.Marshaler.
// Rules are written with named constraints; wildcards are omitted.
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	out := jsonRuleSet{
		Attributes: rs.Attributes,
		Rules:      make([]jsonRule, len(rs.Rules)),
	}
	if out.Attributes == nil {
		out.Attributes = []string{}
	}
	for i, r := range rs.Rules {
		jr := jsonRule{Name: r.Name, Output: r.Output}
		for pos, c := range r.Constraints {
			if c.IsWildcard() {
				continue
			}
			if pos >= len(rs.Attributes) {
				return nil, fmt.Errorf("rule %d: constraint %d has no attribute", i, pos)
			}
			if jr.When == nil {
				jr.When = make(map[string]Constraint)
			}
			jr.When[rs.Attributes[pos]] = c
		}
		out.Rules[i] = jr
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var in jsonRuleSet
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	parsed := RuleSet{Attributes: in.Attributes}
	for _, jr := range in.Rules {
		if err := parsed.Append(jr.Name, jr.Output, jr.When); err != nil {
			return err
		}
	}
	*rs = parsed
	return nil
}

// ParseRuleSet decodes an authored rule set with the given codec.
// A nil codec uses codec.Default.
func ParseRuleSet(data []byte, c codec.Codec) (*RuleSet, error) {
	if c == nil {
		c = codec.Default
	}
	var rs RuleSet
	if err := c.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rule set (%s): %w", c.Name(), err)
	}
	return &rs, nil
}

// EncodeRuleSet encodes a rule set with the given codec.
// A nil codec uses codec.Default. Infinite equality keys cannot be encoded.
func EncodeRuleSet(rs *RuleSet, c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	return c.Marshal(rs)
}
