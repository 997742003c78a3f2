// Package codec selects the text encoding used for authored rule sets.
//
// Rule sets are written by people and tools outside this module, so the codec
// only has to agree with whatever produced the bytes. Compiled tables never go
// through a codec; they use the binary table format.
package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// Codec encodes and decodes rule sets.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
// It honors json.Marshaler and json.Unmarshaler like encoding/json.
type GoJSON struct {
	// Indent, if set, pretty-prints one element per line.
	Indent string
}

// Marshal encodes v.
func (c GoJSON) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return gojson.MarshalIndent(v, "", c.Indent)
	}
	return gojson.Marshal(v)
}

// Unmarshal decodes data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }

// JSON is the standard-library codec, for rule sets produced by tools that
// rely on exact encoding/json behavior.
type JSON struct {
	// Indent, if set, pretty-prints one element per line.
	Indent string
}

// Marshal encodes v.
func (c JSON) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
