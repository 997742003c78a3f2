package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Attributes []string          `json:"attributes"`
	Outputs    map[string]string `json:"outputs"`
}

func TestCodecs_AgreeOnPayload(t *testing.T) {
	in := payload{
		Attributes: []string{"age", "tier"},
		Outputs:    map[string]string{"0": "approve", "1": "deny"},
	}

	var encoded []string
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)
			encoded = append(encoded, string(data))

			var out payload
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
	require.Len(t, encoded, 2)
	assert.JSONEq(t, encoded[0], encoded[1])
}

func TestCodecs_Indent(t *testing.T) {
	in := payload{Attributes: []string{"age"}}

	for _, c := range []Codec{JSON{Indent: "  "}, GoJSON{Indent: "  "}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), "{\n  \"attributes\""), string(data))
		})
	}
}

func TestCodecs_Errors(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		var out payload
		assert.Error(t, c.Unmarshal([]byte(`{"attributes":`), &out), c.Name())

		_, err := c.Marshal(make(chan int))
		assert.Error(t, err, c.Name())
	}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "go-json", Default.Name())
}
