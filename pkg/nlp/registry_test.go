package nlp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

func TestCapabilityRegistry_Defaults(t *testing.T) {
	r := NewCapabilityRegistry()

	assert.Equal(t, FormatJSONObject, r.Lookup("graph-extractor").ResponseFormat)
	assert.Equal(t, FormatJSONObject, r.Lookup("graph-extractor-o1mini").ResponseFormat)
	assert.Equal(t, FormatNone, r.Lookup("graph-extractor-gemini").ResponseFormat)
	assert.Equal(t, FormatJSONObject, r.Lookup("some-local-model").ResponseFormat)
}

func TestCapabilityRegistry_LongestPrefixWins(t *testing.T) {
	r := NewCapabilityRegistry()
	r.RegisterPrefix("graph-extractor-local", Capabilities{ResponseFormat: FormatJSONSchema})

	assert.Equal(t, FormatJSONSchema, r.Lookup("graph-extractor-local-qwen").ResponseFormat)
	assert.Equal(t, FormatJSONObject, r.Lookup("graph-extractor-other").ResponseFormat)
}

func TestCapabilityRegistry_Apply(t *testing.T) {
	r := NewCapabilityRegistry()
	r.Apply(map[string]config.ProviderConfig{
		"graph-extractor-gemini": {ResponseFormat: "json_object"},
		"ollama-qwen":            {ResponseFormat: "none"},
		"ignored":                {},
	})

	assert.Equal(t, FormatJSONObject, r.Lookup("graph-extractor-gemini").ResponseFormat)
	assert.Equal(t, FormatNone, r.Lookup("ollama-qwen").ResponseFormat)
	assert.Equal(t, FormatJSONObject, r.Lookup("ignored").ResponseFormat)
}

func TestCapabilities_ResponseFormatFor(t *testing.T) {
	schema := json.RawMessage(`{"type":"object"}`)

	assert.Nil(t, Capabilities{ResponseFormat: FormatNone}.ResponseFormatFor(schema))

	obj := Capabilities{ResponseFormat: FormatJSONObject}.ResponseFormatFor(schema)
	require.NotNil(t, obj)
	assert.Equal(t, types.ResponseFormatJSONObject, obj.Type)
	assert.Empty(t, obj.Schema)

	js := Capabilities{ResponseFormat: FormatJSONSchema}.ResponseFormatFor(schema)
	require.NotNil(t, js)
	assert.Equal(t, types.ResponseFormatJSONSchema, js.Type)
	assert.Equal(t, GraphSchemaName, js.Name)
	assert.True(t, js.Strict)
	assert.JSONEq(t, `{"type":"object"}`, string(js.Schema))
}
