package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph_schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_HashIsFileDigest(t *testing.T) {
	path := writeSchema(t, string(defaultSchema))

	v, err := Load(path)
	require.NoError(t, err)

	sum := sha256.Sum256(defaultSchema)
	assert.Equal(t, hex.EncodeToString(sum[:]), v.Hash())
	assert.JSONEq(t, string(defaultSchema), string(v.Raw()))
}

func TestLoad_FailFast(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"not json", `{"type": "object",`, "not a JSON object"},
		{"array document", `[]`, "not a JSON object"},
		{"missing type", `{"properties":{"nodes":{},"edges":{}},"required":["nodes","edges"]}`, `top-level "type" must be "object"`},
		{"wrong type", `{"type":"array","properties":{"nodes":{},"edges":{}},"required":["nodes","edges"]}`, `top-level "type" must be "object"`},
		{"missing edges property", `{"type":"object","properties":{"nodes":{}},"required":["nodes","edges"]}`, "missing properties.edges"},
		{"missing required", `{"type":"object","properties":{"nodes":{},"edges":{}}}`, `missing "required"`},
		{"required without nodes", `{"type":"object","properties":{"nodes":{},"edges":{}},"required":["edges"]}`, `"required" must include "nodes"`},
		{"does not compile", `{"type":"object","properties":{"nodes":{"type":"no-such-type"},"edges":{}},"required":["nodes","edges"]}`, "not a valid JSON Schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSchema(t, tt.content))
			var lerr *LoadError
			require.True(t, errors.As(err, &lerr), "expected LoadError, got %v", err)
			assert.Equal(t, tt.reason, lerr.Reason)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "unreadable", lerr.Reason)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	v := Default()

	valid := &types.Graph{
		Nodes: []types.Node{
			{ID: "Nick", Type: "Person", Props: []types.KV{{Key: "role", Value: "engineer"}}},
			{ID: "Acme", Type: "Organization"},
		},
		Edges: []types.Edge{
			{Src: "Nick", Dst: "Acme", Type: "EMPLOYED_AT", Props: []types.KV{{Key: "year", Value: json.Number("2022")}}},
		},
	}
	assert.NoError(t, v.Validate(valid))
	assert.NoError(t, v.Validate(types.NewGraph()))
	assert.NoError(t, v.Validate(nil))

	composite := &types.Graph{
		Nodes: []types.Node{{ID: "a", Type: "T", Props: []types.KV{{Key: "tags", Value: []any{"x"}}}}},
	}
	err := v.Validate(composite)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Details)

	emptyKey := &types.Graph{
		Nodes: []types.Node{{ID: "a", Type: "T", Props: []types.KV{{Key: "", Value: "x"}}}},
	}
	assert.Error(t, v.Validate(emptyKey))
}

func TestValidateDocument(t *testing.T) {
	v := Default()
	assert.NoError(t, v.ValidateDocument([]byte(`{"nodes":[],"edges":[]}`)))
	assert.Error(t, v.ValidateDocument([]byte(`{"nodes":[]}`)))
	assert.Error(t, v.ValidateDocument([]byte(`{"nodes":[],"edges":[],"extra":1}`)))
}
