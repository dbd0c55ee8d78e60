package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

func TestNormalize_Idempotent(t *testing.T) {
	canonical := &types.Graph{
		Nodes: []types.Node{
			{ID: "Nick", Type: "Person", Props: []types.KV{
				{Key: "role", Value: "engineer"},
				{Key: "age", Value: json.Number("31")},
			}},
			{ID: "Acme", Type: "Organization", Props: []types.KV{{Key: "public", Value: false}}},
		},
		Edges: []types.Edge{
			{Src: "Nick", Dst: "Acme", Type: "EMPLOYED_AT", Props: []types.KV{{Key: "start_date", Value: "2022"}}},
		},
	}

	raw, err := json.Marshal(canonical)
	require.NoError(t, err)

	once := Normalize(raw)
	assert.Equal(t, canonical, once)

	raw2, err := json.Marshal(once)
	require.NoError(t, err)
	assert.Equal(t, once, Normalize(raw2))
}

func TestNormalize_ShapeTolerance(t *testing.T) {
	canonical := `{
		"nodes": [{"id": "Bob", "type": "Person", "props": []}, {"id": "Acme", "type": "Org", "props": []}],
		"edges": [{"src": "Bob", "dst": "Acme", "type": "FOUNDED", "props": []}]
	}`
	variant := `{
		"nodes": [{"id": "Bob", "label": "Person"}, {"id": "Acme", "labels": ["Org", "Company"]}],
		"edges": [{"source": "Bob", "target": "Acme", "label": "FOUNDED"}]
	}`

	assert.Equal(t, Normalize(json.RawMessage(canonical)), Normalize(json.RawMessage(variant)))

	fromTo := Normalize(json.RawMessage(`{"nodes":[],"edges":[{"from":"a","to":"b"}]}`))
	require.Len(t, fromTo.Edges, 1)
	assert.Equal(t, types.Edge{Src: "a", Dst: "b", Type: types.DefaultEdgeType, Props: []types.KV{}}, fromTo.Edges[0])
}

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNodes []string
		wantEdges int
	}{
		{"bare list is nodes", `[{"id":"a"},{"name":"b"}]`, []string{"a", "b"}, 0},
		{"items replaces empty nodes", `{"nodes":[],"items":[{"id":"x"}]}`, []string{"x"}, 0},
		{"items replaces missing nodes", `{"items":[{"node_id":"y"}],"edges":[]}`, []string{"y"}, 0},
		{"items ignored when nodes present", `{"nodes":[{"id":"n"}],"items":[{"id":"x"}]}`, []string{"n"}, 0},
		{"string payload", `"just text"`, nil, 0},
		{"number payload", `42`, nil, 0},
		{"null payload", `null`, nil, 0},
		{"nodes not a list", `{"nodes":{"id":"a"}}`, nil, 0},
		{"non-object elements skipped", `{"nodes":[1,"a",null,{"id":"ok"}],"edges":[[],{"src":"ok","dst":"ok"}]}`, []string{"ok"}, 1},
		{"invalid json", `{"nodes": [`, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Normalize(json.RawMessage(tt.raw))
			require.NotNil(t, g)
			var ids []string
			for _, n := range g.Nodes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.wantNodes, ids)
			assert.Len(t, g.Edges, tt.wantEdges)
		})
	}
}

func TestNormalize_NodeFieldResolution(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantID   string
		wantType string
		dropped  bool
	}{
		{"id wins over name", `{"id":"i","name":"n","node_id":"x"}`, "i", DefaultNodeType, false},
		{"name when id empty", `{"id":"","name":"n"}`, "n", DefaultNodeType, false},
		{"node_id last", `{"node_id":"x"}`, "x", DefaultNodeType, false},
		{"type wins over label", `{"id":"a","type":"T","label":"L"}`, "a", "T", false},
		{"label then labels", `{"id":"a","label":"","labels":["First","Second"]}`, "a", "First", false},
		{"empty labels falls back", `{"id":"a","labels":[]}`, "a", DefaultNodeType, false},
		{"no id at all", `{"type":"T"}`, "", "", true},
		{"numeric id is dropped", `{"id":5,"name":"n"}`, "", "", true},
		{"numeric type is dropped", `{"id":"a","type":7}`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Normalize(json.RawMessage(`{"nodes":[` + tt.raw + `]}`))
			if tt.dropped {
				assert.Empty(t, g.Nodes)
				return
			}
			require.Len(t, g.Nodes, 1)
			assert.Equal(t, tt.wantID, g.Nodes[0].ID)
			assert.Equal(t, tt.wantType, g.Nodes[0].Type)
		})
	}
}

func TestNormalize_NameProp(t *testing.T) {
	g := Normalize(json.RawMessage(`{"nodes":[
		{"id":"a","name":"Alice","props":{"age":30}},
		{"id":"b","name":"Bob","props":[{"key":"name","value":"Robert"}]}
	]}`))
	require.Len(t, g.Nodes, 2)

	assert.Equal(t, []types.KV{
		{Key: "age", Value: json.Number("30")},
		{Key: "name", Value: "Alice"},
	}, g.Nodes[0].Props)
	assert.Equal(t, []types.KV{{Key: "name", Value: "Robert"}}, g.Nodes[1].Props)
}

func TestNormalize_EdgeDropsIncomplete(t *testing.T) {
	g := Normalize(json.RawMessage(`{"edges":[
		{"src":"a","dst":""},
		{"src":"","dst":"b"},
		{"src":"a","dst":"b","type":""},
		{"src":"a","dst":"b","type":3},
		{"src":"a","dst":"b","type":"OK"}
	]}`))
	require.Len(t, g.Edges, 2)
	assert.Equal(t, types.DefaultEdgeType, g.Edges[0].Type)
	assert.Equal(t, "OK", g.Edges[1].Type)
}

func TestKVize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []types.KV
	}{
		{"missing", ``, []types.KV{}},
		{"null", `null`, []types.KV{}},
		{"scalar", `"text"`, []types.KV{}},
		{
			"object keeps document order",
			`{"zeta":1,"alpha":"a","mid":null}`,
			[]types.KV{
				{Key: "zeta", Value: json.Number("1")},
				{Key: "alpha", Value: "a"},
				{Key: "mid", Value: nil},
			},
		},
		{
			"list keeps key/value objects only",
			`[{"key":"a","value":1},{"key":"b"},"junk",{"value":2},{"key":7,"value":true},{"key":"c","value":null}]`,
			[]types.KV{
				{Key: "a", Value: json.Number("1")},
				{Key: "7", Value: true},
				{Key: "c", Value: nil},
			},
		},
		{
			"non-string keys render as JSON text",
			`[{"key":true,"value":"t"},{"key":null,"value":"n"},{"key":1.50,"value":"f"}]`,
			[]types.KV{
				{Key: "true", Value: "t"},
				{Key: "null", Value: "n"},
				{Key: "1.50", Value: "f"},
			},
		},
		{
			"composite values verbatim",
			`{"tags":["x","y"],"geo":{"lat":1}}`,
			[]types.KV{
				{Key: "tags", Value: []any{"x", "y"}},
				{Key: "geo", Value: map[string]any{"lat": json.Number("1")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KVize(json.RawMessage(tt.raw)))
		})
	}
}
