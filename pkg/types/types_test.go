package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphMarshalEmptySequences(t *testing.T) {
	b, err := json.Marshal(&Graph{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(b))

	g := Graph{
		Nodes: []Node{{ID: "a", Type: "Person"}},
		Edges: []Edge{{Src: "a", Dst: "b", Type: "KNOWS"}},
	}
	b, err = json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes":[{"id":"a","type":"Person","props":[]}],
		"edges":[{"src":"a","dst":"b","type":"KNOWS","props":[]}]
	}`, string(b))
}

func TestIsSingleErrorNode(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  bool
	}{
		{"nil graph", nil, false},
		{"empty graph", NewGraph(), false},
		{"single error node", &Graph{Nodes: []Node{{ID: "e", Type: "error"}}}, true},
		{"error node with edge", &Graph{
			Nodes: []Node{{ID: "e", Type: "error"}},
			Edges: []Edge{{Src: "e", Dst: "e", Type: "SELF"}},
		}, false},
		{"two nodes", &Graph{Nodes: []Node{{ID: "e", Type: "error"}, {ID: "x", Type: "Entity"}}}, false},
		{"single normal node", &Graph{Nodes: []Node{{ID: "x", Type: "Entity"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.graph.IsSingleErrorNode())
		})
	}
}

func TestGraphValidate(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a", Type: "Person", Props: []KV{{Key: "name", Value: "Alice"}}}},
		Edges: []Edge{{Src: "a", Dst: "b", Type: "KNOWS"}},
	}
	assert.NoError(t, g.Validate())

	g.Nodes[0].Props = append(g.Nodes[0].Props, KV{Key: "  ", Value: 1})
	assert.ErrorIs(t, g.Validate(), ErrEmptyKey)

	g.Nodes[0].Props = nil
	g.Edges[0].Dst = ""
	assert.ErrorIs(t, g.Validate(), ErrEmptyDst)
}

func TestChatRequestClone(t *testing.T) {
	orig := &ChatRequest{
		Model:          "graph-extractor",
		Messages:       []Message{{Role: "user", Content: "hi"}},
		Temperature:    Float32(0.5),
		ResponseFormat: &ResponseFormat{Type: ResponseFormatJSONObject},
	}

	clone := orig.Clone()
	clone.Messages[0].Content = "changed"
	*clone.Temperature = 0
	clone.ResponseFormat.Type = ResponseFormatJSONSchema

	assert.Equal(t, "hi", orig.Messages[0].Content)
	assert.Equal(t, float32(0.5), *orig.Temperature)
	assert.Equal(t, ResponseFormatJSONObject, orig.ResponseFormat.Type)
}

func TestMentionsJSON(t *testing.T) {
	req := &ChatRequest{Messages: []Message{{Role: "user", Content: "extract entities"}}}
	assert.False(t, req.MentionsJSON())

	req.Messages = append(req.Messages, Message{Role: "system", Content: "Reply in Json only"})
	assert.True(t, req.MentionsJSON())
}

func TestTokenUsageTotal(t *testing.T) {
	var nilUsage *TokenUsage
	assert.Equal(t, 0, nilUsage.Total())
	assert.Equal(t, 30, (&TokenUsage{TotalTokens: 30, PromptTokens: 1}).Total())
	assert.Equal(t, 12, (&TokenUsage{PromptTokens: 10, CompletionTokens: 2}).Total())
}
