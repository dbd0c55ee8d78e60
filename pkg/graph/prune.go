package graph

import (
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Prune returns a copy of g whose node and edge props exclude entries with a
// blank key, a null value, or a blank string value. Placeholder props such
// as {"key":"note","value":""} are common in model output.
func Prune(g *types.Graph) *types.Graph {
	if g == nil {
		return types.NewGraph()
	}

	out := &types.Graph{
		Nodes: make([]types.Node, len(g.Nodes)),
		Edges: make([]types.Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		n.Props = pruneProps(n.Props)
		out.Nodes[i] = n
	}
	for i, e := range g.Edges {
		e.Props = pruneProps(e.Props)
		out.Edges[i] = e
	}
	return out
}

func pruneProps(props []types.KV) []types.KV {
	kept := make([]types.KV, 0, len(props))
	for _, p := range props {
		if keepProp(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func keepProp(p types.KV) bool {
	if strings.TrimSpace(p.Key) == "" || p.Value == nil {
		return false
	}
	if s, ok := p.Value.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}
