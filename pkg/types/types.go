package types

import (
	"encoding/json"
	"errors"
)

// Validation errors
var (
	ErrEmptyID   = errors.New("id cannot be empty")
	ErrEmptyType = errors.New("type cannot be empty")
	ErrEmptySrc  = errors.New("src cannot be empty")
	ErrEmptyDst  = errors.New("dst cannot be empty")
	ErrEmptyKey  = errors.New("prop key cannot be empty")
)

// ErrorNodeType is the node type models emit to signal that nothing could be extracted.
const ErrorNodeType = "error"

// KV is a single property of a node or edge. Keys may repeat within a
// property list when the values differ.
type KV struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Graph is the canonical extraction result.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns an empty graph with non-nil sequences.
func NewGraph() *Graph {
	return &Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// MarshalJSON renders nil sequences as empty arrays.
func (g Graph) MarshalJSON() ([]byte, error) {
	type alias Graph
	out := alias(g)
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return json.Marshal(out)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return len(g.Edges)
}

// IsSingleErrorNode reports whether the graph is the sentinel a model emits
// instead of a real result: one node of type "error" and no edges.
func (g *Graph) IsSingleErrorNode() bool {
	if g == nil {
		return false
	}
	return len(g.Nodes) == 1 && len(g.Edges) == 0 && g.Nodes[0].Type == ErrorNodeType
}

// Validate checks the structural invariants every stored graph must satisfy.
func (g *Graph) Validate() error {
	for i := range g.Nodes {
		if err := g.Nodes[i].Validate(); err != nil {
			return err
		}
	}
	for i := range g.Edges {
		if err := g.Edges[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func emptyIfNil(props []KV) []KV {
	if props == nil {
		return []KV{}
	}
	return props
}

// ContextKey is the type for request-scoped values stored in a context.Context.
type ContextKey string

const (
	// ContextKeyRequestID holds the X-Request-ID of the current request.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyClientIP holds the caller's address, forwarded upstream as X-Client-IP.
	ContextKeyClientIP ContextKey = "client_ip"
	// ContextKeyTenantID holds the tenant the API key belongs to.
	ContextKeyTenantID ContextKey = "tenant_id"
	// ContextKeyRequestSource tags where a call originated (server, cli).
	ContextKeyRequestSource ContextKey = "request_source"
)
