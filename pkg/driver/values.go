package driver

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// RecordValues converts one record's values into JSON-friendly maps and
// slices. Nodes, relationships and paths become maps; temporal and spatial
// values become strings.
func RecordValues(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = Value(v)
	}
	return out
}

// Value converts a single driver value.
func Value(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, []byte:
		return t
	case dbtype.Node:
		return nodeValue(t)
	case dbtype.Relationship:
		return relationshipValue(t)
	case dbtype.Path:
		nodes := make([]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = nodeValue(n)
		}
		rels := make([]any, len(t.Relationships))
		for i, r := range t.Relationships {
			rels[i] = relationshipValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	case map[string]any:
		return RecordValues(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return t
	}
}

func nodeValue(n dbtype.Node) map[string]any {
	return map[string]any{
		"element_id": n.ElementId,
		"labels":     append([]string(nil), n.Labels...),
		"properties": RecordValues(n.Props),
	}
}

func relationshipValue(r dbtype.Relationship) map[string]any {
	return map[string]any{
		"element_id": r.ElementId,
		"type":       r.Type,
		"start":      r.StartElementId,
		"end":        r.EndElementId,
		"properties": RecordValues(r.Props),
	}
}
