package graph

import (
	"bytes"
	"encoding/json"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Field aliases, in priority order, that models use for the same concept.
var (
	nodeIDFields   = []string{"id", "name", "node_id"}
	nodeTypeFields = []string{"type", "label"}
	edgeSrcFields  = []string{"src", "source", "from"}
	edgeDstFields  = []string{"dst", "target", "to"}
	edgeTypeFields = []string{"type", "label"}
)

// DefaultNodeType is assigned when a model gives a node no type at all.
const DefaultNodeType = "Entity"

// Normalize converts an arbitrary JSON payload from a provider into the
// canonical graph shape. It never fails: unrecognized shapes yield an empty
// graph, malformed nodes and edges are dropped.
//
// Accepted shapes are a bare list of nodes, an object with nodes/edges, and
// an object with items in place of an empty nodes list.
func Normalize(raw json.RawMessage) *types.Graph {
	rawNodes, rawEdges := splitShape(raw)

	nodes := make([]types.Node, 0, len(rawNodes))
	for _, rn := range rawNodes {
		if n, ok := normalizeNode(rn); ok {
			nodes = append(nodes, n)
		}
	}

	edges := make([]types.Edge, 0, len(rawEdges))
	for _, re := range rawEdges {
		if e, ok := normalizeEdge(re); ok {
			edges = append(edges, e)
		}
	}

	return &types.Graph{
		Nodes: MergeNodes(nodes),
		Edges: edges,
	}
}

func splitShape(raw json.RawMessage) (nodes, edges []json.RawMessage) {
	switch leadingByte(raw) {
	case '[':
		nodes, _ = asList(raw)
		return nodes, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, nil
		}
		nodes, _ = asList(obj["nodes"])
		if !truthy(decodeValue(obj["nodes"])) {
			if items, ok := asList(obj["items"]); ok {
				nodes = items
			}
		}
		edges, _ = asList(obj["edges"])
		return nodes, edges
	default:
		return nil, nil
	}
}

func normalizeNode(raw json.RawMessage) (types.Node, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return types.Node{}, false
	}

	id, ok := nonEmptyString(firstTruthy(obj, nodeIDFields...))
	if !ok {
		return types.Node{}, false
	}

	typ := firstTruthy(obj, nodeTypeFields...)
	if typ == nil {
		if labels, ok := decodeValue(obj["labels"]).([]any); ok && len(labels) > 0 && truthy(labels[0]) {
			typ = labels[0]
		}
	}
	if typ == nil {
		typ = DefaultNodeType
	}
	nodeType, ok := nonEmptyString(typ)
	if !ok {
		return types.Node{}, false
	}

	n := types.Node{ID: id, Type: nodeType, Props: KVize(obj["props"])}
	if name := decodeValue(obj["name"]); truthy(name) && !n.HasProp("name") {
		n.Props = append(n.Props, types.KV{Key: "name", Value: name})
	}
	return n, true
}

func normalizeEdge(raw json.RawMessage) (types.Edge, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return types.Edge{}, false
	}

	src, ok := nonEmptyString(firstTruthy(obj, edgeSrcFields...))
	if !ok {
		return types.Edge{}, false
	}
	dst, ok := nonEmptyString(firstTruthy(obj, edgeDstFields...))
	if !ok {
		return types.Edge{}, false
	}
	typ := firstTruthy(obj, edgeTypeFields...)
	if typ == nil {
		typ = types.DefaultEdgeType
	}
	edgeType, ok := nonEmptyString(typ)
	if !ok {
		return types.Edge{}, false
	}

	return types.Edge{Src: src, Dst: dst, Type: edgeType, Props: KVize(obj["props"])}, true
}

// KVize converts a props payload into a property list.
//
//   - null or a missing value gives an empty list
//   - an object gives one KV per key, in document order
//   - a list keeps only objects carrying both "key" and "value"
//   - anything else gives an empty list
func KVize(raw json.RawMessage) []types.KV {
	out := []types.KV{}

	switch leadingByte(raw) {
	case '{':
		om := orderedmap.New[string, json.RawMessage]()
		if err := om.UnmarshalJSON(raw); err != nil {
			return out
		}
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, types.KV{Key: pair.Key, Value: decodeValue(pair.Value)})
		}
	case '[':
		items, _ := asList(raw)
		for _, item := range items {
			obj, ok := asObject(item)
			if !ok {
				continue
			}
			key, hasKey := obj["key"]
			value, hasValue := obj["value"]
			if !hasKey || !hasValue {
				continue
			}
			out = append(out, types.KV{Key: stringifyKey(key), Value: decodeValue(value)})
		}
	}

	return out
}

// stringifyKey renders a JSON scalar as a property key: strings verbatim,
// everything else as its JSON text, so true stays "true" and null "null".
func stringifyKey(raw json.RawMessage) string {
	if s, ok := decodeValue(raw).(string); ok {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func firstTruthy(obj map[string]json.RawMessage, fields ...string) any {
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		if v := decodeValue(raw); truthy(v) {
			return v
		}
	}
	return nil
}

// truthy mirrors JSON-level truthiness: null, false, 0, "", [] and {} are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		return err != nil || f != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

// decodeValue decodes a raw JSON value keeping numbers in their literal form.
// Invalid or missing input decodes to nil.
func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if leadingByte(raw) != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	if leadingByte(raw) != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

func leadingByte(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
