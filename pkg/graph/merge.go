package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// MergeNodes deduplicates nodes by id, keeping the first-seen order. When an
// id repeats, the incoming props are appended to the first node unless an
// identical (key, value) pair is already present. Same key with a different
// value is kept, so properties can be multi-valued.
func MergeNodes(nodes []types.Node) []types.Node {
	out := make([]types.Node, 0, len(nodes))
	index := make(map[string]int, len(nodes))
	seen := make(map[string]map[string]struct{})

	for _, n := range nodes {
		i, dup := index[n.ID]
		if !dup {
			index[n.ID] = len(out)
			out = append(out, types.Node{ID: n.ID, Type: n.Type, Props: cloneProps(n.Props)})
			continue
		}

		sigs, ok := seen[n.ID]
		if !ok {
			sigs = make(map[string]struct{}, len(out[i].Props))
			for _, p := range out[i].Props {
				sigs[propSignature(p)] = struct{}{}
			}
			seen[n.ID] = sigs
		}

		for _, p := range n.Props {
			sig := propSignature(p)
			if _, exists := sigs[sig]; exists {
				continue
			}
			out[i].Props = append(out[i].Props, p)
			sigs[sig] = struct{}{}
		}
	}

	return out
}

func propSignature(p types.KV) string {
	return p.Key + "\x00" + CanonicalJSON(p.Value)
}

// CanonicalJSON serializes v with object keys sorted at every depth, so two
// composite values that differ only in key order produce the same text.
func CanonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}

	// Re-decode into generic maps: encoding/json writes map keys sorted,
	// whatever order the original value carried.
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return string(b)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return string(b)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func cloneProps(props []types.KV) []types.KV {
	out := make([]types.KV, len(props))
	copy(out, props)
	return out
}
