package types

import (
	"encoding/json"
	"strings"
)

// Node is an entity in an extracted graph, identified by ID.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Props []KV   `json:"props"`
}

// MarshalJSON renders nil props as an empty array.
func (n Node) MarshalJSON() ([]byte, error) {
	type alias Node
	out := alias(n)
	out.Props = emptyIfNil(out.Props)
	return json.Marshal(out)
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(n.Type) == "" {
		return ErrEmptyType
	}
	return validateProps(n.Props)
}

// HasProp reports whether any prop carries the given key.
func (n *Node) HasProp(key string) bool {
	for _, p := range n.Props {
		if p.Key == key {
			return true
		}
	}
	return false
}

func validateProps(props []KV) error {
	for _, p := range props {
		if strings.TrimSpace(p.Key) == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
