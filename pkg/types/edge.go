package types

import (
	"encoding/json"
	"strings"
)

// DefaultEdgeType is used when a model omits the relationship type.
const DefaultEdgeType = "RELATED_TO"

// Edge is a directed relationship between two node ids. Edges are not
// deduplicated; the same (src, dst, type) may appear more than once.
type Edge struct {
	Src   string `json:"src"`
	Dst   string `json:"dst"`
	Type  string `json:"type"`
	Props []KV   `json:"props"`
}

// MarshalJSON renders nil props as an empty array.
func (e Edge) MarshalJSON() ([]byte, error) {
	type alias Edge
	out := alias(e)
	out.Props = emptyIfNil(out.Props)
	return json.Marshal(out)
}

// Validate checks if the Edge has all required fields set.
func (e *Edge) Validate() error {
	if strings.TrimSpace(e.Src) == "" {
		return ErrEmptySrc
	}
	if strings.TrimSpace(e.Dst) == "" {
		return ErrEmptyDst
	}
	if strings.TrimSpace(e.Type) == "" {
		return ErrEmptyType
	}
	return validateProps(e.Props)
}
