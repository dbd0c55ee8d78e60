package nlp

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// ResponseFormatSupport is the structured output mode a provider accepts.
type ResponseFormatSupport string

const (
	// FormatJSONObject accepts the json_object hint.
	FormatJSONObject ResponseFormatSupport = "json_object"
	// FormatJSONSchema accepts a full json_schema response format.
	FormatJSONSchema ResponseFormatSupport = "json_schema"
	// FormatNone rejects or ignores response format hints.
	FormatNone ResponseFormatSupport = "none"
)

// Capabilities describes what a provider id supports.
type Capabilities struct {
	ResponseFormat ResponseFormatSupport
}

// GraphSchemaName is the json_schema name used for graph output.
const GraphSchemaName = "graph"

// ResponseFormatFor returns the response format to send under these
// capabilities, or nil when none should be sent.
func (c Capabilities) ResponseFormatFor(schema json.RawMessage) *types.ResponseFormat {
	switch c.ResponseFormat {
	case FormatJSONObject:
		return &types.ResponseFormat{Type: types.ResponseFormatJSONObject}
	case FormatJSONSchema:
		if len(schema) == 0 {
			return &types.ResponseFormat{Type: types.ResponseFormatJSONObject}
		}
		return &types.ResponseFormat{
			Type:   types.ResponseFormatJSONSchema,
			Name:   GraphSchemaName,
			Schema: schema,
			Strict: true,
		}
	default:
		return nil
	}
}

// CapabilityRegistry resolves provider ids to capabilities. Exact ids win
// over prefixes and longer prefixes win over shorter ones.
type CapabilityRegistry struct {
	mu       sync.RWMutex
	exact    map[string]Capabilities
	prefixes map[string]Capabilities
	fallback Capabilities
}

// NewCapabilityRegistry returns a registry with the built-in providers:
// graph extractors accept json_object except the Gemini one, which accepts
// no hint at all.
func NewCapabilityRegistry() *CapabilityRegistry {
	r := &CapabilityRegistry{
		exact:    make(map[string]Capabilities),
		prefixes: make(map[string]Capabilities),
		fallback: Capabilities{ResponseFormat: FormatJSONObject},
	}
	r.RegisterPrefix("graph-extractor", Capabilities{ResponseFormat: FormatJSONObject})
	r.Register("graph-extractor-gemini", Capabilities{ResponseFormat: FormatNone})
	return r
}

// Register sets the capabilities of one provider id.
func (r *CapabilityRegistry) Register(id string, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[id] = caps
}

// RegisterPrefix sets the capabilities of every id starting with prefix.
func (r *CapabilityRegistry) RegisterPrefix(prefix string, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes[prefix] = caps
}

// Apply registers the provider overrides from configuration.
func (r *CapabilityRegistry) Apply(providers map[string]config.ProviderConfig) {
	for id, p := range providers {
		if p.ResponseFormat == "" {
			continue
		}
		r.Register(id, Capabilities{ResponseFormat: ResponseFormatSupport(p.ResponseFormat)})
	}
}

// Lookup returns the capabilities of id.
func (r *CapabilityRegistry) Lookup(id string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if caps, ok := r.exact[id]; ok {
		return caps
	}

	prefixes := make([]string, 0, len(r.prefixes))
	for p := range r.prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if strings.HasPrefix(id, p) {
			return r.prefixes[p]
		}
	}
	return r.fallback
}
