// Package schema loads the JSON Schema contract every extracted graph is
// validated against.
//
// The schema is read once at startup. Load refuses a file that is not a
// usable graph contract, and callers are expected to treat that as fatal:
// validating against a wrong or absent contract is worse than not starting.
package schema

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

//go:embed graph_schema.json
var defaultSchema []byte

// LoadError is returned when the schema file cannot serve as the graph contract.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("graph schema %s invalid: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError lists every way a graph violates the schema.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Details, "; ")
}

// Validator validates graphs against a compiled schema. It is immutable and
// safe for concurrent use.
type Validator struct {
	raw      []byte
	hash     string
	compiled *gojsonschema.Schema
}

// Load reads and checks the schema at path.
func Load(path string) (*Validator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "unreadable", Err: err}
	}
	return newValidator(path, raw)
}

// New builds a validator from schema bytes.
func New(raw []byte) (*Validator, error) {
	return newValidator("<inline>", raw)
}

// Default returns a validator for the built-in graph schema.
func Default() *Validator {
	v, err := New(defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("built-in graph schema: %v", err))
	}
	return v
}

func newValidator(path string, raw []byte) (*Validator, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Path: path, Reason: "not a JSON object", Err: err}
	}
	if err := checkContract(doc); err != "" {
		return nil, &LoadError{Path: path, Reason: err}
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "not a valid JSON Schema", Err: err}
	}

	sum := sha256.Sum256(raw)
	return &Validator{
		raw:      raw,
		hash:     hex.EncodeToString(sum[:]),
		compiled: compiled,
	}, nil
}

// checkContract returns a reason when doc is not a graph contract.
func checkContract(doc map[string]any) string {
	if t, _ := doc["type"].(string); t != "object" {
		return `top-level "type" must be "object"`
	}

	props, ok := doc["properties"].(map[string]any)
	if !ok {
		return `missing "properties"`
	}
	for _, key := range []string{"nodes", "edges"} {
		if _, ok := props[key]; !ok {
			return fmt.Sprintf("missing properties.%s", key)
		}
	}

	required, ok := doc["required"].([]any)
	if !ok {
		return `missing "required"`
	}
	for _, key := range []string{"nodes", "edges"} {
		if !slices.Contains(required, any(key)) {
			return fmt.Sprintf(`"required" must include %q`, key)
		}
	}
	return ""
}

// Hash returns the hex sha256 of the schema bytes, so callers can detect
// contract drift between deployments.
func (v *Validator) Hash() string {
	return v.hash
}

// Raw returns the schema document.
func (v *Validator) Raw() json.RawMessage {
	return json.RawMessage(v.raw)
}

// Validate checks g against the schema.
func (v *Validator) Validate(g *types.Graph) error {
	if g == nil {
		g = types.NewGraph()
	}
	doc, err := json.Marshal(g)
	if err != nil {
		return &ValidationError{Details: []string{fmt.Sprintf("graph not serializable: %v", err)}}
	}
	return v.ValidateDocument(doc)
}

// ValidateDocument checks an arbitrary JSON document against the schema.
func (v *Validator) ValidateDocument(doc []byte) error {
	result, err := v.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationError{Details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &ValidationError{Details: details}
}
