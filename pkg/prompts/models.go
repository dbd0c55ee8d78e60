package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Version identifies the prompt set. Bump it whenever the wording changes so
// usage records and diagnostics can be correlated with prompt revisions.
const Version = "graph-extract-2"

// Mode is the prompt variant used for an extraction attempt.
type Mode string

const (
	// ModeStrict forbids a fully empty answer. Used for the first attempt.
	ModeStrict Mode = "strict"
	// ModeNudge permits low-confidence candidates. Used for retries.
	ModeNudge Mode = "nudge"
)

// ModeForAttempt returns the mode for a 1-based attempt number.
func ModeForAttempt(attempt int) Mode {
	if attempt <= 1 {
		return ModeStrict
	}
	return ModeNudge
}

// PromptFunction builds the messages of a prompt from its variables.
type PromptFunction func(vars map[string]any) ([]types.Message, error)

// PromptVersion is a callable prompt.
type PromptVersion interface {
	Call(vars map[string]any) ([]types.Message, error)
}

// promptVersionImpl implements PromptVersion.
type promptVersionImpl struct {
	fn PromptFunction
}

// Call executes the prompt function with the given variables.
func (p *promptVersionImpl) Call(vars map[string]any) ([]types.Message, error) {
	messages, err := p.fn(vars)
	if err != nil {
		return nil, err
	}

	// Non-Latin source text must come back verbatim, not as \u escapes.
	for i, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			messages[i].Content += "\nDo not escape unicode characters."
		}
	}
	return messages, nil
}

// NewPromptVersion creates a new PromptVersion from a function.
func NewPromptVersion(fn PromptFunction) PromptVersion {
	return &promptVersionImpl{fn: fn}
}

// ToPromptJSON serializes data for embedding in a prompt. HTML characters
// and non-ASCII text are left unescaped.
func ToPromptJSON(data any, indent int) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func stringVar(vars map[string]any, key string) (string, error) {
	v, ok := vars[key]
	if !ok {
		return "", fmt.Errorf("prompt variable %q is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("prompt variable %q must be a string, got %T", key, v)
	}
	return s, nil
}
