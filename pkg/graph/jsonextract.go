package graph

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// Reasons carried by ParseError.
const (
	ReasonNoJSONObject   = "no_json_object_found"
	ReasonInvalidPayload = "invalid_json_payload"
)

var (
	fenceRe = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ParseError reports that no JSON object could be recovered from a
// provider's raw text.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseResponse turns a provider's raw text into a JSON value. The whole
// text is tried as strict JSON first; then a JSON object is recovered from
// fenced or surrounded text; finally a truncated or slightly malformed object
// is repaired locally.
func ParseResponse(text string) (json.RawMessage, error) {
	t := strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
	if t != "" && json.Valid([]byte(t)) {
		return json.RawMessage(t), nil
	}

	obj, err := ExtractJSONObject(t)
	if err == nil {
		return obj, nil
	}

	if repaired, ok := repairObject(t); ok {
		return repaired, nil
	}
	return nil, err
}

// ExtractJSONObject recovers the JSON object embedded in text:
//
//  1. code fences (with or without a language tag) are stripped
//  2. the span from the first '{' to the last '}' is parsed
//  3. failing that, a brace-balance scan from the first '{' parses the
//     leading balanced object, dropping whatever trails it
func ExtractJSONObject(text string) (json.RawMessage, error) {
	t := stripFences(text)

	start := strings.IndexByte(t, '{')
	end := strings.LastIndexByte(t, '}')
	if start == -1 || end == -1 || end <= start {
		return nil, &ParseError{Reason: ReasonNoJSONObject}
	}

	snippet := t[start : end+1]
	if json.Valid([]byte(snippet)) {
		return json.RawMessage(snippet), nil
	}

	candidate, ok := leadingBalanced(t[start:])
	if !ok {
		return nil, &ParseError{Reason: ReasonInvalidPayload}
	}
	var probe any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, &ParseError{Reason: ReasonInvalidPayload, Err: err}
	}
	return json.RawMessage(candidate), nil
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(fenceRe.ReplaceAllString(t, ""))
	}
	return t
}

// leadingBalanced returns the prefix of s (which starts with '{') that ends
// where brace depth first returns to zero. Braces inside string literals are
// ignored.
func leadingBalanced(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// repairObject runs jsonrepair over the text from its first '{' and accepts
// the result only when it is a JSON object.
func repairObject(text string) (json.RawMessage, bool) {
	t := stripFences(text)
	start := strings.IndexByte(t, '{')
	if start == -1 {
		return nil, false
	}

	repaired, err := jsonrepair.JSONRepair(t[start:])
	if err != nil {
		return nil, false
	}
	repaired = strings.TrimSpace(repaired)
	if leadingByte([]byte(repaired)) != '{' || !json.Valid([]byte(repaired)) {
		return nil, false
	}
	return json.RawMessage(repaired), true
}
