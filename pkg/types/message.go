package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is the author of a chat message.
type Role string

// Message is one entry of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormatType selects how a provider is asked to shape its output.
type ResponseFormatType string

const (
	// ResponseFormatJSONObject asks for any syntactically valid JSON object.
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	// ResponseFormatJSONSchema asks for output constrained by a JSON Schema.
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat is the optional structured-output hint of a ChatRequest.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name,omitempty"`
	Schema json.RawMessage    `json:"schema,omitempty"`
	Strict bool               `json:"strict,omitempty"`
}

// ChatRequest is one request to one provider. Model is the provider id or
// entrypoint alias; the provider layer may resolve it to something else.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	// Timeout bounds this single call. Zero leaves it to the transport.
	Timeout time.Duration `json:"-"`
}

// Clone returns a copy that can be modified without touching the original
// messages, temperature or response format.
func (r *ChatRequest) Clone() *ChatRequest {
	out := *r
	out.Messages = append([]Message(nil), r.Messages...)
	if r.Temperature != nil {
		t := *r.Temperature
		out.Temperature = &t
	}
	if r.ResponseFormat != nil {
		rf := *r.ResponseFormat
		out.ResponseFormat = &rf
	}
	return &out
}

// MentionsJSON reports whether any message content mentions JSON.
func (r *ChatRequest) MentionsJSON() bool {
	for _, m := range r.Messages {
		if strings.Contains(strings.ToLower(m.Content), "json") {
			return true
		}
	}
	return false
}

// TokenUsage is the token accounting reported by a provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Total returns TotalTokens, or the sum of its parts when the provider
// left the total out.
func (u *TokenUsage) Total() int {
	if u == nil {
		return 0
	}
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// Response is the answer to a ChatRequest. Model is the label of the
// provider that actually ran, which can differ from the requested one.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model"`
	FinishReason string      `json:"finish_reason,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// Float32 returns a pointer to v, for optional temperature fields.
func Float32(v float32) *float32 {
	return &v
}
