package nlp

import (
	"context"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Client defines the interface for language model calls. One call is one
// request/response pair against one provider id.
//
// Implementations may resolve req.Model to a different provider than the one
// requested. Response.Model is the label of what actually ran and callers
// must treat it, not req.Model, as the provenance of the answer.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error)

	// Close cleans up any resources.
	Close() error
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req *types.ChatRequest) (*types.Response, error)

// Chat calls f.
func (f ClientFunc) Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error) {
	return f(ctx, req)
}

// Close is a no-op.
func (f ClientFunc) Close() error {
	return nil
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{
		Role:    role,
		Content: content,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) types.Message {
	return NewMessage(RoleAssistant, content)
}
