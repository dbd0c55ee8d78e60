package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyRole       = errors.New("role cannot be empty")
	ErrInvalidRole     = errors.New("invalid role: must be user, assistant, or system")
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrContentTooLong  = errors.New("content exceeds maximum length (1MB)")
	ErrTooManyMessages = errors.New("too many messages (max 100)")
	ErrChainTooLong    = errors.New("provider_chain exceeds maximum length (16)")
)

// Maximum field lengths
const (
	MaxContentLength  = 1024 * 1024 // 1MB
	MaxMessagesCount  = 100
	MaxProviderChain  = 16
	MaxQueryLength    = 64 * 1024
	MaxProbeTimeoutS  = 600
	DefaultProbeTimeS = 60
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ValidRoles defines acceptable message roles
var ValidRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// Validate performs validation on Message
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Role) == "" {
		return ErrEmptyRole
	}
	if !ValidRoles[strings.ToLower(m.Role)] {
		return ErrInvalidRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if len(m.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// ErrorResponse is the body of every error reply. Detail is a string for
// simple failures and an object for extraction failures.
type ErrorResponse struct {
	Detail any `json:"detail"`
}
