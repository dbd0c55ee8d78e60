package nlp

import (
	"errors"
	"fmt"
	"net/http"
)

// Common LLM client errors
var (
	// ErrEmptyResponse indicates the upstream returned no choices
	ErrEmptyResponse = errors.New("the LLM returned an empty response")
)

// RateLimitError signals that the upstream (or the token budget) refused the
// call with "too many requests". It is the only error the rate limit retry
// acts on.
type RateLimitError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded. Please try again later"
	}
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for RateLimitError.
// This allows errors.Is(err, &RateLimitError{}) to work with wrapped errors.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new rate limit error with optional custom message
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{StatusCode: http.StatusTooManyRequests}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// StatusError is an upstream HTTP failure other than rate limiting.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the status is a server side failure worth
// retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// NewStatusError maps an HTTP status to RateLimitError or StatusError.
func NewStatusError(status int, message string, cause error) error {
	if status == http.StatusTooManyRequests {
		return &RateLimitError{StatusCode: status, Message: message, Err: cause}
	}
	return &StatusError{StatusCode: status, Message: message, Err: cause}
}

// IsRateLimit reports whether err carries a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
