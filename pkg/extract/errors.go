package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/graph"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/prompts"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/schema"
)

// MaxRecordedAttempts bounds the diagnostic trail of an ExhaustedError.
const MaxRecordedAttempts = 50

// FailureCode is the error code of the exhaustion payload.
const FailureCode = "graph_extraction_failed"

// ValidationError reports a malformed extraction request. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AttemptError is a failed extraction or repair call. Raw holds the model
// output when the call got that far, for use in the repair payload.
type AttemptError struct {
	Provider string
	Raw      string
	Err      error
}

func (e *AttemptError) Error() string {
	return e.Err.Error()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// AttemptRecord is one entry of the diagnostic trail.
type AttemptRecord struct {
	Provider string
	Attempt  int
	Repair   bool
	Mode     prompts.Mode
	Reason   string
	Error    string
}

// MarshalJSON renders repair attempts as "N (repair)".
func (r AttemptRecord) MarshalJSON() ([]byte, error) {
	var attempt any = r.Attempt
	if r.Repair {
		attempt = strconv.Itoa(r.Attempt) + " (repair)"
	}
	return json.Marshal(struct {
		Provider string       `json:"provider"`
		Attempt  any          `json:"attempt"`
		Mode     prompts.Mode `json:"mode"`
		Reason   string       `json:"reason,omitempty"`
		Error    string       `json:"error,omitempty"`
	}{r.Provider, attempt, r.Mode, r.Reason, r.Error})
}

// ExhaustedError is returned when no provider in the chain produced an
// acceptable graph.
type ExhaustedError struct {
	Message       string
	MinNodes      int
	MinEdges      int
	AllowEmpty    bool
	MaxAttempts   int
	ProviderChain []string
	Attempts      []AttemptRecord
	SchemaHash    string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts across %d providers", e.Message, len(e.Attempts), len(e.ProviderChain))
}

// MarshalJSON renders the caller-visible failure payload.
func (e *ExhaustedError) MarshalJSON() ([]byte, error) {
	attempts := e.Attempts
	if attempts == nil {
		attempts = []AttemptRecord{}
	}
	return json.Marshal(struct {
		Error         string          `json:"error"`
		Message       string          `json:"message"`
		MinNodes      int             `json:"min_nodes"`
		MinEdges      int             `json:"min_edges"`
		AllowEmpty    bool            `json:"allow_empty"`
		MaxAttempts   int             `json:"max_attempts"`
		ProviderChain []string        `json:"provider_chain"`
		Attempts      []AttemptRecord `json:"attempts"`
		SchemaHash    string          `json:"schema_hash"`
	}{FailureCode, e.Message, e.MinNodes, e.MinEdges, e.AllowEmpty, e.MaxAttempts, e.ProviderChain, attempts, e.SchemaHash})
}

// lastAttempts keeps the most recent MaxRecordedAttempts records.
func lastAttempts(records []AttemptRecord) []AttemptRecord {
	if len(records) <= MaxRecordedAttempts {
		return records
	}
	return records[len(records)-MaxRecordedAttempts:]
}

// describeError renders err for the diagnostic trail as "Kind: message".
func describeError(err error) string {
	return errorKind(err) + ": " + err.Error()
}

func errorKind(err error) string {
	var (
		parseErr  *graph.ParseError
		schemaErr *schema.ValidationError
		rateErr   *nlp.RateLimitError
		statusErr *nlp.StatusError
	)
	switch {
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &schemaErr):
		return "SchemaValidationError"
	case errors.As(err, &rateErr):
		return "RateLimitError"
	case errors.As(err, &statusErr):
		return "UpstreamError"
	case errors.Is(err, nlp.ErrEmptyResponse):
		return "EmptyResponse"
	default:
		return "Error"
	}
}
