package dto

import (
	"fmt"
	"strings"
	"time"

	freeroute "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/extract"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// GraphExtractRequest is the body of POST /graph/extract. Strict and
// RepairIfInvalid default to true; nil thresholds take the server defaults.
type GraphExtractRequest struct {
	Context         string   `json:"context"`
	Strict          *bool    `json:"strict"`
	RepairIfInvalid *bool    `json:"repair_if_invalid"`
	MinNodes        *int     `json:"min_nodes"`
	MinEdges        *int     `json:"min_edges"`
	AllowEmpty      *bool    `json:"allow_empty"`
	MaxAttempts     *int     `json:"max_attempts"`
	ProviderChain   []string `json:"provider_chain"`
}

// Validate checks limits the orchestrator does not.
func (r *GraphExtractRequest) Validate() error {
	if len(r.Context) > MaxContentLength {
		return ErrContentTooLong
	}
	if len(r.ProviderChain) > MaxProviderChain {
		return ErrChainTooLong
	}
	return nil
}

// ToRequest converts to an extraction request.
func (r *GraphExtractRequest) ToRequest() *extract.Request {
	return &extract.Request{
		Context:         r.Context,
		Strict:          boolOr(r.Strict, true),
		RepairIfInvalid: boolOr(r.RepairIfInvalid, true),
		MinNodes:        r.MinNodes,
		MinEdges:        r.MinEdges,
		AllowEmpty:      r.AllowEmpty,
		MaxAttempts:     r.MaxAttempts,
		ProviderChain:   r.ProviderChain,
	}
}

// GraphExtractResponse is an accepted extraction.
type GraphExtractResponse struct {
	OK         bool         `json:"ok"`
	Data       *types.Graph `json:"data"`
	Provider   string       `json:"provider"`
	SchemaHash string       `json:"schema_hash"`
}

// GraphProbeRequest is the body of POST /graph/probe.
type GraphProbeRequest struct {
	Model       string    `json:"model" binding:"required"`
	StrictJSON  bool      `json:"strict_json"`
	Temperature float32   `json:"temperature" binding:"min=0,max=2"`
	Timeout     int       `json:"timeout" binding:"omitempty,min=1"` // in seconds
	Messages    []Message `json:"messages" binding:"omitempty,dive"`
}

// Validate performs validation on GraphProbeRequest
func (r *GraphProbeRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if r.Timeout > MaxProbeTimeoutS {
		return fmt.Errorf("timeout exceeds maximum (%ds)", MaxProbeTimeoutS)
	}
	if len(r.Messages) > MaxMessagesCount {
		return ErrTooManyMessages
	}
	for i := range r.Messages {
		if err := r.Messages[i].Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

// ToRequest converts to a gateway probe.
func (r *GraphProbeRequest) ToRequest() *freeroute.ProbeRequest {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeS
	}
	var messages []types.Message
	for _, m := range r.Messages {
		messages = append(messages, types.Message{Role: types.Role(strings.ToLower(m.Role)), Content: m.Content})
	}
	return &freeroute.ProbeRequest{
		Model:       r.Model,
		StrictJSON:  r.StrictJSON,
		Temperature: r.Temperature,
		Timeout:     time.Duration(timeout) * time.Second,
		Messages:    messages,
	}
}

// GraphUpsertRequest is the body of POST /graph/upsert.
type GraphUpsertRequest struct {
	Data *types.Graph `json:"data" binding:"required"`
}

// Validate checks the graph's structural invariants.
func (r *GraphUpsertRequest) Validate() error {
	if r.Data == nil {
		return fmt.Errorf("data is required")
	}
	return r.Data.Validate()
}

// GraphUpsertResponse reports what was written.
type GraphUpsertResponse struct {
	OK    bool `json:"ok"`
	Nodes int  `json:"nodes"`
	Edges int  `json:"edges"`
}

// GraphQueryRequest is the body of POST /graph/query.
type GraphQueryRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

// Validate performs validation on GraphQueryRequest
func (r *GraphQueryRequest) Validate() error {
	if len(r.Query) > MaxQueryLength {
		return fmt.Errorf("query exceeds maximum length (%d)", MaxQueryLength)
	}
	return nil
}

// GraphQueryResponse carries one map per record.
type GraphQueryResponse struct {
	OK      bool             `json:"ok"`
	Records []map[string]any `json:"records"`
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
