package freeroute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/prompts"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// DefaultProbeTimeout bounds a probe call when the request sets none.
const DefaultProbeTimeout = 60 * time.Second

// ProbeRequest is one raw provider call.
type ProbeRequest struct {
	Model       string
	StrictJSON  bool
	Temperature float32
	Timeout     time.Duration
	// Messages replaces the built-in sample conversation when set.
	Messages []types.Message
}

// ProbeResult reports what the provider answered. Mode is "json" for
// strict probes and "text" otherwise.
type ProbeResult struct {
	OK       bool           `json:"ok"`
	Mode     string         `json:"mode"`
	Data     map[string]any `json:"data,omitempty"`
	Text     string         `json:"text,omitempty"`
	Error    string         `json:"error,omitempty"`
	Raw      string         `json:"raw,omitempty"`
	Provider string         `json:"provider"`
}

// ProbeError is an upstream failure during a probe.
type ProbeError struct {
	Model string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe of %s failed: %v", e.Model, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Probe implements Gateway. A reply that is not a JSON object is reported
// in the result, not as an error; only upstream failures return one.
func (c *Client) Probe(ctx context.Context, req *ProbeRequest) (*ProbeResult, error) {
	chat := probeChatRequest(req)
	resp, err := c.llm.Chat(ctx, chat)
	if err != nil {
		c.logger.ErrorContext(ctx, "probe upstream error", "event", "graph.probe.error", "model", req.Model, "error", err)
		return nil, &ProbeError{Model: req.Model, Err: err}
	}
	return probeResult(req.StrictJSON, resp), nil
}

func probeChatRequest(req *ProbeRequest) *types.ChatRequest {
	messages := req.Messages
	if len(messages) == 0 {
		messages = prompts.ProbeMessages()
	}
	chat := &types.ChatRequest{
		Model:       req.Model,
		Messages:    append([]types.Message(nil), messages...),
		Temperature: types.Float32(req.Temperature),
		Timeout:     req.Timeout,
	}
	if chat.Timeout <= 0 {
		chat.Timeout = DefaultProbeTimeout
	}
	if req.StrictJSON {
		if !chat.MentionsJSON() {
			chat.Messages = append([]types.Message{nlp.NewSystemMessage(prompts.JSONOnlyInstruction)}, chat.Messages...)
		}
		chat.ResponseFormat = &types.ResponseFormat{Type: types.ResponseFormatJSONObject}
	}
	return chat
}

func probeResult(strict bool, resp *types.Response) *ProbeResult {
	if !strict {
		return &ProbeResult{OK: true, Mode: "text", Text: resp.Content, Provider: resp.Model}
	}

	out := &ProbeResult{Mode: "json", Provider: resp.Model}
	var data any
	if err := json.Unmarshal([]byte(resp.Content), &data); err != nil {
		out.Error = fmt.Sprintf("json_parse_error: %v", err)
		out.Raw = resp.Content
		return out
	}
	obj, ok := data.(map[string]any)
	if !ok {
		out.Error = "JSON not an object"
		out.Raw = resp.Content
		return out
	}
	out.OK = true
	out.Data = obj
	return out
}
