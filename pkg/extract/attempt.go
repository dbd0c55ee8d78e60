package extract

import (
	"context"
	"log/slog"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/graph"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/prompts"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/schema"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// AttemptResult is the outcome of one successful extraction or repair call.
type AttemptResult struct {
	Graph         *types.Graph
	ProviderLabel string
	RawText       string
}

// Attempter runs single extraction and repair calls against one provider.
type Attempter struct {
	client    nlp.Client
	caps      *nlp.CapabilityRegistry
	validator *schema.Validator
	prompts   prompts.GraphExtractPrompt
	logger    *slog.Logger
}

// NewAttempter creates an Attempter. A nil registry uses the built-in
// provider capabilities.
func NewAttempter(client nlp.Client, caps *nlp.CapabilityRegistry, validator *schema.Validator, logger *slog.Logger) *Attempter {
	if caps == nil {
		caps = nlp.NewCapabilityRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Attempter{
		client:    client,
		caps:      caps,
		validator: validator,
		prompts:   prompts.NewGraphExtractVersions(),
		logger:    logger,
	}
}

// Attempt extracts a graph from text with the prompt variant of mode. With
// strict set the graph is pruned and validated against the schema.
func (a *Attempter) Attempt(ctx context.Context, providerID string, mode prompts.Mode, text string, strict bool) (*AttemptResult, error) {
	messages, err := a.prompts.Extract().Call(map[string]any{"context": text, "mode": mode})
	if err != nil {
		return nil, &AttemptError{Provider: providerID, Err: err}
	}
	return a.call(ctx, providerID, messages, strict)
}

// Repair asks providerID to turn a failed attempt into schema-conforming
// JSON. brokenOutput describes the failure, usually from prompts.RepairPayload.
func (a *Attempter) Repair(ctx context.Context, providerID, brokenOutput string, strict bool) (*AttemptResult, error) {
	messages, err := a.prompts.Repair().Call(map[string]any{
		"schema":     a.validator.Raw(),
		"llm_output": brokenOutput,
	})
	if err != nil {
		return nil, &AttemptError{Provider: providerID, Err: err}
	}
	return a.call(ctx, providerID, messages, strict)
}

func (a *Attempter) call(ctx context.Context, providerID string, messages []types.Message, strict bool) (*AttemptResult, error) {
	req := &types.ChatRequest{
		Model:          providerID,
		Messages:       messages,
		Temperature:    types.Float32(0),
		ResponseFormat: a.caps.Lookup(providerID).ResponseFormatFor(a.validator.Raw()),
	}

	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return nil, &AttemptError{Provider: providerID, Err: err}
	}

	label := resp.Model
	if label == "" {
		label = providerID
	}

	g, err := a.decode(resp.Content, strict)
	if err != nil {
		return nil, &AttemptError{Provider: label, Raw: resp.Content, Err: err}
	}
	return &AttemptResult{Graph: g, ProviderLabel: label, RawText: resp.Content}, nil
}

// decode parses, normalizes and, when strict, prunes and validates a raw
// model answer.
func (a *Attempter) decode(content string, strict bool) (*types.Graph, error) {
	raw, err := graph.ParseResponse(content)
	if err != nil {
		return nil, err
	}

	g := graph.Normalize(raw)
	if !strict {
		return g, nil
	}

	g = graph.Prune(g)
	if err := a.validator.Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}
