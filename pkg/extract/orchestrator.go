package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/prompts"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// Request is one extraction. Nil thresholds and an empty chain take the
// orchestrator defaults.
type Request struct {
	Context         string
	Strict          bool
	RepairIfInvalid bool
	MinNodes        *int
	MinEdges        *int
	AllowEmpty      *bool
	MaxAttempts     *int
	ProviderChain   []string
}

// Result is an accepted graph with its provenance.
type Result struct {
	Graph      *types.Graph `json:"data"`
	Provider   string       `json:"provider"`
	SchemaHash string       `json:"schema_hash"`
}

// Defaults are the thresholds and chain used when a request leaves them out.
type Defaults struct {
	MinNodes      int      `json:"min_nodes"`
	MinEdges      int      `json:"min_edges"`
	AllowEmpty    bool     `json:"allow_empty"`
	MaxAttempts   int      `json:"max_attempts"`
	ProviderChain []string `json:"provider_chain"`
}

// DefaultsFromConfig reads the extraction defaults from the graph section.
func DefaultsFromConfig(cfg config.GraphConfig) Defaults {
	return Defaults{
		MinNodes:      cfg.MinNodes,
		MinEdges:      cfg.MinEdges,
		AllowEmpty:    cfg.AllowEmpty,
		MaxAttempts:   cfg.MaxAttempts,
		ProviderChain: cfg.ProviderChain,
	}
}

// plan is a request with every default resolved.
type plan struct {
	text        string
	strict      bool
	repair      bool
	minNodes    int
	minEdges    int
	allowEmpty  bool
	maxAttempts int
	chain       []string
}

// accepts applies the single error node veto and the thresholds.
func (p *plan) accepts(g *types.Graph) (bool, string) {
	if g.IsSingleErrorNode() {
		return false, "single_error_node"
	}
	nodes, edges := g.NodeCount(), g.EdgeCount()
	if p.allowEmpty || (nodes >= p.minNodes && edges >= p.minEdges) {
		return true, ""
	}
	return false, fmt.Sprintf("below_threshold (nodes=%d, edges=%d)", nodes, edges)
}

// Orchestrator runs extraction requests across a provider chain.
type Orchestrator struct {
	attempter  *Attempter
	strategy   Strategy
	defaults   Defaults
	schemaHash string
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil strategy runs providers
// sequentially.
func NewOrchestrator(attempter *Attempter, strategy Strategy, defaults Defaults, logger *slog.Logger) *Orchestrator {
	if strategy == nil {
		strategy = Sequential{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		attempter:  attempter,
		strategy:   strategy,
		defaults:   defaults,
		schemaHash: attempter.validator.Hash(),
		logger:     logger,
	}
}

// SchemaHash returns the hash of the schema results are validated against.
func (o *Orchestrator) SchemaHash() string {
	return o.schemaHash
}

// Extract runs req and returns the first acceptable graph. It fails with a
// *ValidationError for malformed input, with *ExhaustedError when the chain
// is spent, or with the context error when ctx ends first.
func (o *Orchestrator) Extract(ctx context.Context, req *Request) (*Result, error) {
	p, err := o.resolve(req)
	if err != nil {
		return nil, err
	}

	result, records, err := o.strategy.Run(ctx, p.chain, func(ctx context.Context, provider string) (*Result, []AttemptRecord, error) {
		return o.runProvider(ctx, p, provider)
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		o.logger.InfoContext(ctx, "graph accepted", "event", "graph.extract.accepted",
			"provider", result.Provider, "nodes", result.Graph.NodeCount(), "edges", result.Graph.EdgeCount())
		return result, nil
	}

	o.logger.ErrorContext(ctx, "all providers exhausted", "event", "graph.extract.exhausted",
		"attempts", len(records), "providers", strings.Join(p.chain, ","))
	return nil, &ExhaustedError{
		Message:       "All providers failed to produce a graph that meets the thresholds",
		MinNodes:      p.minNodes,
		MinEdges:      p.minEdges,
		AllowEmpty:    p.allowEmpty,
		MaxAttempts:   p.maxAttempts,
		ProviderChain: p.chain,
		Attempts:      lastAttempts(records),
		SchemaHash:    o.schemaHash,
	}
}

func (o *Orchestrator) resolve(req *Request) (*plan, error) {
	if req == nil || strings.TrimSpace(req.Context) == "" {
		return nil, &ValidationError{Field: "context", Message: "must not be empty"}
	}

	p := &plan{
		text:        req.Context,
		strict:      req.Strict,
		repair:      req.RepairIfInvalid,
		minNodes:    o.defaults.MinNodes,
		minEdges:    o.defaults.MinEdges,
		allowEmpty:  o.defaults.AllowEmpty,
		maxAttempts: o.defaults.MaxAttempts,
		chain:       o.defaults.ProviderChain,
	}
	if req.MinNodes != nil {
		p.minNodes = *req.MinNodes
	}
	if req.MinEdges != nil {
		p.minEdges = *req.MinEdges
	}
	if req.AllowEmpty != nil {
		p.allowEmpty = *req.AllowEmpty
	}
	if req.MaxAttempts != nil {
		p.maxAttempts = *req.MaxAttempts
	}
	if len(req.ProviderChain) > 0 {
		p.chain = req.ProviderChain
	}

	switch {
	case p.minNodes < 0:
		return nil, &ValidationError{Field: "min_nodes", Message: "must not be negative"}
	case p.minEdges < 0:
		return nil, &ValidationError{Field: "min_edges", Message: "must not be negative"}
	case p.maxAttempts < 1:
		return nil, &ValidationError{Field: "max_attempts", Message: "must be at least 1"}
	case len(p.chain) == 0:
		return nil, &ValidationError{Field: "provider_chain", Message: "must name at least one provider"}
	}
	for _, provider := range p.chain {
		if strings.TrimSpace(provider) == "" {
			return nil, &ValidationError{Field: "provider_chain", Message: "contains an empty provider id"}
		}
	}
	return p, nil
}

// runProvider walks the attempts of one provider. It returns a result on
// acceptance, otherwise the diagnostics of every attempt. The error is only
// set when ctx ends.
func (o *Orchestrator) runProvider(ctx context.Context, p *plan, provider string) (*Result, []AttemptRecord, error) {
	log := o.logger.With("provider", provider)
	log.InfoContext(ctx, "trying provider", "event", "graph.extract.try")

	var records []AttemptRecord
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, records, err
		}
		mode := prompts.ModeForAttempt(attempt)

		res, err := o.attempter.Attempt(ctx, provider, mode, p.text, p.strict)
		if err == nil {
			log.InfoContext(ctx, "attempt finished", "event", "graph.extract.attempt",
				"attempt", attempt, "mode", mode, "label", res.ProviderLabel,
				"nodes", res.Graph.NodeCount(), "edges", res.Graph.EdgeCount())

			ok, reason := p.accepts(res.Graph)
			if ok {
				return o.result(res), records, nil
			}
			if res.Graph.IsSingleErrorNode() {
				log.WarnContext(ctx, "single error node produced", "event", "graph.extract.error_node",
					"attempt", attempt, "mode", mode)
			}
			records = append(records, AttemptRecord{
				Provider: res.ProviderLabel, Attempt: attempt, Mode: mode, Reason: reason,
			})
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, records, ctxErr
		}
		log.WarnContext(ctx, "attempt failed", "event", "graph.extract.failed",
			"attempt", attempt, "mode", mode, "error", err)

		if !p.repair {
			records = append(records, AttemptRecord{
				Provider: provider, Attempt: attempt, Mode: mode, Error: describeError(err),
			})
			continue
		}

		result, record, err := o.repair(ctx, p, provider, attempt, mode, err)
		if err != nil {
			return nil, records, err
		}
		if result != nil {
			return result, records, nil
		}
		records = append(records, record)
	}

	log.InfoContext(ctx, "provider exhausted", "event", "graph.extract.provider_exhausted",
		"attempts", len(records))
	return nil, records, nil
}

// repair escalates a failed attempt to a repair call. The returned error is
// only set when ctx ends.
func (o *Orchestrator) repair(ctx context.Context, p *plan, provider string, attempt int, mode prompts.Mode, failure error) (*Result, AttemptRecord, error) {
	record := AttemptRecord{Provider: provider, Attempt: attempt, Repair: true, Mode: mode}

	var raw string
	var attemptErr *AttemptError
	if errors.As(failure, &attemptErr) {
		raw = attemptErr.Raw
	}

	res, err := o.attempter.Repair(ctx, provider, prompts.RepairPayload(failure, raw), p.strict)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, record, ctxErr
		}
		o.logger.WarnContext(ctx, "repair failed", "event", "graph.extract.repair_failed",
			"provider", provider, "attempt", attempt, "error", err)
		record.Error = describeError(err)
		return nil, record, nil
	}

	record.Provider = res.ProviderLabel
	ok, reason := p.accepts(res.Graph)
	if ok {
		o.logger.InfoContext(ctx, "repair accepted", "event", "graph.extract.repaired",
			"provider", provider, "label", res.ProviderLabel, "attempt", attempt)
		return o.result(res), record, nil
	}
	record.Reason = reason
	return nil, record, nil
}

func (o *Orchestrator) result(res *AttemptResult) *Result {
	return &Result{
		Graph:      res.Graph,
		Provider:   res.ProviderLabel,
		SchemaHash: o.schemaHash,
	}
}
