package nlp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/budget"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// graphJSONInstruction is prepended to graph entrypoint calls whose messages
// never mention JSON, since json_schema providers reject such prompts.
const graphJSONInstruction = "Output JSON only, conforming to the JSON Schema, with no prose or Markdown."

// BudgetGate enforces the daily token cap on metered models. Before a call
// it reroutes exhausted entrypoints to free fallbacks and constrains graph
// entrypoints to the graph schema; after a call it charges the tokens spent
// by OpenAI models to the day's counters.
//
// Counter store failures never fail a call. The gate then behaves as if the
// budget were not exhausted.
type BudgetGate struct {
	client  Client
	meter   *budget.Meter
	schema  json.RawMessage
	counter TokenCounter
	logger  *slog.Logger
}

// NewBudgetGate wraps client. graphSchema is injected into graph entrypoint
// calls; counter estimates usage for responses that report none.
func NewBudgetGate(client Client, meter *budget.Meter, graphSchema json.RawMessage, counter TokenCounter, logger *slog.Logger) *BudgetGate {
	if counter == nil {
		counter = NewSimpleTokenCounter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetGate{
		client:  client,
		meter:   meter,
		schema:  graphSchema,
		counter: counter,
		logger:  logger,
	}
}

// Chat implements Client.
func (g *BudgetGate) Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error) {
	req, err := g.route(ctx, req)
	if err != nil {
		return nil, err
	}
	req = g.injectGraphSchema(ctx, req)

	resp, err := g.client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	g.charge(ctx, req, resp)
	return resp, nil
}

// Close implements Client.
func (g *BudgetGate) Close() error {
	return g.client.Close()
}

// route returns the request to send, possibly with a rerouted model, or a
// RateLimitError when an OpenAI model is over budget and may not reroute.
func (g *BudgetGate) route(ctx context.Context, req *types.ChatRequest) (*types.ChatRequest, error) {
	policy := g.meter.Policy()

	exhausted, err := g.meter.Exhausted(ctx, budget.CapGroupForRequest(req.Model))
	if err != nil {
		g.logger.WarnContext(ctx, "tpd check failed", "event", "budget.error", "model", req.Model, "error", err)
		return req, nil
	}
	if !exhausted {
		return req, nil
	}

	model := req.Model
	for hop := 0; hop < policy.MaxHops && g.needsReroute(model); hop++ {
		target := g.nextTarget(ctx, req, model)
		if target == "" || target == model {
			break
		}

		g.logger.InfoContext(ctx, "tpd reached, rerouting",
			"event", "budget.reroute", "from", model, "to", target, "hop", hop+1)
		model = target

		group := budget.CapGroupForRequest(model)
		if group == "" {
			break
		}
		exhausted, err := g.meter.Exhausted(ctx, group)
		if err != nil || !exhausted {
			break
		}
	}

	if budget.IsOpenAIModelName(model) && !policy.RerouteReal {
		return nil, NewRateLimitError("OpenAI daily token cap reached")
	}

	if model == req.Model {
		return req, nil
	}
	out := req.Clone()
	out.Model = model
	return out, nil
}

// nextTarget picks the next hop for an exhausted model. The pro answer
// entrypoint steps down to the mini one while the mini group has budget left.
func (g *BudgetGate) nextTarget(ctx context.Context, req *types.ChatRequest, model string) string {
	if !budget.IsMeteredEntrypoint(model) {
		if looksLikeGraphCall(req) {
			return budget.DefaultGraphReroute
		}
		return budget.DefaultChatReroute
	}

	target := budget.RerouteTarget(model)
	if model == budget.ProAnswerEntrypoint {
		exhausted, err := g.meter.Exhausted(ctx, budget.CapGroupForRequest(target))
		if err == nil && exhausted {
			return budget.DefaultChatReroute
		}
	}
	return target
}

func (g *BudgetGate) needsReroute(model string) bool {
	return budget.IsMeteredEntrypoint(model) ||
		(g.meter.Policy().RerouteReal && budget.IsOpenAIModelName(model))
}

// injectGraphSchema pins graph entrypoint calls to the graph schema at
// temperature zero. The returned request is a copy when anything changed.
func (g *BudgetGate) injectGraphSchema(ctx context.Context, req *types.ChatRequest) *types.ChatRequest {
	if !budget.IsGraphEntrypoint(req.Model) || len(g.schema) == 0 {
		return req
	}

	req = req.Clone()
	if req.ResponseFormat == nil {
		req.ResponseFormat = &types.ResponseFormat{
			Type:   types.ResponseFormatJSONSchema,
			Name:   GraphSchemaName,
			Schema: g.schema,
			Strict: true,
		}
	}
	req.Temperature = types.Float32(0)
	if !req.MentionsJSON() {
		req.Messages = append([]types.Message{NewSystemMessage(graphJSONInstruction)}, req.Messages...)
	}

	g.logger.DebugContext(ctx, "graph schema injected", "event", "budget.schema_inject", "model", req.Model)
	return req
}

func (g *BudgetGate) charge(ctx context.Context, req *types.ChatRequest, resp *types.Response) {
	if !budget.IsOpenAIModelName(resp.Model) {
		return
	}

	total := 0
	if resp.TokensUsed != nil {
		total = resp.TokensUsed.Total()
	}
	if total <= 0 {
		total = CountMessages(g.counter, req.Messages) + g.counter.CountTokens(resp.Content)
	}

	if err := g.meter.Record(ctx, resp.Model, int64(total)); err != nil {
		g.logger.WarnContext(ctx, "tpd record failed",
			"event", "budget.error", "model", resp.Model, "tokens", total, "error", err)
		return
	}
	g.logger.DebugContext(ctx, "tpd recorded", "event", "budget.record", "model", resp.Model, "tokens", total)
}

// looksLikeGraphCall reports whether req asks for a graph, either through a
// json_schema with nodes and edges or through its prompt text.
func looksLikeGraphCall(req *types.ChatRequest) bool {
	if rf := req.ResponseFormat; rf != nil && rf.Type == types.ResponseFormatJSONSchema && len(rf.Schema) > 0 {
		var doc struct {
			Properties map[string]json.RawMessage `json:"properties"`
		}
		if json.Unmarshal(rf.Schema, &doc) == nil {
			_, hasNodes := doc.Properties["nodes"]
			_, hasEdges := doc.Properties["edges"]
			if hasNodes && hasEdges {
				return true
			}
		}
	}

	var text strings.Builder
	for _, m := range req.Messages {
		text.WriteString(strings.ToLower(m.Content))
		text.WriteByte('\n')
	}
	s := text.String()
	return strings.Contains(s, "nodes") && strings.Contains(s, "edges")
}
