package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/budget"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

var testGraphSchema = json.RawMessage(`{"type":"object","properties":{"nodes":{},"edges":{}},"required":["nodes","edges"]}`)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) IncrBy(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Close() error { return nil }

func newGate(t *testing.T, cfg config.BudgetConfig, stub *scriptedClient) (*BudgetGate, *budget.Meter) {
	t.Helper()
	meter := budget.NewMeter(budget.NewMemoryStore(), budget.NewPolicy(cfg), nil)
	return NewBudgetGate(stub, meter, testGraphSchema, NewSimpleTokenCounter(), nil), meter
}

func TestBudgetGate_PassThroughUnderCap(t *testing.T) {
	stub := &scriptedClient{}
	gate, _ := newGate(t, config.BudgetConfig{DailyLimit: 1000, RerouteReal: true}, stub)

	req := userRequest("rag-answer", "what is acme?")
	resp, err := gate.Chat(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "rag-answer", resp.Model)
	assert.Same(t, req, stub.last())
}

func TestBudgetGate_InjectsGraphSchema(t *testing.T) {
	stub := &scriptedClient{}
	gate, _ := newGate(t, config.BudgetConfig{DailyLimit: 1000, RerouteReal: true}, stub)

	req := userRequest("graph-extractor", "Bob joined Acme; list nodes and edges.")
	_, err := gate.Chat(context.Background(), req)
	require.NoError(t, err)

	sent := stub.last()
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, types.ResponseFormatJSONSchema, sent.ResponseFormat.Type)
	assert.Equal(t, "graph", sent.ResponseFormat.Name)
	assert.True(t, sent.ResponseFormat.Strict)
	require.NotNil(t, sent.Temperature)
	assert.Equal(t, float32(0), *sent.Temperature)

	require.Len(t, sent.Messages, 2)
	assert.Equal(t, RoleSystem, sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[0].Content, "JSON")

	assert.Nil(t, req.ResponseFormat, "caller request untouched")
	assert.Len(t, req.Messages, 1)
}

func TestBudgetGate_InjectionKeepsExistingFormat(t *testing.T) {
	stub := &scriptedClient{}
	gate, _ := newGate(t, config.BudgetConfig{DailyLimit: 1000}, stub)

	req := userRequest("graph-extractor", "Return JSON.")
	req.ResponseFormat = &types.ResponseFormat{Type: types.ResponseFormatJSONObject}
	req.Temperature = types.Float32(0.7)
	_, err := gate.Chat(context.Background(), req)
	require.NoError(t, err)

	sent := stub.last()
	assert.Equal(t, types.ResponseFormatJSONObject, sent.ResponseFormat.Type)
	assert.Equal(t, float32(0), *sent.Temperature)
	assert.Len(t, sent.Messages, 1, "prompt already mentions JSON")
}

func TestBudgetGate_ReroutesExhaustedGraphEntrypoint(t *testing.T) {
	stub := &scriptedClient{}
	gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 100, RerouteReal: true}, stub)
	ctx := context.Background()
	require.NoError(t, meter.Record(ctx, "gpt-4o", 100))

	resp, err := gate.Chat(ctx, userRequest("graph-extractor", "extract nodes and edges"))
	require.NoError(t, err)

	assert.Equal(t, "graph-extractor-gemini", stub.last().Model)
	assert.Equal(t, "graph-extractor-gemini", resp.Model)
	assert.NotNil(t, stub.last().ResponseFormat, "fallback graph entrypoint is still constrained")
}

func TestBudgetGate_RealOpenAIModel(t *testing.T) {
	ctx := context.Background()

	t.Run("reroute allowed", func(t *testing.T) {
		stub := &scriptedClient{}
		gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 10, RerouteReal: true}, stub)
		require.NoError(t, meter.Record(ctx, "gpt-4o", 10))

		_, err := gate.Chat(ctx, userRequest("gpt-4o", "hello"))
		require.NoError(t, err)
		assert.Equal(t, budget.DefaultChatReroute, stub.last().Model)
	})

	t.Run("graph-shaped request", func(t *testing.T) {
		stub := &scriptedClient{}
		gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 10, RerouteReal: true}, stub)
		require.NoError(t, meter.Record(ctx, "gpt-4o", 10))

		req := userRequest("gpt-4o", "hello")
		req.ResponseFormat = &types.ResponseFormat{Type: types.ResponseFormatJSONSchema, Schema: testGraphSchema}
		_, err := gate.Chat(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, budget.DefaultGraphReroute, stub.last().Model)
	})

	t.Run("reroute refused", func(t *testing.T) {
		stub := &scriptedClient{}
		gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 10, RerouteReal: false}, stub)
		require.NoError(t, meter.Record(ctx, "gpt-4o", 10))

		_, err := gate.Chat(ctx, userRequest("gpt-4o", "hello"))
		require.Error(t, err)
		assert.True(t, IsRateLimit(err))
		assert.Contains(t, err.Error(), "OpenAI daily token cap reached")
		assert.Equal(t, 0, stub.calls())
	})
}

func TestBudgetGate_ProAnswerStepsDown(t *testing.T) {
	ctx := context.Background()
	cfg := config.BudgetConfig{
		DailyLimit:  1_000_000,
		GroupLimits: map[string]int64{"openai.gpt-5": 10, "openai.gpt-5-mini": 10},
		RerouteReal: true,
	}

	t.Run("mini has budget", func(t *testing.T) {
		stub := &scriptedClient{}
		gate, meter := newGate(t, cfg, stub)
		require.NoError(t, meter.Record(ctx, "gpt-5-2025-08-07", 10))

		_, err := gate.Chat(ctx, userRequest("rag-answer-pro", "q"))
		require.NoError(t, err)
		assert.Equal(t, "rag-answer", stub.last().Model)
	})

	t.Run("both exhausted", func(t *testing.T) {
		stub := &scriptedClient{}
		gate, meter := newGate(t, cfg, stub)
		require.NoError(t, meter.Record(ctx, "gpt-5-2025-08-07", 10))
		require.NoError(t, meter.Record(ctx, "gpt-5-mini-2025-08-07", 10))

		_, err := gate.Chat(ctx, userRequest("rag-answer-pro", "q"))
		require.NoError(t, err)
		assert.Equal(t, "rag-answer-gemini", stub.last().Model)
	})
}

func TestBudgetGate_RecordsOpenAIUsage(t *testing.T) {
	ctx := context.Background()
	stub := &scriptedClient{answer: func(_ int, req *types.ChatRequest) (*types.Response, error) {
		return &types.Response{
			Content:    "answer",
			Model:      "gpt-5-mini-2025-08-07",
			TokensUsed: &types.TokenUsage{PromptTokens: 30, CompletionTokens: 20},
		}, nil
	}}
	gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 1000}, stub)

	_, err := gate.Chat(ctx, userRequest("rag-answer", "q"))
	require.NoError(t, err)

	global, err := meter.Used(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(50), global)

	group, err := meter.Used(ctx, budget.GroupGPT5Mini)
	require.NoError(t, err)
	assert.Equal(t, int64(50), group)
}

func TestBudgetGate_EstimatesMissingUsage(t *testing.T) {
	ctx := context.Background()
	stub := &scriptedClient{answer: func(int, *types.ChatRequest) (*types.Response, error) {
		return &types.Response{Content: "a short answer", Model: "gpt-4o"}, nil
	}}
	gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 1000}, stub)

	_, err := gate.Chat(ctx, userRequest("gpt-4o", "one two three"))
	require.NoError(t, err)

	used, err := meter.Used(ctx, "")
	require.NoError(t, err)
	assert.Positive(t, used)
}

func TestBudgetGate_NonOpenAIResponsesAreFree(t *testing.T) {
	ctx := context.Background()
	stub := &scriptedClient{answer: func(int, *types.ChatRequest) (*types.Response, error) {
		return &types.Response{Content: "{}", Model: "gemini-2.5-flash", TokensUsed: &types.TokenUsage{TotalTokens: 500}}, nil
	}}
	gate, meter := newGate(t, config.BudgetConfig{DailyLimit: 1000}, stub)

	_, err := gate.Chat(ctx, userRequest("graph-extractor-gemini", "x"))
	require.NoError(t, err)

	used, err := meter.Used(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestBudgetGate_StoreFailureDegrades(t *testing.T) {
	stub := &scriptedClient{answer: func(_ int, req *types.ChatRequest) (*types.Response, error) {
		return &types.Response{Content: "ok", Model: "gpt-4o", TokensUsed: &types.TokenUsage{TotalTokens: 5}}, nil
	}}
	meter := budget.NewMeter(failingStore{}, budget.NewPolicy(config.BudgetConfig{DailyLimit: 1}), nil)
	gate := NewBudgetGate(stub, meter, testGraphSchema, nil, nil)

	resp, err := gate.Chat(context.Background(), userRequest("gpt-4o", "x"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "gpt-4o", stub.last().Model)
}

func TestLooksLikeGraphCall(t *testing.T) {
	assert.True(t, looksLikeGraphCall(userRequest("m", "Return Nodes and EDGES")))
	assert.False(t, looksLikeGraphCall(userRequest("m", "Return nodes only")))

	req := userRequest("m", "x")
	req.ResponseFormat = &types.ResponseFormat{Type: types.ResponseFormatJSONSchema, Schema: testGraphSchema}
	assert.True(t, looksLikeGraphCall(req))

	req.ResponseFormat.Schema = json.RawMessage(`{"properties":{"answer":{}}}`)
	assert.False(t, looksLikeGraphCall(req))
}
