// Package nlp provides the language model client used for graph extraction.
//
// A single OpenAIClient talks to an OpenAI-compatible proxy. Every provider id
// or entrypoint alias is sent as the model name and the proxy resolves it, so
// Response.Model reports what actually answered.
//
// # Client Wrappers
//
// Wrappers compose around the base client, outermost first:
//   - RetryClient: retries a rate limited call once after a short pause
//   - BudgetGate: daily token caps, rerouting of exhausted entrypoints and
//     graph schema injection
//   - CircuitBreakerClient: one breaker per provider id
//   - TokenTrackingClient: writes token usage to Parquet files
//
// # Usage
//
//	client, err := nlp.NewOpenAIClient(nlp.OpenAIConfig{BaseURL: url, APIKey: key})
//	gated := nlp.NewBudgetGate(client, meter, validator.Raw(), nil, logger)
//	retried := nlp.NewRetryClient(gated, nlp.RateLimitRetryConfig(0))
//	resp, err := retried.Chat(ctx, &types.ChatRequest{Model: "graph-extractor", Messages: msgs})
//
// # Error Handling
//
// Upstream HTTP failures surface as RateLimitError (status 429) or
// StatusError. RateLimitError supports errors.Is and is the only error the
// rate limit retry acts on.
package nlp
