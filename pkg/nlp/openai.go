package nlp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// OpenAIConfig configures the connection to an OpenAI-compatible endpoint,
// normally the LiteLLM routing proxy.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	// Timeout applies to calls whose request carries no timeout of its own.
	Timeout time.Duration
	// HTTPClient overrides the transport. Nil uses a default http.Client.
	HTTPClient *http.Client
}

// OpenAIClient implements the Client interface against an OpenAI-compatible
// chat completions API.
type OpenAIClient struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		// Some proxies do not require authentication.
		apiKey = "dummy-key"
	}
	clientConfig := openai.DefaultConfig(apiKey)

	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		clientConfig.BaseURL = config.BaseURL
		// Many services expect "/v1" to be appended to the base URL
		if !hasAPIPath(config.BaseURL) {
			clientConfig.BaseURL = config.BaseURL + "/v1"
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clientConfig.HTTPClient = &headerDoer{next: httpClient}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Chat sends one chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, buildChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion for %s failed: %w", req.Model, mapError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion for %s: %w", req.Model, ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	response := &types.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
	}

	// Include token usage if available (some OpenAI-compatible services might not provide this)
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}

// Close cleans up resources (no-op for OpenAI client).
func (c *OpenAIClient) Close() error {
	return nil
}

func buildChatRequest(req *types.ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}

	if req.Temperature != nil {
		// The wire field is omitempty, so an exact zero would silently fall
		// back to the provider default.
		t := *req.Temperature
		if t == 0 {
			t = math.SmallestNonzeroFloat32
		}
		out.Temperature = t
	}

	if rf := req.ResponseFormat; rf != nil {
		switch rf.Type {
		case types.ResponseFormatJSONObject:
			out.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		case types.ResponseFormatJSONSchema:
			out.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   rf.Name,
					Schema: rf.Schema,
					Strict: rf.Strict,
				},
			}
		}
	}

	return out
}

// mapError turns upstream HTTP failures into RateLimitError or StatusError.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return NewStatusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return NewStatusError(reqErr.HTTPStatusCode, reqErr.HTTPStatus, err)
	}
	return err
}

// headerDoer forwards request-scoped identity headers to the proxy so its
// logs and budget hooks can attribute the call.
type headerDoer struct {
	next *http.Client
}

func (d *headerDoer) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if v, ok := ctx.Value(types.ContextKeyClientIP).(string); ok && v != "" {
		req.Header.Set("X-Client-IP", v)
	}
	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok && v != "" {
		req.Header.Set("X-Request-ID", v)
	}
	return d.next.Do(req)
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("baseURL cannot be empty")
	}

	// Validate URL format
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}

	// Ensure URL has a valid scheme
	if parsedURL.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}

	// Ensure scheme is http or https
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}

	return nil
}

// hasAPIPath checks if the base URL already includes an API path component.
func hasAPIPath(baseURL string) bool {
	commonPaths := []string{"/v1", "/api", "/v1/", "/api/"}
	for _, path := range commonPaths {
		if len(baseURL) >= len(path) && baseURL[len(baseURL)-len(path):] == path {
			return true
		}
	}
	return false
}
