package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// TokenUsageRecord represents a single log entry for token usage
type TokenUsageRecord struct {
	ID               string    `parquet:"id"`
	Timestamp        time.Time `parquet:"timestamp"`
	RequestedModel   string    `parquet:"requested_model"`
	Model            string    `parquet:"model"`
	TotalTokens      int       `parquet:"total_tokens"`
	PromptTokens     int       `parquet:"prompt_tokens"`
	CompletionTokens int       `parquet:"completion_tokens"`
	RequestID        string    `parquet:"request_id"`
	TenantID         string    `parquet:"tenant_id"`
	ClientIP         string    `parquet:"client_ip"`
	RequestSource    string    `parquet:"request_source"`
}

// ParquetTokenTracker handles persistence of token usage stats to Parquet files
type ParquetTokenTracker struct {
	outputDir string
	logger    *slog.Logger
	mu        sync.Mutex
	buffer    []TokenUsageRecord
	batchSize int
}

// NewTokenTracker creates a new token tracker writing to a directory
func NewTokenTracker(outputDir string, logger *slog.Logger) (*ParquetTokenTracker, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create token tracking directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ParquetTokenTracker{
		outputDir: outputDir,
		logger:    logger,
		buffer:    make([]TokenUsageRecord, 0, 100),
		batchSize: 100,
	}, nil
}

// AddUsage buffers one usage record, flushing when the batch is full.
func (t *ParquetTokenTracker) AddUsage(ctx context.Context, usage *types.TokenUsage, requested, model string) error {
	if usage == nil {
		return nil
	}

	record := TokenUsageRecord{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		RequestedModel:   requested,
		Model:            model,
		TotalTokens:      usage.Total(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		RequestID:        contextString(ctx, types.ContextKeyRequestID),
		TenantID:         contextString(ctx, types.ContextKeyTenantID),
		ClientIP:         contextString(ctx, types.ContextKeyClientIP),
		RequestSource:    contextString(ctx, types.ContextKeyRequestSource),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.buffer = append(t.buffer, record)

	if len(t.buffer) >= t.batchSize {
		return t.flush()
	}

	return nil
}

// Flush writes any buffered records.
func (t *ParquetTokenTracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

// Close flushes the buffer.
func (t *ParquetTokenTracker) Close() error {
	return t.Flush()
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (t *ParquetTokenTracker) flush() error {
	if len(t.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("token_usage_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(t.outputDir, filename)

	if err := parquet.WriteFile(path, t.buffer); err != nil {
		return fmt.Errorf("write token usage %s: %w", path, err)
	}

	t.buffer = t.buffer[:0]
	return nil
}

func contextString(ctx context.Context, key types.ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// TokenTrackingClient wraps a Client to track usage
type TokenTrackingClient struct {
	client  Client
	tracker *ParquetTokenTracker
	logger  *slog.Logger
}

// NewTokenTrackingClient creates a wrapper client
func NewTokenTrackingClient(client Client, tracker *ParquetTokenTracker, logger *slog.Logger) *TokenTrackingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenTrackingClient{
		client:  client,
		tracker: tracker,
		logger:  logger,
	}
}

// Chat implements Client
func (c *TokenTrackingClient) Chat(ctx context.Context, req *types.ChatRequest) (*types.Response, error) {
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.TokensUsed != nil {
		model := resp.Model
		if model == "" {
			model = "unknown"
		}

		if err := c.tracker.AddUsage(ctx, resp.TokensUsed, req.Model, model); err != nil {
			c.logger.WarnContext(ctx, "failed to log token usage", "model", model, "error", err)
		}
	}

	return resp, nil
}

// Close flushes the tracker and closes the wrapped client.
func (c *TokenTrackingClient) Close() error {
	if err := c.tracker.Close(); err != nil {
		c.logger.Warn("failed to flush token usage", "error", err)
	}
	return c.client.Close()
}
