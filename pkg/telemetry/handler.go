// Package telemetry keeps a durable copy of failure logs as Parquet files,
// so extraction failures can be analysed offline after the process exits.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	Event         string    `parquet:"event"`
	RequestID     string    `parquet:"request_id"`
	TenantID      string    `parquet:"tenant_id"`
	ClientIP      string    `parquet:"client_ip"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// sink is the buffer shared by a handler and every handler derived from it.
type sink struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []LogRecord
}

// ParquetHandler is a slog.Handler that passes every record on to next and
// also buffers records at or above its level, writing them to Parquet files
// in batches.
type ParquetHandler struct {
	next  slog.Handler
	level slog.Level
	sink  *sink
	attrs []slog.Attr
	group string
}

// NewParquetHandler creates a new ParquetHandler that persists error logs.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	return NewParquetHandlerLevel(next, outputDir, slog.LevelError)
}

// NewParquetHandlerLevel creates a ParquetHandler persisting records at or
// above level.
func NewParquetHandlerLevel(next slog.Handler, outputDir string, level slog.Level) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next:  next,
		level: level,
		sink: &sink{
			outputDir: outputDir,
			batchSize: 100,
			buffer:    make([]LogRecord, 0, 100),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.next.Enabled(ctx, r.Level) {
		if err := h.next.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level < h.level {
		return nil
	}

	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		attrs[key] = a.Value.Resolve().Any()
		return true
	})

	event, _ := attrs["event"].(string)
	attrsJSON, err := json.Marshal(stringify(attrs))
	if err != nil {
		attrsJSON = []byte("{}")
	}

	record := LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		Event:         event,
		RequestID:     contextString(ctx, types.ContextKeyRequestID),
		TenantID:      contextString(ctx, types.ContextKeyTenantID),
		ClientIP:      contextString(ctx, types.ContextKeyClientIP),
		RequestSource: contextString(ctx, types.ContextKeyRequestSource),
		Attributes:    string(attrsJSON),
	}
	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		record.SourceFile = f.File
		record.LineNumber = f.Line
	}

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

// Flush writes buffered records to a new Parquet file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the buffer.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("execution_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(s.outputDir, filename)

	if err := parquet.WriteFile(path, s.buffer); err != nil {
		return fmt.Errorf("write telemetry %s: %w", path, err)
	}

	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func contextString(ctx context.Context, key types.ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// stringify replaces values JSON cannot encode, errors in particular, with
// their string form.
func stringify(attrs map[string]any) map[string]any {
	for k, v := range attrs {
		switch x := v.(type) {
		case error:
			attrs[k] = x.Error()
		case fmt.Stringer:
			attrs[k] = x.String()
		}
	}
	return attrs
}
