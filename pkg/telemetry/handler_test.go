package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

func readRecords(t *testing.T, dir string) []LogRecord {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var out []LogRecord
	for _, e := range entries {
		rows, err := parquet.ReadFile[LogRecord](filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out = append(out, rows...)
	}
	return out
}

func TestParquetHandler_PersistsErrorsOnly(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	h, err := NewParquetHandler(slog.NewTextHandler(&console, nil), dir)
	require.NoError(t, err)

	logger := slog.New(h)
	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-1")
	ctx = context.WithValue(ctx, types.ContextKeyTenantID, "tenant-a")

	logger.InfoContext(ctx, "graph accepted", "event", "extract.accepted")
	logger.ErrorContext(ctx, "all providers failed", "event", "extract.exhausted", "error", errors.New("boom"))

	assert.Contains(t, console.String(), "graph accepted")
	assert.Contains(t, console.String(), "all providers failed")

	require.NoError(t, h.Close())
	records := readRecords(t, dir)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, "all providers failed", rec.Message)
	assert.Equal(t, "extract.exhausted", rec.Event)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, "tenant-a", rec.TenantID)
	assert.Contains(t, rec.Attributes, `"error":"boom"`)
	assert.NotEmpty(t, rec.SourceFile)
}

func TestParquetHandler_DerivedHandlersShareBuffer(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)

	base := slog.New(h)
	child := base.With("provider", "graph-extractor").WithGroup("attempt")

	base.Error("first")
	child.Error("second", "n", 2)

	require.NoError(t, h.Flush())
	records := readRecords(t, dir)
	require.Len(t, records, 2)
	assert.Contains(t, records[1].Attributes, `"provider":"graph-extractor"`)
	assert.Contains(t, records[1].Attributes, `"attempt.n":2`)
}

func TestParquetHandler_Level(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandlerLevel(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}), dir, slog.LevelWarn)
	require.NoError(t, err)

	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))

	slog.New(h).Warn("breaker opened", "event", "llm.circuit")
	require.NoError(t, h.Close())
	records := readRecords(t, dir)
	require.Len(t, records, 1)
	assert.Equal(t, "llm.circuit", records[0].Event)
}

func TestParquetHandler_EmptyFlush(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)
	require.NoError(t, h.Flush())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
