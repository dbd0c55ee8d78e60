package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorHandler_PlainLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}).WithoutColor())

	log.With("component", "extract").WithGroup("req").Info("attempt finished", "nodes", 3, "reason", "below threshold")

	line := buf.String()
	assert.Contains(t, line, "INFO attempt finished")
	assert.Contains(t, line, "component=extract")
	assert.Contains(t, line, "req.nodes=3")
	assert.Contains(t, line, `req.reason="below threshold"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.NotContains(t, line, "\033[")
}

func TestColorHandler_Levels(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Warn("careful")
	assert.Contains(t, buf.String(), colorYellow+"WARN"+colorReset)

	buf.Reset()
	log.Error("broken")
	assert.Contains(t, buf.String(), colorRed+"ERROR"+colorReset)

	buf.Reset()
	log.Info("graph accepted")
	assert.Contains(t, buf.String(), colorGreen+"graph accepted"+colorReset)
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", "json").Warn("budget exhausted", "event", "budget.reroute")
	assert.Contains(t, buf.String(), `"msg":"budget exhausted"`)
	assert.Contains(t, buf.String(), `"event":"budget.reroute"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
