package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/config"
)

func TestConsoleHandler_Format(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "info"}).With("system", SystemReconcile)

	// Act
	logger.Info("Applied match", "flavor", "transfer", "note", "two words")

	// Assert - bytes.Buffer is never a terminal, so no colors
	line := buf.String()
	assert.Contains(t, line, "[INFO] [reconcile] [")
	assert.Contains(t, line, "] Applied match flavor=transfer note=\"two words\"\n")
	assert.NotContains(t, line, "system=")
}

func TestConsoleHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{})

	logger.WithGroup("match").With("id", "m-1").Info("done", slog.Group("stats", "pairs", 4))

	assert.Contains(t, buf.String(), " done match.id=m-1 match.stats.pairs=4")
}

func TestConsoleHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Format: "json", Level: "debug"})

	logger.Debug("scan complete", "candidates", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scan complete", entry["msg"])
	assert.Equal(t, float64(2), entry["candidates"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
