package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*BotMeshLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = "json"
	cfg.Output = buf
	cfg.AddSource = false
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	decoder := json.NewDecoder(buf)
	for decoder.More() {
		var entry map[string]any
		require.NoError(t, decoder.Decode(&entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("kept as well")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0]["msg"])
	assert.Equal(t, "kept as well", entries[1]["msg"])
}

func TestContextualAttributes(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.
		WithComponent("merger").
		WithTurn("echo", "turn-1").
		WithContext("request_id", "r-42").
		Info("dispatching")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "merger", entries[0]["component"])
	assert.Equal(t, "echo", entries[0]["bot_alias"])
	assert.Equal(t, "turn-1", entries[0]["turn_id"])
	assert.Equal(t, "r-42", entries[0]["request_id"])

	t.Run("clones do not leak into the parent", func(t *testing.T) {
		buf.Reset()
		logger.Info("plain")
		entries := decodeLines(t, buf)
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0], "component")
	})
}

func TestPrintfFormatting(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)
	logger.Debug("bot=%s responses=%d", "echo", 3)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "bot=echo responses=3", entries[0]["msg"])
}

func TestLogHandlerRun(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.LogHandlerRun("echo", 2, 15*time.Millisecond, nil)
	logger.LogHandlerRun("flaky", 0, time.Millisecond, errors.New("boom"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Handler run completed", entries[0]["msg"])
	assert.Equal(t, float64(2), entries[0]["response_count"])
	assert.Equal(t, "Handler run failed", entries[1]["msg"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestErrorWithStack(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)
	logger.ErrorWithStack(errors.New("boom"), "something broke")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["stack_trace"])
}

func TestNoOpLoggerImplementsInterface(t *testing.T) {
	var logger Logger = NoOpLogger{}
	logger.Debug("ignored")
	logger.Info("ignored")
	logger.Warn("ignored")
	logger.Error("ignored")
}
