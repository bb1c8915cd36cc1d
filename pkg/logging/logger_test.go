package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/modelcontext-go/streamable-transport/pkg/errors"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(DebugLevel)

	logger.Debug("Debug message", String("key", "value"))
	logger.Info("Info message", Int("count", 42))
	logger.Warn("Warning message", Bool("flag", true))
	logger.Error("Error message", ErrorField(errors.New("test error")))

	output := buf.String()

	assert.Contains(t, output, "Debug message")
	assert.Contains(t, output, "Info message")
	assert.Contains(t, output, "Warning message")
	assert.Contains(t, output, "Error message")

	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "count=42")
	assert.Contains(t, output, "flag=true")
	assert.Contains(t, output, "error=test error")
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(WarnLevel)

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message")

	output := buf.String()

	assert.NotContains(t, output, "Debug message")
	assert.NotContains(t, output, "Info message")
	assert.Contains(t, output, "Warning message")
	assert.Contains(t, output, "Error message")
}

func TestWithFieldsInheritance(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger = logger.WithFields(
		String("service", "test-service"),
		String("version", "1.0.0"),
	)
	logger.Info("Test message", String("operation", "test"))

	output := buf.String()
	assert.Contains(t, output, "service=test-service")
	assert.Contains(t, output, "version=1.0.0")
	assert.Contains(t, output, "operation=test")
}

func TestWithContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	ctx := ContextWithRequestID(context.Background(), "test-request-123")
	logger = logger.WithContext(ctx)
	logger.Info("Test message")

	assert.Contains(t, buf.String(), "[test-request-123]")
}

func TestWithErrorContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	mcpErr := mcperrors.HTTPError("send", "https://example.com/mcp", 500, errors.New("boom")).
		WithContext(&mcperrors.Context{
			RequestID: "req-123",
			Component: "Dispatcher",
			Operation: "Send",
		})

	logger = logger.WithError(mcpErr)
	logger.Error("Operation failed")

	output := buf.String()
	assert.Contains(t, output, "error=")
	assert.Contains(t, output, "error_category=transport")
	assert.Contains(t, output, "[req-123]")
	assert.Contains(t, output, "Dispatcher/Send:")
	assert.Contains(t, output, "endpoint=https://example.com/mcp")
	assert.Contains(t, output, "status_code=500")
	assert.Contains(t, output, "retryable=true")
}

func TestJSONFormatterOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("Test message",
		String("key", "value"),
		Int("count", 42),
		Bool("flag", true),
	)

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "Test message", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, float64(42), entry["count"])
	assert.Equal(t, true, entry["flag"])
	assert.Contains(t, entry, "timestamp")
}

func TestFieldTypesInJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	now := time.Now()
	duration := 5 * time.Second

	logger.Info("Test fields",
		String("string", "value"),
		Int("int", 42),
		Bool("bool", true),
		Duration("duration", duration),
		Time("time", now),
		Any("any", map[string]int{"a": 1, "b": 2}),
		ErrorField(errors.New("test error")),
	)

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "value", entry["string"])
	assert.Equal(t, float64(42), entry["int"])
	assert.Equal(t, true, entry["bool"])
	assert.Equal(t, "test error", entry["error"])

	_, isNumber := entry["duration"].(float64)
	assert.True(t, isNumber)

	_, isString := entry["time"].(string)
	assert.True(t, isString)

	anyVal, ok := entry["any"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), anyVal["a"])
	assert.Equal(t, float64(2), anyVal["b"])
}
