package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLogger_AddsContextAttributes(t *testing.T) {
	prev := GlobalLogger
	defer func() {
		GlobalLogger = prev
		slog.SetDefault(prev.Logger)
	}()

	var buf bytes.Buffer
	initLogger(&buf, "production", "debug")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-42")
	GlobalLogger.InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":"user-42"`)
	assert.NotContains(t, out, "trace_id")
}

func TestLogAsyncOperationError_IncludesOperation(t *testing.T) {
	prev := GlobalLogger
	defer func() {
		GlobalLogger = prev
		slog.SetDefault(prev.Logger)
	}()

	var buf bytes.Buffer
	initLogger(&buf, "production", "info")

	ctx := WithCorrelationID(context.Background(), "corr-9")
	LogAsyncOperationError(ctx, "notification_fanout", errors.New("store down"), map[string]any{"post_id": "p1"})

	out := buf.String()
	assert.Contains(t, out, `"operation":"notification_fanout"`)
	assert.Contains(t, out, `"correlation_id":"corr-9"`)
	assert.Contains(t, out, `"error":"store down"`)
	assert.Contains(t, out, `"post_id":"p1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
