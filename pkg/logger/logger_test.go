package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/koi-bot/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew_MasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LoggerConfig{Level: "info", Format: "json"}, false, &buf)
	require.NoError(t, err)

	l.Info("connecting", slog.String("token", "123:abc"), slog.Group("sentry", slog.String("dsn", "https://key@sentry")))

	line := decodeLine(t, &buf)
	assert.Equal(t, "***", line["token"])
	assert.Equal(t, map[string]any{"dsn": "***"}, line["sentry"])
}

func TestNew_WithAttrsMasked(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LoggerConfig{Level: "info", Format: "json"}, false, &buf)
	require.NoError(t, err)

	l.With(slog.String("password", "hunter2")).Info("login")

	assert.Equal(t, "***", decodeLine(t, &buf)["password"])
}

func TestNew_CorrelationIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LoggerConfig{Level: "info", Format: "json"}, false, &buf)
	require.NoError(t, err)

	ctx := WithCorrelationID(context.Background(), "abc-123")
	l.InfoContext(ctx, "update handled")

	assert.Equal(t, "abc-123", decodeLine(t, &buf)["correlation_id"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LoggerConfig{Level: "warn", Format: "text"}, false, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, slog.LevelDebug, l.Level())
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, l.SetLevel("verbose"))
}

func TestNew_FileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	l, err := New(config.LoggerConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1}, false, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	l.Info("to both sinks")
	assert.Contains(t, buf.String(), "to both sinks")
	assert.FileExists(t, path)
}

func TestMiddleware_PropagatesCorrelationID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", seen)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "fixed-id", seen)
}
