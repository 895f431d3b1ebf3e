package security

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const testSecret = "0f1e2d3c4b5a69788796a5b4c3d2e1f0"

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	r := NewRedactor()
	r.AddLiteral(testSecret)
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r))
}

func TestRedactingHandler_RedactsMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf).Info("querying " + testSecret)

	output := buf.String()
	if strings.Contains(output, testSecret) {
		t.Errorf("secret found in log output: %s", output)
	}
	if !strings.Contains(output, RedactPlaceholder) {
		t.Errorf("expected placeholder in output: %s", output)
	}
}

func TestRedactingHandler_RedactsAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf).Info("runner: started", "master", testSecret, "trigger", "manual")

	output := buf.String()
	if strings.Contains(output, testSecret) {
		t.Errorf("secret found in attributes: %s", output)
	}
	if !strings.Contains(output, "manual") {
		t.Errorf("safe value missing from output: %s", output)
	}
}

func TestRedactingHandler_RedactsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf).Error("runner: failed", "error", errors.New("bad database "+testSecret))

	if strings.Contains(buf.String(), testSecret) {
		t.Errorf("secret found in error attribute: %s", buf.String())
	}
}

func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("slave", testSecret).WithGroup("notion")
	logger.Info("tick", slog.Group("db", slog.String("id", testSecret)))

	if strings.Contains(buf.String(), testSecret) {
		t.Errorf("secret found in output: %s", buf.String())
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := NewRedactingHandler(inner, NewRedactor())

	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled with warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled with warn level")
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	NewLogger(&text, "info", "text", NewRedactor()).Info("hello", "k", "v")
	NewLogger(&js, "info", "json", NewRedactor()).Info("hello", "k", "v")

	if !strings.Contains(text.String(), "msg=hello") {
		t.Errorf("text output = %q", text.String())
	}
	if !strings.Contains(js.String(), `"msg":"hello"`) {
		t.Errorf("json output = %q", js.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
