package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandler_FormatSelection(t *testing.T) {
	t.Parallel()

	if _, ok := newHandler("text", "info").(*slog.TextHandler); !ok {
		t.Error("LOG_FORMAT=text should select the text handler")
	}
	if _, ok := newHandler("json", "info").(*slog.JSONHandler); !ok {
		t.Error("LOG_FORMAT=json should select the JSON handler")
	}
	if _, ok := newHandler("", "info").(*slog.JSONHandler); !ok {
		t.Error("unset LOG_FORMAT should default to the JSON handler")
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	// Without a stored logger the fallback is slog.Default, never nil.
	if got := FromContext(context.Background()); got == nil {
		t.Fatal("FromContext on empty context returned nil")
	}

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), log)
	if got := FromContext(ctx); got != log {
		t.Error("FromContext did not return the stored logger")
	}
}
