package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) got %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitSetsGlobal(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	Init("debug", "json")
	if L == nil {
		t.Fatal("expected global logger after Init")
	}
	if !L.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level enabled")
	}
}
