package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevel(slog.LevelDebug)},
		{"DEBUG", LogLevel(slog.LevelDebug)},
		{"info", LogLevel(slog.LevelInfo)},
		{"warn", LogLevel(slog.LevelWarn)},
		{"warning", LogLevel(slog.LevelWarn)},
		{"error", LogLevel(slog.LevelError)},
		{"none", LevelNone},
		{"", LogLevel(slog.LevelInfo)},
		{"verbose", LogLevel(slog.LevelInfo)},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogLevel(slog.LevelDebug), "debug"},
		{LogLevel(slog.LevelInfo), "info"},
		{LogLevel(slog.LevelWarn), "warn"},
		{LogLevel(slog.LevelError), "error"},
		{LevelNone, "none"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
		// String values must survive a round trip through ParseLogLevel.
		if got := ParseLogLevel(tt.level.String()); got != tt.level {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.level.String(), got, tt.level)
		}
	}
}

func TestInitLogger(t *testing.T) {
	ctx := context.Background()

	devLogger := InitLogger(ParseLogLevel("debug"), "dev")
	if !devLogger.Enabled(ctx, slog.LevelDebug) {
		t.Error("dev logger at debug level should enable debug records")
	}

	prodLogger := InitLogger(ParseLogLevel("warn"), "prod")
	if prodLogger.Enabled(ctx, slog.LevelInfo) {
		t.Error("prod logger at warn level should not enable info records")
	}

	noneLogger := InitLogger(ParseLogLevel("none"), "test")
	if noneLogger.Enabled(ctx, slog.LevelError) {
		t.Error("none level should disable even error records")
	}
}
