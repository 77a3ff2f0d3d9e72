// Package logger configures the application's structured slog logging.
//
// Dev and test environments get human-readable colorized output, everything
// else gets JSON. The special "none" level silences logging entirely, which
// keeps test output clean.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// LogLevel is a slog.Level extended with a "none" value that disables
// logging.
type LogLevel slog.Level

// LevelNone sits above every slog level so nothing is ever emitted at it.
const LevelNone = LogLevel(127)

func (l LogLevel) String() string {
	if l == LevelNone {
		return "none"
	}
	return strings.ToLower(slog.Level(l).String())
}

// ParseLogLevel maps a LOG_LEVEL string to its level.
// Unrecognized values fall back to info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevel(slog.LevelDebug)
	case "info":
		return LogLevel(slog.LevelInfo)
	case "warn", "warning":
		return LogLevel(slog.LevelWarn)
	case "error":
		return LogLevel(slog.LevelError)
	case "none":
		return LevelNone
	default:
		return LogLevel(slog.LevelInfo)
	}
}

// InitLogger creates the application logger for the given level and
// environment.
func InitLogger(level LogLevel, environment string) *slog.Logger {
	var out io.Writer = os.Stdout
	if level == LevelNone {
		out = io.Discard
	}

	switch environment {
	case "dev", "test":
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level: slog.Level(level),
		}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: slog.Level(level),
		}))
	}
}
