package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevel returns the log level from the LOG_LEVEL environment variable,
// defaulting to INFO.
func GetLogLevel() slog.Level {
	return parseLogLevel(os.Getenv("LOG_LEVEL"))
}

// NewLogger creates the structured logger for a server mode. Stdio mode logs
// text to stderr so stdout stays clean for MCP traffic; HTTP mode logs JSON
// to stdout.
func NewLogger(isStdioMode bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevel()}

	if isStdioMode {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// NewTextLogger creates a text logger for CLI modes and tests.
func NewTextLogger(output io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevel()}
	return slog.New(slog.NewTextHandler(output, opts))
}

// NewTestLogger creates a logger for tests with an explicit level; an empty
// level falls back to LOG_LEVEL.
func NewTestLogger(output io.Writer, level string) *slog.Logger {
	logLevel := GetLogLevel()
	if level != "" {
		logLevel = parseLogLevel(level)
	}
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
}
