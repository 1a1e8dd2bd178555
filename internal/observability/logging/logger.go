// Package logging builds the process-wide slog logger. All binaries emit
// JSON lines tagged with the service name so one log pipeline can split
// the api, worker, and mcp streams.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns a stdout JSON logger for the given service.
// Unknown level strings fall back to info rather than failing startup.
func NewJSONLogger(service, level string) *slog.Logger {
	return newLogger(os.Stdout, service, level)
}

// NewStderrLogger is for binaries whose stdout carries protocol traffic,
// such as the MCP stdio server.
func NewStderrLogger(service, level string) *slog.Logger {
	return newLogger(os.Stderr, service, level)
}

func newLogger(out io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: levelFrom(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}

func levelFrom(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
