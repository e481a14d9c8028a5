package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// newLogHandler builds the slog handler selected by --log-level and
// --log-format. Unknown values fall back to info and json with a warning.
func newLogHandler(w io.Writer, logLevel, logFormat string) slog.Handler {
	var slogLevel slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
		_, _ = fmt.Fprintf(w, "WARNING: unknown log level %q, defaulting to \"info\"\n", logLevel)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	switch strings.ToLower(logFormat) {
	case "text":
		return slog.NewTextHandler(w, handlerOpts)
	case "json":
		return slog.NewJSONHandler(w, handlerOpts)
	default:
		_, _ = fmt.Fprintf(w, "WARNING: unknown log format %q, defaulting to \"json\"\n", logFormat)

		return slog.NewJSONHandler(w, handlerOpts)
	}
}
