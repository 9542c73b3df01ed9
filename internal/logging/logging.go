package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Extra levels for the verbosity names accepted on the command line.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Init configures the global slog default with the given level and format.
// If w is nil, os.Stderr is used. Format must be "text" or "json".
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// New returns a logger with a "component" attribute for module-scoped logging.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// Levels lists the verbosity names ParseLevel accepts, most severe first.
var Levels = []string{"fatal", "error", "warning", "info", "debug", "trace"}

// ParseLevel maps a verbosity name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "fatal":
		return LevelFatal, nil
	case "error":
		return slog.LevelError, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q (available: %s)", name, strings.Join(Levels, ", "))
	}
}
