// Package logging provides the structured logger used across DuskDB's storage
// and command engine. It never drives control flow: callers log diagnostics
// and move on, they never branch on whether a log call succeeded.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls the format and verbosity of a logger.
type Config struct {
	// Format: "json" for production/observability, "text" for human-readable (default).
	Format string
	// Level: "debug", "info", "warn", "warning", "error". Default "warning".
	Level string
}

// Component names one of DuskDB's three long-lived subsystems, attached to
// every record a subsystem's logger emits so a multiplexed log stream can be
// split back out by origin without string-matching message text.
type Component string

const (
	ComponentStore  Component = "store"
	ComponentEngine Component = "engine"
	ComponentGC     Component = "gc"
)

// Tag returns logger with a "component" attribute bound to every subsequent
// record. GC's master and its workers share one Tag(..., ComponentGC)
// logger, so a worker's own "worker" attribute (its shard index) composes
// with the component tag rather than duplicating "gc" in every message.
func Tag(logger *slog.Logger, c Component) *slog.Logger {
	return logger.With(slog.String("component", string(c)))
}

// parseLevel converts s to a slog.Level, reporting whether s named a
// recognized level at all (as opposed to falling back to the default).
func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelWarn, false
	}
}

func handlerFor(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// New creates a slog.Logger that writes to w with the given format and
// level. An unrecognized or empty Level falls back to warn rather than
// rejecting the config, since cfg is usually handed straight through from a
// YAML file a human edited by hand.
func New(w io.Writer, cfg Config) *slog.Logger {
	level, _ := parseLevel(cfg.Level)
	return slog.New(handlerFor(w, cfg.Format, level))
}

// NewDefault creates a logger with default config (text format, warn level) writing to stderr.
func NewDefault() *slog.Logger {
	return New(os.Stderr, Config{Format: "text", Level: "warning"})
}

// NewDiscard returns a logger that discards all output. Used in tests and in
// call sites that were not handed a logger explicitly.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
