// Package logging wraps log/slog with the fields pufrecon stages report.
//
// Logs go to stderr so they never mix with command output on stdout.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with reconstruction-specific helpers.
type Logger struct {
	*slog.Logger
}

// Config selects the handler.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Writer io.Writer
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", cfg.Format)
	}
	return &Logger{Logger: slog.New(h)}, nil
}

// Noop returns a Logger that discards everything.
func Noop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithRegion tags every record with a region name.
func (l *Logger) WithRegion(region string) *Logger {
	return &Logger{Logger: l.Logger.With("region", region)}
}

// LogDecode records one decoded capture.
func (l *Logger) LogDecode(ctx context.Context, source string, bits, padded, discarded int) {
	if padded > 0 {
		l.WarnContext(ctx, "capture shorter than geometry, zero-padded",
			"source", source,
			"bits", bits,
			"padded", padded,
		)
		return
	}
	l.DebugContext(ctx, "capture decoded",
		"source", source,
		"bits", bits,
		"discarded", discarded,
	)
}

// LogAggregate records a finished weight accumulation.
func (l *Logger) LogAggregate(ctx context.Context, condition string, samples, width int) {
	l.InfoContext(ctx, "samples aggregated",
		"condition", condition,
		"samples", samples,
		"width", width,
	)
}

// LogVotes records the outcome counts of a vote vector.
func (l *Logger) LogVotes(ctx context.Context, stage string, zeros, ones, ambiguous int) {
	l.InfoContext(ctx, "votes computed",
		"stage", stage,
		"zeros", zeros,
		"ones", ones,
		"ambiguous", ambiguous,
	)
}

// LogWrite records a sink write.
func (l *Logger) LogWrite(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed", "name", name, "error", err)
		return
	}
	l.DebugContext(ctx, "written", "name", name)
}
