// Package logging defines the context-aware structured logger used across the
// data plane, with adapters for log/slog and zap.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/zap"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "chunk stored", "drive", driveUID, "index", idx)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds a Logger writing to w. format is one of "json", "text" or "zap".
func New(format string, w io.Writer) (Logger, error) {
	switch format {
	case "", "json", "text":
		return NewSlogLogger(slog.New(newSlogHandler(format, w, slog.LevelInfo))), nil
	case "zap":
		return NewZapLogger(newZap(w)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewZapLogger(zap.NewNop())
}
