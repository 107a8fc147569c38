package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the minimal logging surface the rest of fleetkube depends on,
// so that callers embedding the client can supply their own logger (zap,
// logrus, a test spy) without pulling in log/slog directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// SlogAdapter implements Logger on top of *slog.Logger, the default used
// throughout the client when the caller doesn't supply one of their own.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger. A nil logger falls back to DefaultLogger's
// handler so callers can pass a possibly-unset *slog.Logger without a nil
// check of their own.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = newDefaultSlog()
	}
	return &SlogAdapter{logger: logger}
}

// DefaultLogger returns an adapter over a text handler writing to stderr
// at info level, fleetkube's out-of-the-box logging destination.
func DefaultLogger() *SlogAdapter {
	return &SlogAdapter{logger: newDefaultSlog()}
}

func newDefaultSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Logger returns the underlying *slog.Logger, for callers that want to
// derive a child logger via WithOperation/WithCluster.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}

func (a *SlogAdapter) Debug(msg string, args ...interface{}) {
	a.logger.Debug(msg, args...)
}

func (a *SlogAdapter) Info(msg string, args ...interface{}) {
	a.logger.Info(msg, args...)
}

func (a *SlogAdapter) Warn(msg string, args ...interface{}) {
	a.logger.Warn(msg, args...)
}

func (a *SlogAdapter) Error(msg string, args ...interface{}) {
	a.logger.Error(msg, args...)
}

// DebugContext, InfoContext, WarnContext, and ErrorContext pass ctx through
// to the underlying slog.Logger so a request-scoped trace ID in ctx (set by
// internal/telemetry) is picked up by a handler that reads it.
func (a *SlogAdapter) DebugContext(ctx context.Context, msg string, args ...interface{}) {
	a.logger.DebugContext(ctx, msg, args...)
}

func (a *SlogAdapter) InfoContext(ctx context.Context, msg string, args ...interface{}) {
	a.logger.InfoContext(ctx, msg, args...)
}

func (a *SlogAdapter) WarnContext(ctx context.Context, msg string, args ...interface{}) {
	a.logger.WarnContext(ctx, msg, args...)
}

func (a *SlogAdapter) ErrorContext(ctx context.Context, msg string, args ...interface{}) {
	a.logger.ErrorContext(ctx, msg, args...)
}
