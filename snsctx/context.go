package snsctx

import (
	"context"
	"log/slog"
)

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexLogger
)

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// WithLogger attaches a logger used by transports for wire level traces.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxIndexLogger, log)
}

// Logger returns the attached logger or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxIndexLogger).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}
