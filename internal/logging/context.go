package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

type requestLoggerContextKey struct{}

var fallbackLogger atomic.Pointer[slog.Logger]

// SetFallback sets the logger returned by FromContext when the context carries none.
//
// Background work that is not tied to a request (cache warming, sweeps) logs through it.
func SetFallback(logger *slog.Logger) {
	fallbackLogger.Store(logger.With(slog.String("logger", "fallback")))
}

func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(requestLoggerContextKey{}).(*slog.Logger)
	if ok && logger != nil {
		return logger
	}

	if fallback := fallbackLogger.Load(); fallback != nil {
		return fallback
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("logger", "fallback"))
}

func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerContextKey{}, logger)
}

func AddMetaToContext(ctx context.Context, args ...slog.Attr) context.Context {
	logger := FromContext(ctx)

	// Convert our []slog.Attr to []any
	anySlice := make([]any, len(args))
	for i, arg := range args {
		anySlice[i] = arg
	}

	withMeta := logger.With(anySlice...)

	return AddToContext(ctx, withMeta)
}
