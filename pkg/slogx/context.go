package slogx

import (
	"context"
	"log/slog"
)

// ctxKey is unexported so only this package can place a logger in a context.
type ctxKey struct{}

// WithContext stores logger in ctx. Request middleware uses this to carry a
// logger pre-tagged with request attributes down into the service layer.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default() when none
// was attached. Callers never get nil, so it is safe to log unconditionally.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
