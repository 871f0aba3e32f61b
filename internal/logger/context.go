package logger

import "context"

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// FromContext returns the logger stored in ctx, or a logger that discards
// everything when none is present.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey).(Logger); ok {
			return l
		}
	}
	return nullLogger
}

type contextKeyType struct{}

var contextKey = contextKeyType{}
