package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or a default one tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return wrap(slog.Default(), "unknown")
}

// ComponentMiddleware retags the request logger with component.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), FromContext(r.Context()).WithComponent(component))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger emits the conversion and error records shared by the
// server, the CLI and the worker.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogConversion records a finished conversion with its row counts.
func (sl *StructuredLogger) LogConversion(ctx context.Context, name, inFormat, outFormat string, rawRows, itemRows, groupRows, skipped int, year string) {
	attrs := NewFields().
		WithFile(name, inFormat, outFormat).
		WithConversion(rawRows, itemRows, groupRows, skipped, year).
		WithOperation(OpConvert).
		ToSlice()
	sl.logger.InfoContext(ctx, "Conversion completed", attrs...)
}

// LogError records err under component, leaving the wrapped logger untouched.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	attrs := fields.WithError(err).WithOperation(operation).ToSlice()
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, attrs...)
}
