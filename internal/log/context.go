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

// FromContext returns the logger stored by NewContext, or one over the slog
// default tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger emits the fixed-shape records shared across packages. Each
// record names its own component, so the wrapped logger's is not added.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().
		WithComponent(ComponentHTTP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	sl.logger.Logger.InfoContext(ctx, "HTTP request started", f.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	f := NewFields().
		WithComponent(ComponentHTTP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.logger.Logger.Log(ctx, level, "HTTP request completed", f.ToSlice()...)
}

func (sl *StructuredLogger) LogMovementRecorded(ctx context.Context, id, movementType, category, amount string) {
	f := NewFields().
		WithComponent(ComponentMovement).
		WithOperation(OpCreate).
		WithMovement(id, movementType, category, amount)
	sl.logger.Logger.InfoContext(ctx, "Movement recorded", f.ToSlice()...)
}

// LogError adds err, operation and component to fields, which may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithComponent(component).WithOperation(operation).WithError(err)
	sl.logger.Logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
