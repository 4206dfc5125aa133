package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger emits the recurring log events with a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a finished request: 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	if r.Pattern != "" {
		fields[FieldRoute] = r.Pattern
	}

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogDatasetLoaded logs a successful load and normalization pass.
func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, source string, inputRows, rows, dropped int) {
	fields := NewFields().
		WithDataset(source, inputRows, rows, dropped).
		WithOperation(OpLoad).
		WithComponent(ComponentBackend)

	sl.logger.Logger.InfoContext(ctx, "Dataset loaded", fields.ToSlice()...)
}

// LogAggregation logs one computed panel at debug level.
func (sl *StructuredLogger) LogAggregation(ctx context.Context, variant, kind, selector string, durationMs int64) {
	fields := NewFields().
		WithAggregation(variant, kind).
		WithOperation(OpAggregate).
		WithComponent(ComponentDashboard)
	fields[FieldDimension] = selector
	fields[FieldDuration] = durationMs

	sl.logger.Logger.DebugContext(ctx, "Panel computed", fields.ToSlice()...)
}

// LogError logs err with its component and operation. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
