package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// LoggerContextKey holds the request-scoped *Logger.
var LoggerContextKey = contextKey{}

// Middleware puts logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "")
}

// StructuredLogger writes the recurring back office events with a fixed
// set of fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) log(ctx context.Context, level slog.Level, msg string, f Fields) {
	sl.logger.LogAttrs(ctx, level, msg, f...)
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().
		Request(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		ClientIP(clientIP)
	sl.log(ctx, slog.LevelDebug, "HTTP request started", f)
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
		Request(r.Method, r.URL.Path, "", "", "").
		Response(statusCode, durationMs).
		ClientIP(clientIP)
	sl.log(ctx, level, "HTTP request completed", f)
}

func (sl *StructuredLogger) LogCollectionRecorded(ctx context.Context, id, sponsorID, month string, amountCents, sadaqatCents int64) {
	f := NewFields().
		Operation(OpCreate).
		Collection(id, sponsorID, month, amountCents, sadaqatCents)
	sl.log(ctx, slog.LevelInfo, "Collection recorded", f)
}

func (sl *StructuredLogger) LogSettlementSaved(ctx context.Context, areaID, month string, totalCents int64, rows int) {
	f := NewFields().
		Operation(OpSettle).
		Area(areaID).
		Month(month).
		Count(rows)
	f = append(f, slog.Int64(FieldAmountCents, totalCents))
	sl.log(ctx, slog.LevelInfo, "Settlement saved", f)
}

// LogError logs err with its type under component, with the operation
// ahead of the extra fields.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, extra Fields) {
	l := sl.logger
	if component != "" {
		l = l.WithComponent(component)
	}
	f := NewFields().Operation(operation).Error(err)
	l.LogAttrs(ctx, slog.LevelError, msg, append(f, extra...)...)
}
