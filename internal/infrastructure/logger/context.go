package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey struct{}

// scope is the request-scoped state carried in a context: the logger
// enriched so far and the identifiers it was enriched with.
type scope struct {
	logger    *zap.Logger
	requestID string
	sessionID string
	role      string
}

func scopeFrom(ctx context.Context) scope {
	if s, ok := ctx.Value(ctxKey{}).(scope); ok {
		return s
	}
	return scope{}
}

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	s := scopeFrom(ctx)
	s.logger = logger
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l := scopeFrom(ctx).logger; l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id in ctx and on the returned logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, func(s *scope) { s.requestID = requestID }, zap.String("request_id", requestID))
}

// WithSessionID records the shopping session id in ctx and on the returned logger
func WithSessionID(ctx context.Context, logger *zap.Logger, sessionID string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, func(s *scope) { s.sessionID = sessionID }, zap.String("session_id", sessionID))
}

// WithRole records the caller's role in ctx and on the returned logger
func WithRole(ctx context.Context, logger *zap.Logger, role string) (context.Context, *zap.Logger) {
	return enrich(ctx, logger, func(s *scope) { s.role = role }, zap.String("role", role))
}

func enrich(ctx context.Context, logger *zap.Logger, set func(*scope), field zap.Field) (context.Context, *zap.Logger) {
	s := scopeFrom(ctx)
	set(&s)
	s.logger = logger.With(field)
	return context.WithValue(ctx, ctxKey{}, s), s.logger
}

// GetRequestID returns the request id recorded in ctx
func GetRequestID(ctx context.Context) string { return scopeFrom(ctx).requestID }

// GetSessionID returns the shopping session id recorded in ctx
func GetSessionID(ctx context.Context) string { return scopeFrom(ctx).sessionID }

// GetRole returns the caller role recorded in ctx
func GetRole(ctx context.Context) string { return scopeFrom(ctx).role }

// For returns base annotated with the request identifiers in ctx and the
// active span's trace and span ids. Services hold a process-wide logger and
// call For at the point of logging so entries correlate with the request
// and its trace.
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if ctx == nil {
		return base
	}
	s := scopeFrom(ctx)
	fields := make([]zap.Field, 0, 5)
	if s.requestID != "" {
		fields = append(fields, zap.String("request_id", s.requestID))
	}
	if s.sessionID != "" {
		fields = append(fields, zap.String("session_id", s.sessionID))
	}
	if s.role != "" {
		fields = append(fields, zap.String("role", s.role))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
