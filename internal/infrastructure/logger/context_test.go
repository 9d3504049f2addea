package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
}

func TestWithIdentifiers_Accumulate(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, l := WithRequestID(context.Background(), base, "req-1")
	ctx, l = WithSessionID(ctx, l, "sess-1")
	ctx, l = WithRole(ctx, l, "STAFF")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "STAFF", GetRole(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("enriched")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, "STAFF", fields["role"])
}

func TestWithContext_KeepsIdentifiers(t *testing.T) {
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-2")
	ctx = WithContext(ctx, zap.NewExample())
	assert.Equal(t, "req-2", GetRequestID(ctx))
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetRole(ctx))
}

func TestFor_NoScope(t *testing.T) {
	base := zap.NewExample()
	assert.Same(t, base, For(context.Background(), base))
	assert.NotNil(t, For(context.Background(), nil))
}

func TestFor_AddsRequestAndTraceFields(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "checkout")
	defer span.End()

	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-3")
	ctx, _ = WithSessionID(ctx, zap.NewNop(), "sess-3")

	core, logs := observer.New(zapcore.InfoLevel)
	For(ctx, zap.New(core)).Info("reserved")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-3", fields["request_id"])
	assert.Equal(t, "sess-3", fields["session_id"])
	assert.NotContains(t, fields, "role")
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestFor_IgnoresInvalidSpanContext(t *testing.T) {
	ctx := trace.ContextWithSpanContext(context.Background(), trace.SpanContext{})
	core, logs := observer.New(zapcore.InfoLevel)
	For(ctx, zap.New(core)).Info("no trace")

	assert.Empty(t, logs.All()[0].ContextMap())
}
