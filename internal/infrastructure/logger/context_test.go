package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

func TestWithContext(t *testing.T) {
	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestIDAndWorkspace(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-123")
	ctx, l = WithWorkspaceID(ctx, l, "ws-1")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "ws-1", GetWorkspaceID(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("hello")
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "ws-1", fields[FieldWorkspaceID])
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(sampledContext(t)))
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	WithTraceContext(sampledContext(t), base).Info("traced")
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := sampledContext(t)
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, WorkspaceIDKey, "ws-9")
	ctx = WithContext(ctx, zap.New(core))

	cl := L(ctx).With(zap.String("component", "allocator"))
	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")

	logs := recorded.All()
	require.Len(t, logs, 4)
	for _, entry := range logs {
		fields := entry.ContextMap()
		assert.Equal(t, "allocator", fields["component"])
		assert.Equal(t, "req-9", fields["request_id"])
		assert.Equal(t, "ws-9", fields[FieldWorkspaceID])
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	}
	assert.NotNil(t, cl.Zap())
}

func TestWithLogger_NilFallsBackToNop(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() { cl.Info("nothing") })
}
