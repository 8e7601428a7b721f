package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	receiptID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "receipt", "create",
		telemetry.WithAttribute(telemetry.SpanAttrReceiptID, receiptID),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, 3),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "receipt.create", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, receiptID.String(), attrs[telemetry.SpanAttrReceiptID].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrLineCount].AsInt64())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "allocation.plan")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuantity, int64(12),
		"expired_skipped", true,
		42, "non-string key is skipped",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, int64(12), attrs[telemetry.SpanAttrQuantity].AsInt64())
	assert.True(t, attrs["expired_skipped"].AsBool())
	assert.Len(t, attrs, 2)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "sale.create")
	telemetry.RecordError(span, errors.New("insufficient stock"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "insufficient stock", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestSetOKAndAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "reversal.void_sale")
	telemetry.AddEvent(span, "restore_capped", telemetry.SpanAttrBatchID, "b1", "dropped", int64(2))
	telemetry.SetOK(span)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Ok, ended.Status().Code)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "restore_capped", ended.Events()[0].Name)
	assert.Equal(t, int64(2), attrMap(ended.Events()[0].Attributes)["dropped"].AsInt64())
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)
	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "receipt.get")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
}
