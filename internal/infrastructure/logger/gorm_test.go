package logger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithExpectedErrors(nil),
	)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.Nil(t, gormLog.expected)

	assert.NotNil(t, NewGormLogger(nil, gormlogger.Warn))
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info)
	newLogger := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Warn)

	gormLog.Info(context.Background(), "suppressed %s", "info")
	gormLog.Warn(context.Background(), "warning message %d", 42)
	gormLog.Error(context.Background(), "error message")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "warning message 42", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) {
		return `UPDATE "stock_batches" SET "remaining"=remaining - 5 WHERE id = 'b1' AND remaining >= 5`, 1
	}

	t.Run("logs errors", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.ErrorLevel, gormlogger.Error)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, errors.New("deadlock detected"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)
	})

	t.Run("demotes expected ledger errors", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Error)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, fmt.Errorf("insert receipt: %w", gorm.ErrDuplicatedKey))

		logs := recorded.All()
		require.Len(t, logs, 2)
		for _, entry := range logs {
			assert.Equal(t, zapcore.DebugLevel, entry.Level)
			assert.Equal(t, "SQL outcome", entry.Message)
		}
	})

	t.Run("without classifier every error is an error", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Error, WithExpectedErrors(nil))
		gormLog.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("flags conditional stock updates that matched nothing", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Warn)
		gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
			s, _ := sqlFn()
			return s, 0
		}, nil)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, nil)

		logs := recorded.All()
		require.Len(t, logs, 1, "matched updates stay quiet below info")
		assert.Equal(t, true, logs[0].ContextMap()["cas_miss"])
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.WarnLevel, gormlogger.Warn, WithSlowThreshold(time.Nanosecond))
		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("logs normal queries at debug", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Info)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Query", logs[0].Message)
		assert.Equal(t, int64(1), logs[0].ContextMap()["rows"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Silent)
		gormLog.Trace(context.Background(), time.Now(), sqlFn, errors.New("boom"))
		assert.Empty(t, recorded.All())
	})

	t.Run("adds request and trace ids", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))
		ctx = context.WithValue(ctx, RequestIDKey, "req-7")

		gormLog.Trace(ctx, time.Now(), sqlFn, nil)

		fields := recorded.All()[0].ContextMap()
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"WARNING": gormlogger.Warn,
		"unknown": gormlogger.Warn,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(in), in)
	}
}
