package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger writes GORM's statement log through zap.
//
// Errors the ledger treats as outcomes rather than failures (a missing row,
// a unique-key collision answered by a retry or ON CONFLICT) are logged at
// debug. A conditional stock update that matched no row is logged at debug
// with cas_miss=true so allocation conflicts can be found in the SQL log.
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	expected      func(error) bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero disables it.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithExpectedErrors replaces the classifier of errors logged at debug
// instead of error. A nil classifier logs every error at error level.
func WithExpectedErrors(expected func(error) bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.expected = expected
	}
}

// ExpectedLedgerError reports the statement errors the ledger handles itself.
func ExpectedLedgerError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        OrNop(zapLogger).Named("gorm"),
		logLevel:      level,
		slowThreshold: 200 * time.Millisecond,
		expected:      ExpectedLedgerError,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, threshold gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.logLevel < threshold {
		return
	}
	l.logger.Log(level, fmt.Sprintf(msg, data...), traceFields(ctx)...)
}

// Trace implements gormlogger.Interface. Each statement is logged with the
// trace and request fields of ctx.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := append(traceFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	switch {
	case err != nil && l.expected != nil && l.expected(err):
		l.logger.Debug("SQL outcome", append(fields, zap.Error(err))...)

	case err != nil:
		if l.logLevel >= gormlogger.Error {
			l.logger.Error("SQL Error", append(fields, zap.Error(err))...)
		}

	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		l.logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold), fields...)

	case rows == 0 && isConditionalStockUpdate(sql):
		l.logger.Debug("SQL Query", append(fields, zap.Bool("cas_miss", true))...)

	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("SQL Query", fields...)
	}
}

// isConditionalStockUpdate matches the guarded decrement and restore of a
// batch's remaining quantity.
func isConditionalStockUpdate(sql string) bool {
	return strings.HasPrefix(sql, "UPDATE") &&
		strings.Contains(sql, "stock_batches") &&
		strings.Contains(sql, "remaining")
}

// MapGormLogLevel maps a log level name to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn", "warning":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
