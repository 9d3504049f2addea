package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM's statement log into zap. Statements inherit the
// request and trace ids of the context they ran under.
type GormLogger struct {
	logger          *zap.Logger
	level           gormlogger.LogLevel
	slowThreshold   time.Duration
	logNotFound     bool
	parameterizedQL bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements log at warn.
// Zero disables slow statement detection.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

// WithRecordNotFound logs gorm.ErrRecordNotFound as an error. Lookups miss
// routinely (unknown references, absent carts) so it is off by default.
func WithRecordNotFound(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = enabled }
}

// WithParameterizedQueries logs SQL with placeholders instead of bound values
func WithParameterizedQueries(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.parameterizedQL = enabled }
}

// NewGormLogger returns a GORM logger writing to base under the "gorm" name
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        base.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	For(ctx, l.logger).Sugar().Logf(level, msg, data...)
}

// ParamsFilter implements gorm.ParamsFilter
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.parameterizedQL {
		return sql, nil
	}
	return sql, params
}

// Trace implements gormlogger.Interface. Failed statements log at error,
// slow ones at warn and the rest at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		level zapcore.Level
		msg   string
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return
		}
		level, msg = zapcore.ErrorLevel, "SQL error"
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		level, msg = zapcore.WarnLevel, "Slow SQL"
	case l.level >= gormlogger.Info:
		level, msg = zapcore.DebugLevel, "SQL"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if level == zapcore.ErrorLevel {
		fields = append(fields, zap.Error(err))
	}
	if level == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
	}
	For(ctx, l.logger).Log(level, msg, fields...)
}

// MapGormLogLevel maps an application log level onto GORM's scale. Debug
// and info enable per-statement logging; unknown values keep warnings.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)
