package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ginLoggerKey = "logger"

// GinMiddleware writes one access log entry per request. Server errors log
// at error level and client errors at warn. Handlers obtain a request-scoped
// logger with GetGinLogger.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	base = base.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		ctx := c.Request.Context()
		if GetRequestID(ctx) == "" {
			if id := c.GetString("request_id"); id != "" {
				ctx, _ = WithRequestID(ctx, FromContext(ctx), id)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Set(ginLoggerKey, base)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		}
		For(c.Request.Context(), base).Log(level, "HTTP request", fields...)
	}
}

// Recovery turns a handler panic into a 500 and logs it with its stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			For(c.Request.Context(), base).Error("Panic recovered",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// GetGinLogger returns the request's logger carrying request_id, session_id,
// role and trace ids as far as they are known when it is called.
func GetGinLogger(c *gin.Context) *zap.Logger {
	base, _ := c.Get(ginLoggerKey)
	l, _ := base.(*zap.Logger)
	return For(c.Request.Context(), l)
}
