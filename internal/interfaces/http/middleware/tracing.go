// Package middleware provides HTTP middleware for the storefront API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	spanRequestID = attribute.Key("request_id")
	spanSessionID = attribute.Key("session_id")
	spanRole      = attribute.Key("role")
)

// Tracing returns the request tracing chain: an otelgin server span named
// "METHOD /route" and a handler that tags it with the request id and marks
// it failed on any 4xx or 5xx. An empty serviceName disables tracing.
func Tracing(serviceName string) []gin.HandlerFunc {
	if serviceName == "" {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := c.GetString("request_id"); id != "" {
		span.SetAttributes(spanRequestID.String(id))
	}

	c.Next()

	// otelgin leaves 4xx server spans unset
	if status := c.Writer.Status(); status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SpanCaller tags the request span with the authenticated session and role.
// Mount it after the JWT middleware.
func SpanCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			if sid := c.GetString(JWTSessionIDKey); sid != "" {
				span.SetAttributes(spanSessionID.String(sid))
			}
			if role := GetRole(c); role != "" {
				span.SetAttributes(spanRole.String(string(role)))
			}
		}
		c.Next()
	}
}
