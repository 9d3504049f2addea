package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func spanNamed(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no ended span named %q", name)
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	assert.Empty(t, Tracing(""))

	router := gin.New()
	router.Use(Tracing("")...)
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_CallerAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	svc := newTestJWTService()
	sessionID := uuid.New()

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing("storefront-test")...)
	router.Use(JWTAuthMiddleware(svc), SpanCaller())
	router.GET("/api/v1/cart", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Request-ID", "req-cart-1")
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, svc, sessionID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanNamed(t, sr, "GET /api/v1/cart")
	v, ok := attrValue(span, "request_id")
	assert.True(t, ok)
	assert.Equal(t, "req-cart-1", v.AsString())
	v, ok = attrValue(span, "session_id")
	assert.True(t, ok)
	assert.Equal(t, sessionID.String(), v.AsString())
	v, ok = attrValue(span, "role")
	assert.True(t, ok)
	assert.Equal(t, "CUSTOMER", v.AsString())
}

func TestTracing_MarksClientErrors(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing("storefront-test")...)
	router.POST("/payment", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	failed := spanNamed(t, sr, "POST /payment")
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "Unauthorized", failed.Status().Description)

	ok := spanNamed(t, sr, "GET /health")
	assert.NotEqual(t, codes.Error, ok.Status().Code)
}
