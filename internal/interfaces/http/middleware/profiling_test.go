package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestProfiling_KeepsRequestContext(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, "kept"))
			c.Next()
		})
		router.Use(Profiling(enabled))
		router.GET("/api/v1/orders", func(c *gin.Context) {
			c.String(http.StatusOK, c.Request.Context().Value(ctxKey{}).(string))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "kept", w.Body.String())
	}
}

func TestProfilingLabels(t *testing.T) {
	var labels map[string]string

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTClaimsKey, &auth.Claims{Role: auth.RoleStaff})
		c.Next()
	})
	router.GET("/api/v1/orders/:reference", func(c *gin.Context) {
		labels = profilingLabels(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc", nil))

	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelMethod:    http.MethodGet,
		telemetry.ProfilingLabelRoute:     "/api/v1/orders/:reference",
		telemetry.ProfilingLabelOperation: "orders",
		telemetry.ProfilingLabelRole:      "STAFF",
	}, labels)
}

func TestRouteResource(t *testing.T) {
	tests := map[string]string{
		"/api/v1/orders/:reference":          "orders",
		"/api/v1/inventory/skus/:id/restock": "inventory",
		"/api/V12/cart/items":                "cart",
		"/payment":                           "payment",
		"/api/orders":                        "api",
		"/api/v1":                            "",
		"/:id":                               "",
		"":                                   "",
	}
	for route, want := range tests {
		assert.Equal(t, want, routeResource(route), route)
	}
}
