package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// echoLength reports how many body bytes the handler managed to read
func echoLength(c *gin.Context) {
	b, err := io.ReadAll(c.Request.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.String(http.StatusRequestEntityTooLarge, "limit %d", tooLarge.Limit)
		return
	}
	c.String(http.StatusOK, "%d", len(b))
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		body       string
		chunked    bool
		wantStatus int
		wantBody   string
	}{
		{name: "within limit", limit: 64, body: `{"sku_id":"a","quantity":1}`, wantStatus: http.StatusOK, wantBody: "27"},
		{name: "declared length over limit", limit: 16, body: strings.Repeat("x", 32), wantStatus: http.StatusRequestEntityTooLarge, wantBody: "ERR_PAYLOAD_TOO_LARGE"},
		{name: "chunked over limit", limit: 16, body: strings.Repeat("x", 32), chunked: true, wantStatus: http.StatusRequestEntityTooLarge, wantBody: "limit 16"},
		{name: "chunked within limit", limit: 64, body: "hello", chunked: true, wantStatus: http.StatusOK, wantBody: "5"},
		{name: "disabled", limit: 0, body: strings.Repeat("x", 1<<12), wantStatus: http.StatusOK, wantBody: "4096"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(BodyLimit(tt.limit))
			router.POST("/api/v1/cart/items", echoLength)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestBodyLimit_NoBody(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(8))
	router.GET("/api/v1/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
