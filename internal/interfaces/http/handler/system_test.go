package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping without deadline")
	}
	return p.err
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("storefront-backend", "1.2.0", stubPinger{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "storefront-backend", data["name"])
	assert.Equal(t, "1.2.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("storefront-backend", "dev", stubPinger{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		h := NewSystemHandler("storefront-backend", "dev", stubPinger{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "ok", data["database"])
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler("storefront-backend", "dev", stubPinger{err: errors.New("connection refused")})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
		c.Set(RequestIDKey, "req-health")

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, resp.Error.Code)
		assert.Equal(t, "req-health", resp.Error.RequestID)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
