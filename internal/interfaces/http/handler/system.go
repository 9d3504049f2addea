package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name        string
	version     string
	db          Pinger
	pingTimeout time.Duration
	startTime   time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger) *SystemHandler {
	return &SystemHandler{
		name:        name,
		version:     version,
		db:          db,
		pingTimeout: 2 * time.Second,
		startTime:   time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"storefront-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
	Uptime   string `json:"uptime" example:"1h30m45s"`
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /api/v1/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    h.uptime(),
	}

	c.JSON(http.StatusOK, dto.OK(info))
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /api/v1/system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.OK(response))
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Description  Report service status and database reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.GetGinLogger(c).Error("Database ping failed", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Database unavailable")
		return
	}

	h.Success(c, HealthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   h.uptime(),
	})
}

func (h *SystemHandler) uptime() string {
	return time.Since(h.startTime).Round(time.Second).String()
}
