package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key set by the RequestID middleware
const RequestIDKey = "request_id"

// BaseHandler is embedded by every handler for the response envelope
// helpers
type BaseHandler struct{}

// getRequestID prefers the id minted by the middleware over the raw header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

func (BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

func (BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

func (BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// Error writes an error envelope carrying the request id
func (BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, getRequestID(c)))
}

// HandleError answers a domain error with the status its code maps to.
// Any other error is logged and answered with a bare 500.
func (h BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// sessionID is the shopping session of a customer token. Operator and
// anonymous callers get a 401.
func (h BaseHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "A shopping session token is required")
		return uuid.Nil, false
	}
	return id, true
}

func (h BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
