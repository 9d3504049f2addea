package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderHandler serves confirmed orders
type OrderHandler struct {
	BaseHandler
	orderService *appcheckout.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *appcheckout.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List godoc
//
//	@Summary		List orders
//	@Description	List the confirmed orders of the caller's shopping session
//	@Tags			orders
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=[]appcheckout.OrderResponse}
//	@Failure		401	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListForSession(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// GetByReference godoc
//
//	@Summary		Get order by payment reference
//	@Description	Customers read their own session's orders. Staff may read any order.
//	@Tags			orders
//	@Produce		json
//	@Param			reference	path		string	true	"Payment reference"
//	@Success		200			{object}	dto.Response{data=appcheckout.OrderResponse}
//	@Failure		404			{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/orders/{reference} [get]
func (h *OrderHandler) GetByReference(c *gin.Context) {
	readAny := middleware.HasCapability(c, auth.CapOrdersReadAny)

	sessionID, ok := middleware.GetSessionID(c)
	if !ok && !readAny {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "A shopping session token is required")
		return
	}
	if !ok {
		sessionID = uuid.Nil
	}

	order, err := h.orderService.GetByReference(c.Request.Context(), c.Param("reference"), sessionID, readAny)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
