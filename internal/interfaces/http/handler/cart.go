package handler

import (
	"github.com/gin-gonic/gin"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler serves the cart of the caller's shopping session
type CartHandler struct {
	BaseHandler
	cartService *appcheckout.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *appcheckout.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get godoc
//
//	@Summary		Get cart
//	@Description	Return the items in the session's cart with current availability
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=appcheckout.CartResponse}
//	@Failure		401	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// PutItem godoc
//
//	@Summary		Set cart item quantity
//	@Description	Set the quantity of one SKU in the cart. A quantity of zero removes it.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			request	body		appcheckout.SetCartItemRequest	true	"Cart line"
//	@Success		200		{object}	dto.Response{data=appcheckout.CartResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/cart/items [put]
func (h *CartHandler) PutItem(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req appcheckout.SetCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cart, err := h.cartService.SetItem(c.Request.Context(), sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// DeleteItem godoc
//
//	@Summary		Remove cart item
//	@Tags			cart
//	@Produce		json
//	@Param			sku_id	path		string	true	"SKU ID"
//	@Success		200		{object}	dto.Response{data=appcheckout.CartResponse}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/cart/items/{sku_id} [delete]
func (h *CartHandler) DeleteItem(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	skuID, ok := h.parseUUIDParam(c, "sku_id")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), sessionID, skuID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}
