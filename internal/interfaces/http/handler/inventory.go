package handler

import (
	"github.com/gin-gonic/gin"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// InventoryHandler serves SKU administration for staff
type InventoryHandler struct {
	BaseHandler
	skuService *appinventory.SKUService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(skuService *appinventory.SKUService) *InventoryHandler {
	return &InventoryHandler{skuService: skuService}
}

// CreateSKU godoc
//
//	@Summary		Create SKU
//	@Description	Create a SKU with its opening stock and per-currency prices
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			request	body		appinventory.CreateSKURequest	true	"SKU"
//	@Success		201		{object}	dto.Response{data=appinventory.SKUResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		409		{object}	dto.Response	"SKU code already exists"
//	@Security		BearerAuth
//	@Router			/api/v1/inventory/skus [post]
func (h *InventoryHandler) CreateSKU(c *gin.Context) {
	var req appinventory.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sku, err := h.skuService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sku)
}

// GetSKU godoc
//
//	@Summary		Get SKU
//	@Tags			inventory
//	@Produce		json
//	@Param			id	path		string	true	"SKU ID"
//	@Success		200	{object}	dto.Response{data=appinventory.SKUResponse}
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/inventory/skus/{id} [get]
func (h *InventoryHandler) GetSKU(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	sku, err := h.skuService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sku)
}

// ListSKUs godoc
//
//	@Summary		List SKUs
//	@Tags			inventory
//	@Produce		json
//	@Param			search		query		string	false	"Code or product name"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)
//	@Param			order_by	query		string	false	"Sort field"
//	@Param			order_dir	query		string	false	"asc or desc"
//	@Success		200			{object}	dto.Response{data=[]appinventory.SKUListItemResponse,meta=dto.Meta}
//	@Security		BearerAuth
//	@Router			/api/v1/inventory/skus [get]
func (h *InventoryHandler) ListSKUs(c *gin.Context) {
	var filter appinventory.SKUListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	items, total, err := h.skuService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Restock godoc
//
//	@Summary		Restock SKU
//	@Description	Add units to a SKU's available stock
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"SKU ID"
//	@Param			request	body		appinventory.RestockRequest	true	"Units to add"
//	@Success		200		{object}	dto.Response{data=appinventory.SKUResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/inventory/skus/{id}/restock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req appinventory.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sku, err := h.skuService.Restock(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sku)
}

// SetPrices godoc
//
//	@Summary		Set SKU prices
//	@Description	Replace the SKU's prices for the given currencies
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"SKU ID"
//	@Param			request	body		appinventory.SetPricesRequest	true	"Prices"
//	@Success		200		{object}	dto.Response{data=appinventory.SKUResponse}
//	@Security		BearerAuth
//	@Router			/api/v1/inventory/skus/{id}/prices [put]
func (h *InventoryHandler) SetPrices(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req appinventory.SetPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sku, err := h.skuService.SetPrices(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sku)
}
