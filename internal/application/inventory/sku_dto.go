package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/inventory"
)

// PriceInput is one currency price of a SKU
type PriceInput struct {
	Currency  string          `json:"currency" binding:"required,iso4217"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateSKURequest creates a SKU with its opening stock and prices
type CreateSKURequest struct {
	Code        string       `json:"code" binding:"required,sku_code"`
	ProductName string       `json:"product_name" binding:"required,min=1,max=200"`
	Size        string       `json:"size" binding:"max=32"`
	Colour      string       `json:"colour" binding:"max=32"`
	Quantity    int64        `json:"quantity" binding:"min=0"`
	Prices      []PriceInput `json:"prices" binding:"dive"`
}

// RestockRequest adds units to a SKU
type RestockRequest struct {
	Quantity int64  `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason" binding:"max=200"`
}

// SetPricesRequest replaces prices for the given currencies
type SetPricesRequest struct {
	Prices []PriceInput `json:"prices" binding:"required,min=1,dive"`
}

// SKUListFilter represents filter options for the SKU list
type SKUListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PriceResponse is one currency price
type PriceResponse struct {
	Currency  string          `json:"currency"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SKUResponse represents a SKU in API responses. Reserved is the quantity
// held by PENDING reservations; Available plus Reserved is the stock on hand.
type SKUResponse struct {
	ID                uuid.UUID       `json:"id"`
	Code              string          `json:"code"`
	ProductName       string          `json:"product_name"`
	Size              string          `json:"size,omitempty"`
	Colour            string          `json:"colour,omitempty"`
	AvailableQuantity int64           `json:"available_quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	Prices            []PriceResponse `json:"prices,omitempty"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SKUListItemResponse is a SKU row in list responses
type SKUListItemResponse struct {
	ID                uuid.UUID `json:"id"`
	Code              string    `json:"code"`
	ProductName       string    `json:"product_name"`
	Size              string    `json:"size,omitempty"`
	Colour            string    `json:"colour,omitempty"`
	AvailableQuantity int64     `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ToSKUResponse converts a domain SKU to a response
func ToSKUResponse(sku *inventory.SKUStock, reserved int64, prices []catalog.SKUPrice) SKUResponse {
	resp := SKUResponse{
		ID:                sku.ID,
		Code:              sku.Code,
		ProductName:       sku.ProductName,
		Size:              sku.Size,
		Colour:            sku.Colour,
		AvailableQuantity: sku.AvailableQuantity,
		ReservedQuantity:  reserved,
		Version:           sku.Version,
		CreatedAt:         sku.CreatedAt,
		UpdatedAt:         sku.UpdatedAt,
	}
	for _, p := range prices {
		resp.Prices = append(resp.Prices, PriceResponse{
			Currency:  p.Currency.String(),
			UnitPrice: p.UnitPrice,
		})
	}
	return resp
}

// ToSKUListItemResponse converts a domain SKU to a list row
func ToSKUListItemResponse(sku *inventory.SKUStock) SKUListItemResponse {
	return SKUListItemResponse{
		ID:                sku.ID,
		Code:              sku.Code,
		ProductName:       sku.ProductName,
		Size:              sku.Size,
		Colour:            sku.Colour,
		AvailableQuantity: sku.AvailableQuantity,
		UpdatedAt:         sku.UpdatedAt,
	}
}
