package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
)

// SessionResponse is a newly started shopping session with its bearer token
type SessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CartItemResponse is one cart line with the SKU's current availability
type CartItemResponse struct {
	SKUID             uuid.UUID `json:"sku_id"`
	SKUCode           string    `json:"sku_code"`
	ProductName       string    `json:"product_name"`
	Size              string    `json:"size,omitempty"`
	Colour            string    `json:"colour,omitempty"`
	Quantity          int64     `json:"quantity"`
	AvailableQuantity int64     `json:"available_quantity"`
}

// CartResponse is the content of a session's cart
type CartResponse struct {
	SessionID  uuid.UUID          `json:"session_id"`
	Items      []CartItemResponse `json:"items"`
	TotalUnits int64              `json:"total_units"`
}

// SetCartItemRequest sets the quantity of one SKU in the cart. Zero removes it.
type SetCartItemRequest struct {
	SKUID    uuid.UUID `json:"sku_id" binding:"required"`
	Quantity int64     `json:"quantity" binding:"min=0,max=1000"`
}

// CheckoutLineResponse is one priced and reserved line
type CheckoutLineResponse struct {
	SKUID     uuid.UUID       `json:"sku_id"`
	SKUCode   string          `json:"sku_code"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CheckoutResponse is the result of pricing and reserving a cart
type CheckoutResponse struct {
	Reference string                 `json:"reference"`
	Currency  string                 `json:"currency"`
	Country   string                 `json:"country"`
	Subtotal  decimal.Decimal        `json:"subtotal"`
	Shipping  decimal.Decimal        `json:"shipping"`
	Tax       decimal.Decimal        `json:"tax"`
	TaxRate   decimal.Decimal        `json:"tax_rate"`
	Total     decimal.Decimal        `json:"total"`
	ExpiresAt time.Time              `json:"expires_at"`
	Lines     []CheckoutLineResponse `json:"lines"`
}

// OrderLineResponse is one line of a confirmed order
type OrderLineResponse struct {
	SKUID     uuid.UUID       `json:"sku_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderResponse is a confirmed order
type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	Reference         string              `json:"reference"`
	SessionID         uuid.UUID           `json:"session_id"`
	Amount            decimal.Decimal     `json:"amount"`
	Currency          string              `json:"currency"`
	ProviderPaymentID string              `json:"provider_payment_id,omitempty"`
	AmountMismatch    bool                `json:"amount_mismatch"`
	ConfirmedAt       time.Time           `json:"confirmed_at"`
	Lines             []OrderLineResponse `json:"lines"`
}

func toCheckoutResponse(co *checkout.Checkout, quote *pricing.Quote) *CheckoutResponse {
	resp := &CheckoutResponse{
		Reference: co.Reference,
		Currency:  co.Currency.String(),
		Country:   co.Country,
		Subtotal:  co.Subtotal,
		Shipping:  co.Shipping,
		Tax:       co.Tax,
		TaxRate:   quote.TaxRate,
		Total:     co.Total,
		ExpiresAt: co.ExpiresAt,
		Lines:     make([]CheckoutLineResponse, 0, len(quote.Lines)),
	}
	for _, l := range quote.Lines {
		resp.Lines = append(resp.Lines, CheckoutLineResponse{
			SKUID:     l.SKUID,
			SKUCode:   l.SKUCode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal.Amount(),
		})
	}
	return resp
}

func toCartItemResponse(item checkout.CartItem, sku *inventory.SKUStock) CartItemResponse {
	resp := CartItemResponse{
		SKUID:    item.SKUID,
		Quantity: item.Quantity,
	}
	if sku != nil {
		resp.SKUCode = sku.Code
		resp.ProductName = sku.ProductName
		resp.Size = sku.Size
		resp.Colour = sku.Colour
		resp.AvailableQuantity = sku.AvailableQuantity
	}
	return resp
}

// ToOrderResponse converts a domain order to its response form
func ToOrderResponse(o *checkout.Order) OrderResponse {
	resp := OrderResponse{
		ID:                o.ID,
		Reference:         o.Reference,
		SessionID:         o.SessionID,
		Amount:            o.Amount,
		Currency:          o.Currency.String(),
		ProviderPaymentID: o.ProviderPaymentID,
		AmountMismatch:    o.AmountMismatch(),
		ConfirmedAt:       o.ConfirmedAt,
		Lines:             make([]OrderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			SKUID:     l.SKUID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return resp
}
