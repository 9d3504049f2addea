package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ShoppingSessionModel is the persistence model for a shopping session
type ShoppingSessionModel struct {
	BaseModel
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ShoppingSessionModel) TableName() string {
	return "shopping_sessions"
}

// ToDomain converts the persistence model to a domain ShoppingSession
func (m *ShoppingSessionModel) ToDomain() *checkout.ShoppingSession {
	return &checkout.ShoppingSession{
		BaseEntity: m.entity(),
		ExpiresAt:  m.ExpiresAt,
	}
}

// ShoppingSessionModelFromDomain creates a persistence model from a domain session
func ShoppingSessionModelFromDomain(s *checkout.ShoppingSession) *ShoppingSessionModel {
	m := &ShoppingSessionModel{ExpiresAt: s.ExpiresAt.UTC()}
	m.setEntity(s.BaseEntity)
	return m
}

// CartItemModel is one (session, SKU) cart line. Both sides are plain foreign keys.
type CartItemModel struct {
	BaseModel
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_session_sku,priority:1"`
	SKUID     uuid.UUID `gorm:"column:sku_id;type:uuid;not null;uniqueIndex:idx_cart_items_session_sku,priority:2"`
	Quantity  int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain CartItem
func (m *CartItemModel) ToDomain() *checkout.CartItem {
	return &checkout.CartItem{
		BaseEntity: m.entity(),
		SessionID:  m.SessionID,
		SKUID:      m.SKUID,
		Quantity:   m.Quantity,
	}
}

// CartItemModelFromDomain creates a persistence model from a domain cart item
func CartItemModelFromDomain(c *checkout.CartItem) *CartItemModel {
	m := &CartItemModel{
		SessionID: c.SessionID,
		SKUID:     c.SKUID,
		Quantity:  c.Quantity,
	}
	m.setEntity(c.BaseEntity)
	return m
}

// ReservationModel is the persistence model for a stock reservation
type ReservationModel struct {
	BaseModel
	Reference     string          `gorm:"type:varchar(64);not null;index"`
	SessionID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKUID         uuid.UUID       `gorm:"column:sku_id;type:uuid;not null;index"`
	Quantity      int64           `gorm:"not null;check:chk_reservations_quantity,quantity > 0"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status        string          `gorm:"type:varchar(16);not null;index:idx_reservations_status_expiry,priority:1"`
	ExpiresAt     time.Time       `gorm:"not null;index:idx_reservations_status_expiry,priority:2"`
	ConfirmedAt   *time.Time
	ReleasedAt    *time.Time
	ReleaseReason string `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ToDomain converts the persistence model to a domain Reservation
func (m *ReservationModel) ToDomain() checkout.Reservation {
	return checkout.Reservation{
		BaseEntity:    m.entity(),
		Reference:     m.Reference,
		SessionID:     m.SessionID,
		SKUID:         m.SKUID,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		Status:        checkout.ReservationStatus(m.Status),
		ExpiresAt:     m.ExpiresAt,
		ConfirmedAt:   m.ConfirmedAt,
		ReleasedAt:    m.ReleasedAt,
		ReleaseReason: checkout.ReleaseReason(m.ReleaseReason),
	}
}

// ReservationModelFromDomain creates a persistence model from a domain reservation
func ReservationModelFromDomain(r *checkout.Reservation) *ReservationModel {
	m := &ReservationModel{
		Reference:     r.Reference,
		SessionID:     r.SessionID,
		SKUID:         r.SKUID,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt.UTC(),
		ConfirmedAt:   utcPtr(r.ConfirmedAt),
		ReleasedAt:    utcPtr(r.ReleasedAt),
		ReleaseReason: string(r.ReleaseReason),
	}
	m.setEntity(r.BaseEntity)
	return m
}

// CheckoutModel is the priced snapshot behind one payment reference
type CheckoutModel struct {
	BaseModel
	Reference string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Currency  string          `gorm:"type:varchar(3);not null"`
	Country   string          `gorm:"type:varchar(2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Shipping  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status    string          `gorm:"type:varchar(16);not null"`
	ExpiresAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckoutModel) TableName() string {
	return "checkouts"
}

// ToDomain converts the persistence model to a domain Checkout
func (m *CheckoutModel) ToDomain() *checkout.Checkout {
	return &checkout.Checkout{
		BaseEntity: m.entity(),
		Reference:  m.Reference,
		SessionID:  m.SessionID,
		Currency:   valueobject.Currency(m.Currency),
		Country:    m.Country,
		Subtotal:   m.Subtotal,
		Shipping:   m.Shipping,
		Tax:        m.Tax,
		Total:      m.Total,
		Status:     checkout.ReservationStatus(m.Status),
		ExpiresAt:  m.ExpiresAt,
	}
}

// CheckoutModelFromDomain creates a persistence model from a domain checkout
func CheckoutModelFromDomain(c *checkout.Checkout) *CheckoutModel {
	m := &CheckoutModel{
		Reference: c.Reference,
		SessionID: c.SessionID,
		Currency:  c.Currency.String(),
		Country:   c.Country,
		Subtotal:  c.Subtotal,
		Shipping:  c.Shipping,
		Tax:       c.Tax,
		Total:     c.Total,
		Status:    string(c.Status),
		ExpiresAt: c.ExpiresAt.UTC(),
	}
	m.setEntity(c.BaseEntity)
	return m
}

// OrderModel is the persistence model for the Order aggregate root.
// Lines are stored in order_lines and loaded explicitly by order_id.
type OrderModel struct {
	AggregateModel
	Reference         string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SessionID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	ProviderEventID   string          `gorm:"type:varchar(128)"`
	ProviderPaymentID string          `gorm:"type:varchar(128)"`
	ProviderAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ProviderCurrency  string          `gorm:"type:varchar(3)"`
	ConfirmedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model and its lines to a domain Order
func (m *OrderModel) ToDomain(lines []OrderLineModel) *checkout.Order {
	o := &checkout.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.entity(),
			Version:    m.Version,
		},
		Reference:         m.Reference,
		SessionID:         m.SessionID,
		Amount:            m.Amount,
		Currency:          valueobject.Currency(m.Currency),
		ProviderEventID:   m.ProviderEventID,
		ProviderPaymentID: m.ProviderPaymentID,
		ProviderAmount:    m.ProviderAmount,
		ProviderCurrency:  m.ProviderCurrency,
		ConfirmedAt:       m.ConfirmedAt,
		Lines:             make([]checkout.OrderLine, len(lines)),
	}
	for i := range lines {
		o.Lines[i] = lines[i].ToDomain()
	}
	return o
}

// OrderModelFromDomain creates the order row and its line rows
func OrderModelFromDomain(o *checkout.Order) (*OrderModel, []OrderLineModel) {
	m := &OrderModel{
		Reference:         o.Reference,
		SessionID:         o.SessionID,
		Amount:            o.Amount,
		Currency:          o.Currency.String(),
		ProviderEventID:   o.ProviderEventID,
		ProviderPaymentID: o.ProviderPaymentID,
		ProviderAmount:    o.ProviderAmount,
		ProviderCurrency:  o.ProviderCurrency,
		ConfirmedAt:       o.ConfirmedAt.UTC(),
	}
	m.setAggregate(o.BaseAggregateRoot)

	lines := make([]OrderLineModel, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineModel{
			ID:        l.ID,
			OrderID:   o.ID,
			SKUID:     l.SKUID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return m, lines
}

// OrderLineModel is one line of an order
type OrderLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKUID     uuid.UUID       `gorm:"column:sku_id;type:uuid;not null"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() checkout.OrderLine {
	return checkout.OrderLine{
		ID:        m.ID,
		OrderID:   m.OrderID,
		SKUID:     m.SKUID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}
