package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// SKUStockModel is the persistence model for the SKUStock aggregate root.
// available_quantity is only ever changed with conditional UPDATE statements.
type SKUStockModel struct {
	AggregateModel
	Code              string `gorm:"type:varchar(64);not null;uniqueIndex"`
	ProductName       string `gorm:"type:varchar(200);not null"`
	Size              string `gorm:"type:varchar(32)"`
	Colour            string `gorm:"type:varchar(32)"`
	AvailableQuantity int64  `gorm:"not null;default:0;check:chk_sku_stocks_available,available_quantity >= 0"`
}

// TableName returns the table name for GORM
func (SKUStockModel) TableName() string {
	return "sku_stocks"
}

// ToDomain converts the persistence model to a domain SKUStock
func (m *SKUStockModel) ToDomain() *inventory.SKUStock {
	return &inventory.SKUStock{
		BaseAggregateRoot: m.aggregate(),
		Code:              m.Code,
		ProductName:       m.ProductName,
		Size:              m.Size,
		Colour:            m.Colour,
		AvailableQuantity: m.AvailableQuantity,
	}
}

// FromDomain populates the persistence model from a domain SKUStock
func (m *SKUStockModel) FromDomain(s *inventory.SKUStock) {
	m.setAggregate(s.BaseAggregateRoot)
	m.Code = s.Code
	m.ProductName = s.ProductName
	m.Size = s.Size
	m.Colour = s.Colour
	m.AvailableQuantity = s.AvailableQuantity
}

// SKUStockModelFromDomain creates a new persistence model from a domain SKUStock
func SKUStockModelFromDomain(s *inventory.SKUStock) *SKUStockModel {
	m := &SKUStockModel{}
	m.FromDomain(s)
	return m
}

// SKUPriceModel stores one unit price per (SKU, currency)
type SKUPriceModel struct {
	SKUID     uuid.UUID       `gorm:"column:sku_id;type:uuid;primaryKey"`
	Currency  string          `gorm:"type:varchar(3);primaryKey"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SKUPriceModel) TableName() string {
	return "sku_prices"
}

// ToDomain converts the persistence model to a domain SKUPrice
func (m *SKUPriceModel) ToDomain() catalog.SKUPrice {
	return catalog.SKUPrice{
		SKUID:     m.SKUID,
		Currency:  valueobject.Currency(m.Currency),
		UnitPrice: m.UnitPrice,
	}
}

// SKUPriceModelFromDomain creates a persistence model stamped with now
func SKUPriceModelFromDomain(p catalog.SKUPrice, now time.Time) *SKUPriceModel {
	return &SKUPriceModel{
		SKUID:     p.SKUID,
		Currency:  p.Currency.String(),
		UnitPrice: p.UnitPrice,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}
