package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockLedger implements inventory.Ledger with single-statement
// conditional updates on sku_stocks. Each call is atomic on its own and joins
// the surrounding transaction when constructed from a transaction handle.
type GormStockLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStockLedger creates a new GormStockLedger
func NewGormStockLedger(db *gorm.DB) *GormStockLedger {
	return &GormStockLedger{db: db, now: time.Now}
}

// Reserve decrements available_quantity by qty only while at least qty remain.
//
//	UPDATE sku_stocks SET available_quantity = available_quantity - ?
//	WHERE id = ? AND available_quantity >= ?
//
// Zero affected rows means the SKU is missing or short; a follow-up read tells
// the two apart for the error message.
func (l *GormStockLedger) Reserve(ctx context.Context, skuID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}

	result := l.db.WithContext(ctx).
		Model(&models.SKUStockModel{}).
		Where("id = ? AND available_quantity >= ?", skuID, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         l.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("reserve stock for sku %s: %w", skuID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var stock models.SKUStockModel
	if err := l.db.WithContext(ctx).
		Select("id", "code", "available_quantity").
		Where("id = ?", skuID).
		First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.NewSKUNotFoundError(skuID)
		}
		return fmt.Errorf("load sku %s after failed reserve: %w", skuID, err)
	}
	return inventory.NewInsufficientStockError(stock.Code, qty, stock.AvailableQuantity)
}

// Release increments available_quantity by qty.
//
//	UPDATE sku_stocks SET available_quantity = available_quantity + ? WHERE id = ?
func (l *GormStockLedger) Release(ctx context.Context, skuID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}

	result := l.db.WithContext(ctx).
		Model(&models.SKUStockModel{}).
		Where("id = ?", skuID).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         l.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("release stock for sku %s: %w", skuID, result.Error)
	}
	if result.RowsAffected == 0 {
		return inventory.NewSKUNotFoundError(skuID)
	}
	return nil
}

// Available returns the current available quantity of a SKU
func (l *GormStockLedger) Available(ctx context.Context, skuID uuid.UUID) (int64, error) {
	var stock models.SKUStockModel
	if err := l.db.WithContext(ctx).
		Select("id", "available_quantity").
		Where("id = ?", skuID).
		First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, inventory.NewSKUNotFoundError(skuID)
		}
		return 0, fmt.Errorf("read available quantity for sku %s: %w", skuID, err)
	}
	return stock.AvailableQuantity, nil
}

// Ensure GormStockLedger implements inventory.Ledger
var _ inventory.Ledger = (*GormStockLedger)(nil)
