package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPriceRepository implements catalog.PriceRepository using GORM
type GormPriceRepository struct {
	db *gorm.DB
}

// NewGormPriceRepository creates a new GormPriceRepository
func NewGormPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

// FindUnitPrices returns unit prices in currency keyed by SKU id
func (r *GormPriceRepository) FindUnitPrices(ctx context.Context, skuIDs []uuid.UUID, currency valueobject.Currency) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(skuIDs))
	if len(skuIDs) == 0 {
		return out, nil
	}
	var rows []models.SKUPriceModel
	if err := r.db.WithContext(ctx).
		Where("sku_id IN ? AND currency = ?", skuIDs, currency.String()).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s prices: %w", currency, err)
	}
	for _, row := range rows {
		out[row.SKUID] = row.UnitPrice
	}
	return out, nil
}

// FindBySKU returns every currency price of a SKU
func (r *GormPriceRepository) FindBySKU(ctx context.Context, skuID uuid.UUID) ([]catalog.SKUPrice, error) {
	var rows []models.SKUPriceModel
	if err := r.db.WithContext(ctx).
		Where("sku_id = ?", skuID).
		Order("currency ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.SKUPrice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Upsert inserts prices or replaces the unit price of existing (sku, currency) pairs
func (r *GormPriceRepository) Upsert(ctx context.Context, prices []catalog.SKUPrice) error {
	if len(prices) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]*models.SKUPriceModel, len(prices))
	for i := range prices {
		rows[i] = models.SKUPriceModelFromDomain(prices[i], now)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku_id"}, {Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit_price", "updated_at"}),
		}).
		Create(&rows).Error
}

// Ensure GormPriceRepository implements catalog.PriceRepository
var _ catalog.PriceRepository = (*GormPriceRepository)(nil)
