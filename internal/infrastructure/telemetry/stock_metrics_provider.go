package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormStockMetricsProvider implements StockMetricsProvider with aggregate
// queries over the reservations and sku_stocks tables.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// PendingUnits returns the units held by PENDING reservations
func (p *GormStockMetricsProvider) PendingUnits(ctx context.Context) (int64, error) {
	var total int64
	err := p.db.WithContext(ctx).
		Table("reservations").
		Select("COALESCE(SUM(quantity), 0)").
		Where("status = ?", "PENDING").
		Scan(&total).Error
	return total, err
}

// LowStockCount returns the number of SKUs with at most threshold units available
func (p *GormStockMetricsProvider) LowStockCount(ctx context.Context, threshold int64) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("sku_stocks").
		Where("available_quantity <= ?", threshold).
		Count(&count).Error
	return count, err
}
