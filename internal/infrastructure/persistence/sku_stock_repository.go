package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSKUStockRepository implements SKUStockRepository using GORM
type GormSKUStockRepository struct {
	db *gorm.DB
}

// NewGormSKUStockRepository creates a new GormSKUStockRepository
func NewGormSKUStockRepository(db *gorm.DB) *GormSKUStockRepository {
	return &GormSKUStockRepository{db: db}
}

// FindByID finds a SKU by its ID
func (r *GormSKUStockRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.SKUStock, error) {
	var model models.SKUStockModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.NewSKUNotFoundError(id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a SKU by its code
func (r *GormSKUStockRepository) FindByCode(ctx context.Context, code string) (*inventory.SKUStock, error) {
	var model models.SKUStockModel
	if err := r.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the SKUs that exist among ids, in no particular order
func (r *GormSKUStockRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.SKUStock, error) {
	if len(ids) == 0 {
		return []inventory.SKUStock{}, nil
	}
	var rows []models.SKUStockModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.SKUStock, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// List returns a page of SKUs and the total count matching the filter
func (r *GormSKUStockRepository) List(ctx context.Context, filter shared.Filter) ([]inventory.SKUStock, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SKUStockModel{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(product_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SKUStockModel
	if err := query.
		Order(skuSort.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]inventory.SKUStock, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts a new SKU. A duplicate code fails with shared.ErrAlreadyExists.
func (r *GormSKUStockRepository) Create(ctx context.Context, sku *inventory.SKUStock) error {
	model := models.SKUStockModelFromDomain(sku)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainErrorf(shared.ErrAlreadyExists.Code, "SKU code %s already exists", sku.Code)
		}
		return fmt.Errorf("create sku %s: %w", sku.Code, err)
	}
	return nil
}

// AddStock atomically increments available quantity by qty
func (r *GormSKUStockRepository) AddStock(ctx context.Context, id uuid.UUID, qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	result := r.db.WithContext(ctx).
		Model(&models.SKUStockModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("restock sku %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return inventory.NewSKUNotFoundError(id)
	}
	return nil
}

// Ensure GormSKUStockRepository implements SKUStockRepository
var _ inventory.SKUStockRepository = (*GormSKUStockRepository)(nil)
