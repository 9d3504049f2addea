package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements checkout.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindBySession returns the session's cart items ordered by SKU id
func (r *GormCartRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]checkout.CartItem, error) {
	var rows []models.CartItemModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sku_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]checkout.CartItem, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindItem returns one cart line
func (r *GormCartRepository) FindItem(ctx context.Context, sessionID, skuID uuid.UUID) (*checkout.CartItem, error) {
	var model models.CartItemModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND sku_id = ?", sessionID, skuID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert sets the quantity of the (session, SKU) line, inserting it if absent
func (r *GormCartRepository) Upsert(ctx context.Context, item *checkout.CartItem) error {
	model := models.CartItemModelFromDomain(item)
	model.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "sku_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(model).Error
}

// Remove deletes one cart line. Removing an absent line is not an error.
func (r *GormCartRepository) Remove(ctx context.Context, sessionID, skuID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND sku_id = ?", sessionID, skuID).
		Delete(&models.CartItemModel{}).Error
}

// ClearSession deletes every cart line of a session
func (r *GormCartRepository) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.CartItemModel{}).Error
}

// Ensure GormCartRepository implements checkout.CartRepository
var _ checkout.CartRepository = (*GormCartRepository)(nil)
