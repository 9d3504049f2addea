package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements checkout.OrderRepository using GORM.
// Lines are stored and loaded by order_id; no GORM associations are used.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the order and its lines. The unique index on orders.reference
// turns a second order for one reference into shared.ErrAlreadyExists.
func (r *GormOrderRepository) Create(ctx context.Context, o *checkout.Order) error {
	order, lines := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.NewDomainErrorf(shared.ErrAlreadyExists.Code, "Order for reference %s already exists", o.Reference)
			}
			return fmt.Errorf("create order %s: %w", o.Reference, err)
		}
		if len(lines) == 0 {
			return nil
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("create order lines for %s: %w", o.Reference, err)
		}
		return nil
	})
}

// FindByReference finds the order for a payment reference with its lines
func (r *GormOrderRepository) FindByReference(ctx context.Context, reference string) (*checkout.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrNotFound.Code, "Order %s not found", reference)
		}
		return nil, err
	}
	lines, err := r.loadLines(ctx, []uuid.UUID{model.ID})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(lines[model.ID]), nil
}

// FindBySession returns the session's orders, newest first, with their lines
func (r *GormOrderRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]checkout.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("confirmed_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []checkout.Order{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]checkout.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain(lines[rows[i].ID])
	}
	return out, nil
}

// ExistsByReference reports whether an order exists for reference
func (r *GormOrderRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("reference = ?", reference).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormOrderRepository) loadLines(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderLineModel, error) {
	var rows []models.OrderLineModel
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("sku_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	out := make(map[uuid.UUID][]models.OrderLineModel, len(orderIDs))
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], row)
	}
	return out, nil
}

// Ensure GormOrderRepository implements checkout.OrderRepository
var _ checkout.OrderRepository = (*GormOrderRepository)(nil)
