package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCheckoutRepository implements checkout.CheckoutRepository using GORM
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository
func NewGormCheckoutRepository(db *gorm.DB) *GormCheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// Create inserts a checkout snapshot
func (r *GormCheckoutRepository) Create(ctx context.Context, c *checkout.Checkout) error {
	if err := r.db.WithContext(ctx).Create(models.CheckoutModelFromDomain(c)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainErrorf(shared.ErrAlreadyExists.Code, "Checkout %s already exists", c.Reference)
		}
		return fmt.Errorf("create checkout %s: %w", c.Reference, err)
	}
	return nil
}

// FindByReference finds the snapshot for a payment reference
func (r *GormCheckoutRepository) FindByReference(ctx context.Context, reference string) (*checkout.Checkout, error) {
	var model models.CheckoutModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrNotFound.Code, "Checkout %s not found", reference)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus moves a PENDING checkout to status. A checkout already out of
// PENDING is left untouched.
func (r *GormCheckoutRepository) UpdateStatus(ctx context.Context, reference string, status checkout.ReservationStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutModel{}).
		Where("reference = ? AND status = ?", reference, string(checkout.ReservationPending)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at.UTC(),
		}).Error
}

// Ensure GormCheckoutRepository implements checkout.CheckoutRepository
var _ checkout.CheckoutRepository = (*GormCheckoutRepository)(nil)
