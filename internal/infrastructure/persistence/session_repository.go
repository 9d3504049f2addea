package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSessionRepository implements checkout.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create inserts a new session
func (r *GormSessionRepository) Create(ctx context.Context, s *checkout.ShoppingSession) error {
	return r.db.WithContext(ctx).Create(models.ShoppingSessionModelFromDomain(s)).Error
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*checkout.ShoppingSession, error) {
	var model models.ShoppingSessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrNotFound.Code, "Session %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// DeleteExpired removes up to limit sessions that expired before cutoff and
// hold no PENDING reservation, with their cart items. Sessions with confirmed
// orders keep their rows in orders and reservations; only the session and
// cart rows go.
func (r *GormSessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}

	var ids []uuid.UUID
	pending := r.db.Model(&models.ReservationModel{}).
		Select("1").
		Where("reservations.session_id = shopping_sessions.id AND reservations.status = ?", string(checkout.ReservationPending))
	if err := r.db.WithContext(ctx).
		Model(&models.ShoppingSessionModel{}).
		Where("expires_at < ?", cutoff.UTC()).
		Where("NOT EXISTS (?)", pending).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("select expired sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id IN ?", ids).Delete(&models.CartItemModel{}).Error; err != nil {
			return fmt.Errorf("delete cart items of expired sessions: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&models.ShoppingSessionModel{})
		if result.Error != nil {
			return fmt.Errorf("delete expired sessions: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// Ensure GormSessionRepository implements checkout.SessionRepository
var _ checkout.SessionRepository = (*GormSessionRepository)(nil)
