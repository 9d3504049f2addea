package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReservationRepository implements checkout.ReservationRepository using GORM.
// Every status change is an UPDATE guarded by status = 'PENDING'.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// CreateBatch inserts every reservation of a batch
func (r *GormReservationRepository) CreateBatch(ctx context.Context, batch checkout.ReservationBatch) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]*models.ReservationModel, len(batch))
	for i := range batch {
		rows[i] = models.ReservationModelFromDomain(&batch[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create reservations for %s: %w", batch.Reference(), err)
	}
	return nil
}

// FindByReference returns every reservation sharing reference, ordered by SKU id.
// An unknown reference yields an empty batch.
func (r *GormReservationRepository) FindByReference(ctx context.Context, reference string) (checkout.ReservationBatch, error) {
	return r.find(r.db.WithContext(ctx).Where("reference = ?", reference))
}

// FindPendingBySession returns the session's PENDING reservations
func (r *GormReservationRepository) FindPendingBySession(ctx context.Context, sessionID uuid.UUID) (checkout.ReservationBatch, error) {
	return r.find(r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, string(checkout.ReservationPending)))
}

// FindExpiredPending returns up to limit PENDING reservations with expires_at <= now
func (r *GormReservationRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) (checkout.ReservationBatch, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.ReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", string(checkout.ReservationPending), now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatch(rows), nil
}

// ReleaseIfPending moves one reservation from PENDING to RELEASED.
//
//	UPDATE reservations SET status = 'RELEASED', ... WHERE id = ? AND status = 'PENDING'
func (r *GormReservationRepository) ReleaseIfPending(ctx context.Context, id uuid.UUID, reason checkout.ReleaseReason, at time.Time) (bool, error) {
	at = at.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ReservationModel{}).
		Where("id = ? AND status = ?", id, string(checkout.ReservationPending)).
		Updates(map[string]any{
			"status":         string(checkout.ReservationReleased),
			"released_at":    at,
			"release_reason": string(reason),
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("release reservation %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ConfirmPendingByReference moves every unexpired PENDING reservation of
// reference to CONFIRMED in one statement and returns the number moved.
//
//	UPDATE reservations SET status = 'CONFIRMED', ...
//	WHERE reference = ? AND status = 'PENDING' AND expires_at > ?
func (r *GormReservationRepository) ConfirmPendingByReference(ctx context.Context, reference string, now time.Time) (int64, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ReservationModel{}).
		Where("reference = ? AND status = ? AND expires_at > ?", reference, string(checkout.ReservationPending), now).
		Updates(map[string]any{
			"status":       string(checkout.ReservationConfirmed),
			"confirmed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("confirm reservations for %s: %w", reference, result.Error)
	}
	return result.RowsAffected, nil
}

// SumPendingBySKU returns the quantity held by PENDING reservations of a SKU
func (r *GormReservationRepository) SumPendingBySKU(ctx context.Context, skuID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReservationModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("sku_id = ? AND status = ?", skuID, string(checkout.ReservationPending)).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *GormReservationRepository) find(query *gorm.DB) (checkout.ReservationBatch, error) {
	var rows []models.ReservationModel
	if err := query.Order("sku_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatch(rows), nil
}

func toBatch(rows []models.ReservationModel) checkout.ReservationBatch {
	batch := make(checkout.ReservationBatch, len(rows))
	for i := range rows {
		batch[i] = rows[i].ToDomain()
	}
	return batch
}

// Ensure GormReservationRepository implements checkout.ReservationRepository
var _ checkout.ReservationRepository = (*GormReservationRepository)(nil)
