package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository persists shopping sessions
type SessionRepository interface {
	Create(ctx context.Context, s *ShoppingSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*ShoppingSession, error)

	// DeleteExpired removes up to limit sessions that expired before cutoff and
	// hold no PENDING reservation, together with their cart items.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// CartRepository persists cart items keyed by (session, SKU)
type CartRepository interface {
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]CartItem, error)
	FindItem(ctx context.Context, sessionID, skuID uuid.UUID) (*CartItem, error)

	// Upsert sets the quantity of the (session, SKU) line
	Upsert(ctx context.Context, item *CartItem) error
	Remove(ctx context.Context, sessionID, skuID uuid.UUID) error
	ClearSession(ctx context.Context, sessionID uuid.UUID) error
}

// ReservationRepository persists reservations. Status changes are conditional
// updates guarded by the current status, never read-modify-write.
type ReservationRepository interface {
	CreateBatch(ctx context.Context, batch ReservationBatch) error
	FindByReference(ctx context.Context, reference string) (ReservationBatch, error)
	FindPendingBySession(ctx context.Context, sessionID uuid.UUID) (ReservationBatch, error)

	// FindExpiredPending returns up to limit PENDING reservations whose expiry is at or before now
	FindExpiredPending(ctx context.Context, now time.Time, limit int) (ReservationBatch, error)

	// ReleaseIfPending moves one reservation from PENDING to RELEASED. It returns
	// false when the reservation had already left PENDING.
	ReleaseIfPending(ctx context.Context, id uuid.UUID, reason ReleaseReason, at time.Time) (bool, error)

	// ConfirmPendingByReference moves every PENDING reservation of reference that
	// has not expired at now to CONFIRMED and returns the number moved.
	ConfirmPendingByReference(ctx context.Context, reference string, now time.Time) (int64, error)

	// SumPendingBySKU returns the quantity held by PENDING reservations of a SKU
	SumPendingBySKU(ctx context.Context, skuID uuid.UUID) (int64, error)
}

// CheckoutRepository persists priced checkout snapshots
type CheckoutRepository interface {
	Create(ctx context.Context, c *Checkout) error
	FindByReference(ctx context.Context, reference string) (*Checkout, error)
	UpdateStatus(ctx context.Context, reference string, status ReservationStatus, at time.Time) error
}

// OrderRepository persists orders and their lines. Orders are never updated.
type OrderRepository interface {
	// Create inserts the order and its lines. A second order for the same
	// reference fails with shared.ErrAlreadyExists.
	Create(ctx context.Context, o *Order) error
	FindByReference(ctx context.Context, reference string) (*Order, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]Order, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
}
