package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationReleased  ReservationStatus = "RELEASED"
)

// IsTerminal reports whether no further transition is allowed
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationConfirmed || s == ReservationReleased
}

// IsValid reports whether s is a known status
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationReleased:
		return true
	}
	return false
}

// ReleaseReason records why a reservation left PENDING without confirming
type ReleaseReason string

const (
	ReleasePaymentFailed    ReleaseReason = "payment_failed"
	ReleasePaymentCancelled ReleaseReason = "payment_cancelled"
	ReleaseExpired          ReleaseReason = "expired"
	ReleaseSuperseded       ReleaseReason = "superseded"
)

// Reservation is a temporary hold of Quantity units of one SKU for a session.
// All reservations created by one checkout attempt share a Reference.
type Reservation struct {
	shared.BaseEntity
	Reference     string
	SessionID     uuid.UUID
	SKUID         uuid.UUID
	Quantity      int64
	UnitPrice     decimal.Decimal
	Status        ReservationStatus
	ExpiresAt     time.Time
	ConfirmedAt   *time.Time
	ReleasedAt    *time.Time
	ReleaseReason ReleaseReason
}

// NewReservation creates a PENDING reservation
func NewReservation(reference string, sessionID, skuID uuid.UUID, qty int64, unitPrice decimal.Decimal, expiresAt time.Time) (*Reservation, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment reference is required")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserved quantity must be positive")
	}
	return &Reservation{
		BaseEntity: shared.NewBaseEntity(),
		Reference:  reference,
		SessionID:  sessionID,
		SKUID:      skuID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
		Status:     ReservationPending,
		ExpiresAt:  expiresAt,
	}, nil
}

// IsPending reports whether the reservation still holds stock
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationPending
}

// IsExpired reports whether the hold has lapsed at now
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Confirm transitions PENDING to CONFIRMED. Released or lapsed holds fail
// with ErrReservationExpired.
func (r *Reservation) Confirm(now time.Time) error {
	switch {
	case r.Status == ReservationConfirmed:
		return shared.NewDomainError("INVALID_STATE", "Reservation is already confirmed")
	case r.Status == ReservationReleased, r.IsExpired(now):
		return shared.ErrReservationExpired
	}
	r.Status = ReservationConfirmed
	r.ConfirmedAt = &now
	r.Touch(now)
	return nil
}

// Release transitions PENDING to RELEASED
func (r *Reservation) Release(now time.Time, reason ReleaseReason) error {
	if r.Status != ReservationPending {
		return shared.NewDomainErrorf("INVALID_STATE", "Reservation is already %s", r.Status)
	}
	r.Status = ReservationReleased
	r.ReleasedAt = &now
	r.ReleaseReason = reason
	r.Touch(now)
	return nil
}

// ReservationBatch is every reservation sharing one payment reference
type ReservationBatch []Reservation

// AllIn reports whether every reservation has the given status
func (b ReservationBatch) AllIn(status ReservationStatus) bool {
	if len(b) == 0 {
		return false
	}
	for i := range b {
		if b[i].Status != status {
			return false
		}
	}
	return true
}

// Pending returns the reservations still in PENDING
func (b ReservationBatch) Pending() ReservationBatch {
	out := make(ReservationBatch, 0, len(b))
	for i := range b {
		if b[i].IsPending() {
			out = append(out, b[i])
		}
	}
	return out
}

// CheckConfirmable fails with ErrReservationExpired if any reservation is
// released or past expiry. A batch is confirmed whole or not at all.
func (b ReservationBatch) CheckConfirmable(now time.Time) error {
	if len(b) == 0 {
		return shared.ErrNotFound
	}
	for i := range b {
		if b[i].Status == ReservationReleased {
			return shared.NewDomainErrorf(shared.ErrReservationExpired.Code,
				"Reservation %s for reference %s was released (%s)", b[i].ID, b[i].Reference, b[i].ReleaseReason)
		}
		if b[i].IsPending() && b[i].IsExpired(now) {
			return shared.NewDomainErrorf(shared.ErrReservationExpired.Code,
				"Reservation %s for reference %s expired at %s", b[i].ID, b[i].Reference, b[i].ExpiresAt.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// Reference returns the shared payment reference, or "" for an empty batch
func (b ReservationBatch) Reference() string {
	if len(b) == 0 {
		return ""
	}
	return b[0].Reference
}

// SessionID returns the owning session
func (b ReservationBatch) SessionID() uuid.UUID {
	if len(b) == 0 {
		return uuid.Nil
	}
	return b[0].SessionID
}
