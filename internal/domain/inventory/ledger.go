package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Ledger is the single source of truth for available quantity per SKU.
//
// Reserve and Release are conditional atomic updates executed by the store.
// There is no Confirm: confirming a reservation only changes the reservation's
// status because its stock was already taken at reserve time.
type Ledger interface {
	// Reserve decrements available quantity by qty if at least qty is available.
	// It fails with an insufficient stock error naming the SKU otherwise.
	Reserve(ctx context.Context, skuID uuid.UUID, qty int64) error

	// Release returns qty units. Callers guard against double release by
	// transitioning the owning reservation out of PENDING first.
	Release(ctx context.Context, skuID uuid.UUID, qty int64) error

	// Available returns the current available quantity
	Available(ctx context.Context, skuID uuid.UUID) (int64, error)
}

// NewInsufficientStockError names the SKU that could not be reserved.
// It matches shared.ErrInsufficientStock under errors.Is.
func NewInsufficientStockError(code string, requested, available int64) *shared.DomainError {
	return shared.NewDomainErrorf(shared.ErrInsufficientStock.Code,
		"Insufficient stock for SKU %s: requested %d, available %d", code, requested, available)
}

// NewSKUNotFoundError reports a SKU id that does not exist
func NewSKUNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainErrorf(shared.ErrNotFound.Code, "SKU %s not found", id)
}
