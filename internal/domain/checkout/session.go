// Package checkout models shopping sessions, carts, stock reservations and
// the orders they turn into once payment is confirmed.
package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ShoppingSession identifies an anonymous cart owner
type ShoppingSession struct {
	shared.BaseEntity
	ExpiresAt time.Time
}

// NewShoppingSession starts a session that lives for ttl
func NewShoppingSession(ttl time.Duration, now time.Time) (*ShoppingSession, error) {
	if ttl <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Session TTL must be positive")
	}
	return &ShoppingSession{
		BaseEntity: shared.NewBaseEntityAt(now),
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session is past its expiry at now
func (s *ShoppingSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// EnsureActive returns ErrSessionExpired once the session has expired
func (s *ShoppingSession) EnsureActive(now time.Time) error {
	if s.IsExpired(now) {
		return shared.ErrSessionExpired
	}
	return nil
}

// CartItem is a (session, SKU, quantity) tuple. Sessions and SKUs are
// referenced by id only.
type CartItem struct {
	shared.BaseEntity
	SessionID uuid.UUID
	SKUID     uuid.UUID
	Quantity  int64
}

// NewCartItem validates and creates a cart line
func NewCartItem(sessionID, skuID uuid.UUID, qty int64) (*CartItem, error) {
	if sessionID == uuid.Nil || skuID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Session and SKU are required")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return &CartItem{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  sessionID,
		SKUID:      skuID,
		Quantity:   qty,
	}, nil
}
