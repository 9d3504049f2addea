package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
)

// CartService manages the items of a session's cart
type CartService struct {
	sessions *SessionService
	cartRepo checkout.CartRepository
	skuRepo  inventory.SKUStockRepository
}

// NewCartService creates a new CartService
func NewCartService(sessions *SessionService, cartRepo checkout.CartRepository, skuRepo inventory.SKUStockRepository) *CartService {
	return &CartService{
		sessions: sessions,
		cartRepo: cartRepo,
		skuRepo:  skuRepo,
	}
}

// Get returns the session's cart with current availability per SKU
func (s *CartService) Get(ctx context.Context, sessionID uuid.UUID) (*CartResponse, error) {
	if _, err := s.sessions.RequireActive(ctx, sessionID); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].SKUID
	}
	skus, err := s.skuRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.SKUStock, len(skus))
	for i := range skus {
		byID[skus[i].ID] = &skus[i]
	}

	resp := &CartResponse{
		SessionID: sessionID,
		Items:     make([]CartItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toCartItemResponse(item, byID[item.SKUID]))
		resp.TotalUnits += item.Quantity
	}
	return resp, nil
}

// SetItem sets the quantity of one SKU. Zero removes the line. A quantity
// above what is currently available fails with an insufficient stock error
// naming the SKU; availability is checked again when the cart is reserved.
func (s *CartService) SetItem(ctx context.Context, sessionID uuid.UUID, req SetCartItemRequest) (*CartResponse, error) {
	if _, err := s.sessions.RequireActive(ctx, sessionID); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if req.Quantity == 0 {
		if err := s.cartRepo.Remove(ctx, sessionID, req.SKUID); err != nil {
			return nil, err
		}
		return s.Get(ctx, sessionID)
	}

	sku, err := s.skuRepo.FindByID(ctx, req.SKUID)
	if err != nil {
		return nil, err
	}
	if !sku.CanFulfil(req.Quantity) {
		return nil, inventory.NewInsufficientStockError(sku.Code, req.Quantity, sku.AvailableQuantity)
	}

	item, err := checkout.NewCartItem(sessionID, req.SKUID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Upsert(ctx, item); err != nil {
		return nil, err
	}
	return s.Get(ctx, sessionID)
}

// RemoveItem deletes one SKU from the cart
func (s *CartService) RemoveItem(ctx context.Context, sessionID, skuID uuid.UUID) (*CartResponse, error) {
	if _, err := s.sessions.RequireActive(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.cartRepo.FindItem(ctx, sessionID, skuID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrNotFound.Code, "SKU %s is not in the cart", skuID)
		}
		return nil, err
	}
	if err := s.cartRepo.Remove(ctx, sessionID, skuID); err != nil {
		return nil, err
	}
	return s.Get(ctx, sessionID)
}
