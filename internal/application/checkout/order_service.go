package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderService reads confirmed orders
type OrderService struct {
	orderRepo checkout.OrderRepository
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo checkout.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// ListForSession returns the session's orders, newest first
func (s *OrderService) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]OrderResponse, error) {
	orders, err := s.orderRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out, nil
}

// GetByReference returns one order. Unless readAny is set the order must
// belong to sessionID; another session's order reads as not found.
func (s *OrderService) GetByReference(ctx context.Context, reference string, sessionID uuid.UUID, readAny bool) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !readAny && order.SessionID != sessionID {
		return nil, shared.NewDomainErrorf(shared.ErrNotFound.Code, "Order %s not found", reference)
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}
