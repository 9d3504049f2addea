// Package inventory provides staff operations on SKUs: creation, pricing,
// restocking and stock views.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// SKUService handles SKU administration
type SKUService struct {
	scope           appcheckout.TransactionScope
	skuRepo         inventory.SKUStockRepository
	priceRepo       catalog.PriceRepository
	reservationRepo checkout.ReservationRepository
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewSKUService creates a new SKUService
func NewSKUService(
	scope appcheckout.TransactionScope,
	skuRepo inventory.SKUStockRepository,
	priceRepo catalog.PriceRepository,
	reservationRepo checkout.ReservationRepository,
	log *zap.Logger,
) *SKUService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SKUService{
		scope:           scope,
		skuRepo:         skuRepo,
		priceRepo:       priceRepo,
		reservationRepo: reservationRepo,
		logger:          log,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SKUService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create inserts a SKU with its opening stock and prices in one transaction
func (s *SKUService) Create(ctx context.Context, req CreateSKURequest) (*SKUResponse, error) {
	sku, err := inventory.NewSKUStock(req.Code, req.ProductName, req.Size, req.Colour, req.Quantity)
	if err != nil {
		return nil, err
	}
	prices, err := toPrices(sku.ID, req.Prices)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appcheckout.TransactionalRepositories) error {
		if err := repos.SKURepo().Create(ctx, sku); err != nil {
			return err
		}
		if len(prices) == 0 {
			return nil
		}
		return repos.PriceRepo().Upsert(ctx, prices)
	})
	if err != nil {
		return nil, err
	}

	logger.For(ctx, s.logger).Info("SKU created",
		zap.String("sku_id", sku.ID.String()),
		zap.String("code", sku.Code),
		zap.Int64("quantity", sku.AvailableQuantity))

	resp := ToSKUResponse(sku, 0, prices)
	return &resp, nil
}

// GetByID returns a SKU with its prices and the quantity currently held by
// PENDING reservations
func (s *SKUService) GetByID(ctx context.Context, id uuid.UUID) (*SKUResponse, error) {
	sku, err := s.skuRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reserved, err := s.reservationRepo.SumPendingBySKU(ctx, id)
	if err != nil {
		return nil, err
	}
	prices, err := s.priceRepo.FindBySKU(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSKUResponse(sku, reserved, prices)
	return &resp, nil
}

// List returns a page of SKUs
func (s *SKUService) List(ctx context.Context, filter SKUListFilter) ([]SKUListItemResponse, int64, error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}

	skus, total, err := s.skuRepo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SKUListItemResponse, len(skus))
	for i := range skus {
		out[i] = ToSKUListItemResponse(&skus[i])
	}
	return out, total, nil
}

// Restock adds units with an atomic increment. Concurrent reservations are
// never overwritten.
func (s *SKUService) Restock(ctx context.Context, id uuid.UUID, req RestockRequest) (*SKUResponse, error) {
	sku, err := s.skuRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sku.Restock(req.Quantity, req.Reason); err != nil {
		return nil, err
	}
	if err := s.skuRepo.AddStock(ctx, id, req.Quantity); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, sku)

	logger.For(ctx, s.logger).Info("SKU restocked",
		zap.String("sku_id", id.String()),
		zap.String("code", sku.Code),
		zap.Int64("quantity", req.Quantity),
		zap.String("reason", req.Reason))

	return s.GetByID(ctx, id)
}

// SetPrices inserts or replaces prices for the given currencies
func (s *SKUService) SetPrices(ctx context.Context, id uuid.UUID, req SetPricesRequest) (*SKUResponse, error) {
	if _, err := s.skuRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	prices, err := toPrices(id, req.Prices)
	if err != nil {
		return nil, err
	}
	if err := s.priceRepo.Upsert(ctx, prices); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// publishDomainEvents publishes and clears the SKU's pending events
func (s *SKUService) publishDomainEvents(ctx context.Context, sku *inventory.SKUStock) {
	if s.eventPublisher == nil {
		return
	}
	events := sku.Events()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish SKU events", zap.Error(err))
	}
	sku.ClearEvents()
}

func toPrices(skuID uuid.UUID, in []PriceInput) ([]catalog.SKUPrice, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]catalog.SKUPrice, 0, len(in))
	for _, p := range in {
		price, err := catalog.NewSKUPrice(skuID, p.Currency, p.UnitPrice)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[price.Currency.String()]; dup {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
				fmt.Sprintf("Currency %s is listed twice", price.Currency))
		}
		seen[price.Currency.String()] = struct{}{}
		out = append(out, price)
	}
	return out, nil
}
