package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// SKUStockRepository persists SKUs. Quantity changes go through Ledger or
// AddStock, never through Save on an existing row.
type SKUStockRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SKUStock, error)
	FindByCode(ctx context.Context, code string) (*SKUStock, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]SKUStock, error)
	List(ctx context.Context, filter shared.Filter) ([]SKUStock, int64, error)

	// Create inserts a new SKU
	Create(ctx context.Context, sku *SKUStock) error

	// AddStock atomically increments available quantity by qty
	AddStock(ctx context.Context, id uuid.UUID, qty int64) error
}
