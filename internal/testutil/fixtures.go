package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Store bundles the GORM repositories over one test database
type Store struct {
	DB           *gorm.DB
	Scope        *persistence.GormTransactionScope
	Ledger       *persistence.GormStockLedger
	SKUs         *persistence.GormSKUStockRepository
	Prices       *persistence.GormPriceRepository
	Sessions     *persistence.GormSessionRepository
	Carts        *persistence.GormCartRepository
	Reservations *persistence.GormReservationRepository
	Checkouts    *persistence.GormCheckoutRepository
	Orders       *persistence.GormOrderRepository
}

// NewStore opens an in-memory SQLite database and builds every repository on it
func NewStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreFor(NewSQLiteDB(t))
}

// NewStoreFor builds every repository on db
func NewStoreFor(db *gorm.DB) *Store {
	return &Store{
		DB:           db,
		Scope:        persistence.NewGormTransactionScope(db),
		Ledger:       persistence.NewGormStockLedger(db),
		SKUs:         persistence.NewGormSKUStockRepository(db),
		Prices:       persistence.NewGormPriceRepository(db),
		Sessions:     persistence.NewGormSessionRepository(db),
		Carts:        persistence.NewGormCartRepository(db),
		Reservations: persistence.NewGormReservationRepository(db),
		Checkouts:    persistence.NewGormCheckoutRepository(db),
		Orders:       persistence.NewGormOrderRepository(db),
	}
}

// SeedSKU creates a SKU with qty units and the given prices keyed by currency
// ("GBP": "19.99").
func (s *Store) SeedSKU(t *testing.T, code string, qty int64, prices map[string]string) *inventory.SKUStock {
	t.Helper()
	ctx := context.Background()

	sku, err := inventory.NewSKUStock(code, "Organic cotton tee", "M", "navy", qty)
	require.NoError(t, err)
	require.NoError(t, s.SKUs.Create(ctx, sku))

	if len(prices) > 0 {
		entries := make([]catalog.SKUPrice, 0, len(prices))
		for cur, amount := range prices {
			p, err := catalog.NewSKUPrice(sku.ID, cur, decimal.RequireFromString(amount))
			require.NoError(t, err)
			entries = append(entries, p)
		}
		require.NoError(t, s.Prices.Upsert(ctx, entries))
	}
	return sku
}

// SeedSession creates a shopping session that expires ttl after now
func (s *Store) SeedSession(t *testing.T, ttl time.Duration, now time.Time) *checkout.ShoppingSession {
	t.Helper()
	session, err := checkout.NewShoppingSession(ttl, now)
	require.NoError(t, err)
	require.NoError(t, s.Sessions.Create(context.Background(), session))
	return session
}

// AddToCart sets the quantity of a cart line
func (s *Store) AddToCart(t *testing.T, sessionID, skuID uuid.UUID, qty int64) {
	t.Helper()
	item, err := checkout.NewCartItem(sessionID, skuID, qty)
	require.NoError(t, err)
	require.NoError(t, s.Carts.Upsert(context.Background(), item))
}

// Available returns the ledger's available quantity for a SKU
func (s *Store) Available(t *testing.T, skuID uuid.UUID) int64 {
	t.Helper()
	n, err := s.Ledger.Available(context.Background(), skuID)
	require.NoError(t, err)
	return n
}

// Pending returns the quantity held by PENDING reservations of a SKU
func (s *Store) Pending(t *testing.T, skuID uuid.UUID) int64 {
	t.Helper()
	n, err := s.Reservations.SumPendingBySKU(context.Background(), skuID)
	require.NoError(t, err)
	return n
}

// OrderCount returns the number of orders stored for reference
func (s *Store) OrderCount(t *testing.T, reference string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Table("orders").Where("reference = ?", reference).Count(&n).Error)
	return n
}

// TestRateCard prices GBP, USD and EUR. GB ships for 4.99 GBP with 20% tax;
// every other country ships at the fallback rate with no tax.
func TestRateCard(t *testing.T) pricing.RateCard {
	t.Helper()
	card, err := pricing.ParseRateCard(pricing.RateCardSpec{
		Currencies: []string{"GBP", "USD", "EUR"},
		Shipping: map[string]map[string]string{
			"GB": {"GBP": "4.99", "EUR": "5.99", "USD": "6.99"},
			"*":  {"GBP": "12.50", "EUR": "14.00", "USD": "15.00"},
		},
		FreeShippingOver: map[string]string{"GBP": "100"},
		TaxRates:         map[string]string{"GB": "0.20"},
		DefaultTaxRate:   "0",
		TaxShipping:      true,
	})
	require.NoError(t, err)
	return card
}

// NewTestCalculator returns a calculator over TestRateCard
func NewTestCalculator(t *testing.T) *pricing.Calculator {
	t.Helper()
	return pricing.NewCalculator(TestRateCard(t))
}
