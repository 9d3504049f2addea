package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSKUService(t *testing.T) (*appinventory.SKUService, *testutil.Store, *testutil.RecordingPublisher) {
	t.Helper()
	store := testutil.NewStore(t)
	events := testutil.NewRecordingPublisher()
	svc := appinventory.NewSKUService(store.Scope, store.SKUs, store.Prices, store.Reservations, nil)
	svc.SetEventPublisher(events)
	return svc, store, events
}

func price(currency, amount string) appinventory.PriceInput {
	return appinventory.PriceInput{Currency: currency, UnitPrice: decimal.RequireFromString(amount)}
}

func TestSKUService_Create(t *testing.T) {
	svc, _, _ := newSKUService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, appinventory.CreateSKURequest{
		Code:        "TEE-NVY-M",
		ProductName: "Organic cotton tee",
		Size:        "M",
		Colour:      "navy",
		Quantity:    12,
		Prices:      []appinventory.PriceInput{price("gbp", "19.99"), price("USD", "24.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "TEE-NVY-M", resp.Code)
	assert.Equal(t, int64(12), resp.AvailableQuantity)
	assert.Len(t, resp.Prices, 2)

	got, err := svc.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.AvailableQuantity)
	assert.Zero(t, got.ReservedQuantity)
	require.Len(t, got.Prices, 2)

	t.Run("duplicate code", func(t *testing.T) {
		_, err := svc.Create(ctx, appinventory.CreateSKURequest{Code: "TEE-NVY-M", ProductName: "Again"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("currency listed twice", func(t *testing.T) {
		_, err := svc.Create(ctx, appinventory.CreateSKURequest{
			Code:        "TEE-NVY-L",
			ProductName: "Organic cotton tee",
			Prices:      []appinventory.PriceInput{price("GBP", "19.99"), price("gbp", "18.00")},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := svc.Create(ctx, appinventory.CreateSKURequest{
			Code:        "TEE-NVY-XL",
			ProductName: "Organic cotton tee",
			Prices:      []appinventory.PriceInput{price("GBP", "-1")},
		})
		assert.Error(t, err)
	})
}

func TestSKUService_GetByIDReportsHeldUnits(t *testing.T) {
	svc, store, _ := newSKUService(t)
	ctx := context.Background()

	sku := store.SeedSKU(t, "TEE-NVY-M", 5, map[string]string{"GBP": "19.99"})
	session := store.SeedSession(t, time.Hour, time.Now())
	store.AddToCart(t, session.ID, sku.ID, 2)

	reserve := appcheckout.NewReservationService(appcheckout.ReservationServiceConfig{
		Scope:      store.Scope,
		Calculator: testutil.NewTestCalculator(t),
	})
	_, err := reserve.PriceAndReserve(ctx, session.ID, "GB", "GBP")
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, sku.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.AvailableQuantity)
	assert.Equal(t, int64(2), got.ReservedQuantity)

	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSKUService_Restock(t *testing.T) {
	svc, store, events := newSKUService(t)
	ctx := context.Background()

	sku := store.SeedSKU(t, "TEE-NVY-M", 1, nil)
	require.NoError(t, store.Ledger.Reserve(ctx, sku.ID, 1))

	resp, err := svc.Restock(ctx, sku.ID, appinventory.RestockRequest{Quantity: 10, Reason: "supplier delivery"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.AvailableQuantity, "restock adds to the current ledger value")

	restocked := events.OfType(inventory.EventTypeStockRestocked)
	assert.Len(t, restocked, 1)

	_, err = svc.Restock(ctx, sku.ID, appinventory.RestockRequest{Quantity: 0})
	assert.Error(t, err)
}

func TestSKUService_SetPrices(t *testing.T) {
	svc, store, _ := newSKUService(t)
	ctx := context.Background()

	sku := store.SeedSKU(t, "TEE-NVY-M", 1, map[string]string{"GBP": "19.99"})

	resp, err := svc.SetPrices(ctx, sku.ID, appinventory.SetPricesRequest{
		Prices: []appinventory.PriceInput{price("GBP", "17.50"), price("EUR", "21.00")},
	})
	require.NoError(t, err)
	require.Len(t, resp.Prices, 2)
	byCurrency := map[string]string{}
	for _, p := range resp.Prices {
		byCurrency[p.Currency] = p.UnitPrice.StringFixed(2)
	}
	assert.Equal(t, map[string]string{"GBP": "17.50", "EUR": "21.00"}, byCurrency)

	_, err = svc.SetPrices(ctx, uuid.New(), appinventory.SetPricesRequest{Prices: []appinventory.PriceInput{price("GBP", "1")}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSKUService_List(t *testing.T) {
	svc, store, _ := newSKUService(t)
	ctx := context.Background()

	store.SeedSKU(t, "TEE-NVY-M", 1, nil)
	store.SeedSKU(t, "TEE-NVY-L", 1, nil)
	store.SeedSKU(t, "CAP-BLK-OS", 1, nil)

	items, total, err := svc.List(ctx, appinventory.SKUListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	assert.Equal(t, "CAP-BLK-OS", items[0].Code)

	items, total, err = svc.List(ctx, appinventory.SKUListFilter{Search: "tee-nvy", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)
}
