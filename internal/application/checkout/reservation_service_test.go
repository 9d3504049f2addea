package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type reservationFixture struct {
	store  *testutil.Store
	clock  *testutil.Clock
	events *testutil.RecordingPublisher
	svc    *appcheckout.ReservationService
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	store := testutil.NewStore(t)
	clock := testutil.NewClock(testStart)
	events := testutil.NewRecordingPublisher()
	svc := appcheckout.NewReservationService(appcheckout.ReservationServiceConfig{
		Scope:          store.Scope,
		Calculator:     testutil.NewTestCalculator(t),
		ReservationTTL: 15 * time.Minute,
		Publisher:      events,
		Clock:          clock.Now,
	})
	return &reservationFixture{store: store, clock: clock, events: events, svc: svc}
}

func (f *reservationFixture) session(t *testing.T) uuid.UUID {
	t.Helper()
	return f.store.SeedSession(t, 24*time.Hour, f.clock.Now()).ID
}

func TestReservationService_PriceAndReserve(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 10, map[string]string{"USD": "25.00", "GBP": "19.99"})
	hat := f.store.SeedSKU(t, "CAP-BLK-OS", 3, map[string]string{"USD": "12.50", "GBP": "9.99"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, tee.ID, 2)
	f.store.AddToCart(t, sessionID, hat.ID, 1)

	resp, err := f.svc.PriceAndReserve(ctx, sessionID, "us", "usd")
	require.NoError(t, err)

	assert.True(t, checkout.IsPaymentReference(resp.Reference))
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "62.50", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "15.00", resp.Shipping.StringFixed(2))
	assert.True(t, resp.Tax.IsZero())
	assert.Equal(t, "77.50", resp.Total.StringFixed(2))
	assert.Equal(t, testStart.Add(15*time.Minute), resp.ExpiresAt.UTC())
	assert.Len(t, resp.Lines, 2)

	assert.Equal(t, int64(8), f.store.Available(t, tee.ID))
	assert.Equal(t, int64(2), f.store.Pending(t, tee.ID))
	assert.Equal(t, int64(2), f.store.Available(t, hat.ID))
	assert.Equal(t, int64(1), f.store.Pending(t, hat.ID))

	batch, err := f.store.Reservations.FindByReference(ctx, resp.Reference)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	for _, r := range batch {
		assert.Equal(t, checkout.ReservationPending, r.Status)
		assert.Equal(t, sessionID, r.SessionID)
		assert.Equal(t, testStart.Add(15*time.Minute), r.ExpiresAt.UTC())
	}

	co, err := f.store.Checkouts.FindByReference(ctx, resp.Reference)
	require.NoError(t, err)
	assert.True(t, co.Total.Equal(resp.Total))
}

func TestReservationService_TaxedDestination(t *testing.T) {
	f := newReservationFixture(t)

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 10, map[string]string{"GBP": "20.00"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, tee.ID, 2)

	resp, err := f.svc.PriceAndReserve(context.Background(), sessionID, "GB", "GBP")
	require.NoError(t, err)

	assert.Equal(t, "40.00", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "4.99", resp.Shipping.StringFixed(2))
	assert.True(t, resp.Tax.IsPositive())
	assert.True(t, resp.Total.Equal(resp.Subtotal.Add(resp.Shipping).Add(resp.Tax)))
}

func TestReservationService_EmptyCart(t *testing.T) {
	f := newReservationFixture(t)
	sessionID := f.session(t)

	resp, err := f.svc.PriceAndReserve(context.Background(), sessionID, "GB", "GBP")
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, shared.ErrEmptyCart)

	var n int64
	require.NoError(t, f.store.DB.Table("reservations").Count(&n).Error)
	assert.Zero(t, n)
}

func TestReservationService_InsufficientStockNamesSKU(t *testing.T) {
	f := newReservationFixture(t)

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 1, map[string]string{"GBP": "19.99"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, tee.ID, 1)
	// Someone else takes the last unit after it was added to the cart.
	require.NoError(t, f.store.Ledger.Reserve(context.Background(), tee.ID, 1))

	_, err := f.svc.PriceAndReserve(context.Background(), sessionID, "GB", "GBP")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "TEE-NVY-M")
}

func TestReservationService_BatchIsAllOrNothing(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	a := f.store.SeedSKU(t, "SKU-A", 5, map[string]string{"GBP": "10.00"})
	b := f.store.SeedSKU(t, "SKU-B", 5, map[string]string{"GBP": "10.00"})
	c := f.store.SeedSKU(t, "SKU-C", 1, map[string]string{"GBP": "10.00"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, a.ID, 2)
	f.store.AddToCart(t, sessionID, b.ID, 2)
	f.store.AddToCart(t, sessionID, c.ID, 1)
	require.NoError(t, f.store.Ledger.Reserve(ctx, c.ID, 1))

	_, err := f.svc.PriceAndReserve(ctx, sessionID, "GB", "GBP")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "SKU-C")

	assert.Equal(t, int64(5), f.store.Available(t, a.ID))
	assert.Equal(t, int64(5), f.store.Available(t, b.ID))
	assert.Equal(t, int64(0), f.store.Available(t, c.ID))

	pending, err := f.store.Reservations.FindPendingBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReservationService_MissingPriceRollsBack(t *testing.T) {
	f := newReservationFixture(t)

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 5, map[string]string{"GBP": "19.99"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, tee.ID, 1)

	_, err := f.svc.PriceAndReserve(context.Background(), sessionID, "GB", "EUR")
	require.ErrorIs(t, err, shared.ErrPriceUnavailable)
	assert.Equal(t, int64(5), f.store.Available(t, tee.ID))
}

func TestReservationService_RejectsUnsupportedInputs(t *testing.T) {
	f := newReservationFixture(t)
	sessionID := f.session(t)

	_, err := f.svc.PriceAndReserve(context.Background(), sessionID, "GB", "JPY")
	assert.ErrorIs(t, err, shared.ErrUnsupportedCurrency)

	_, err = f.svc.PriceAndReserve(context.Background(), sessionID, "ZZZ", "GBP")
	assert.ErrorIs(t, err, shared.ErrUnsupportedCountry)
}

func TestReservationService_ExpiredSession(t *testing.T) {
	f := newReservationFixture(t)

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 5, map[string]string{"GBP": "19.99"})
	session := f.store.SeedSession(t, time.Hour, f.clock.Now())
	f.store.AddToCart(t, session.ID, tee.ID, 1)
	f.clock.Advance(2 * time.Hour)

	_, err := f.svc.PriceAndReserve(context.Background(), session.ID, "GB", "GBP")
	assert.ErrorIs(t, err, shared.ErrSessionExpired)
	assert.Equal(t, int64(5), f.store.Available(t, tee.ID))
}

func TestReservationService_SupersedesPreviousHolds(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 4, map[string]string{"GBP": "19.99"})
	sessionID := f.session(t)
	f.store.AddToCart(t, sessionID, tee.ID, 3)

	first, err := f.svc.PriceAndReserve(ctx, sessionID, "GB", "GBP")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.store.Available(t, tee.ID))

	// A second checkout of the same cart would fail if the first hold stayed.
	f.clock.Advance(time.Minute)
	second, err := f.svc.PriceAndReserve(ctx, sessionID, "GB", "GBP")
	require.NoError(t, err)
	assert.NotEqual(t, first.Reference, second.Reference)

	assert.Equal(t, int64(1), f.store.Available(t, tee.ID))
	assert.Equal(t, int64(3), f.store.Pending(t, tee.ID))

	old, err := f.store.Reservations.FindByReference(ctx, first.Reference)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, checkout.ReservationReleased, old[0].Status)
	assert.Equal(t, checkout.ReleaseSuperseded, old[0].ReleaseReason)

	released := f.events.OfType(checkout.EventTypeReservationsReleased)
	require.Len(t, released, 1)
	assert.Equal(t, first.Reference, released[0].(*checkout.ReservationsReleasedEvent).Reference)
}

func TestReservationService_AvailablePlusPendingIsConstant(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	const total = int64(6)

	tee := f.store.SeedSKU(t, "TEE-NVY-M", total, map[string]string{"GBP": "19.99"})
	check := func() {
		t.Helper()
		assert.Equal(t, total, f.store.Available(t, tee.ID)+f.store.Pending(t, tee.ID))
	}

	s1 := f.session(t)
	s2 := f.session(t)
	f.store.AddToCart(t, s1, tee.ID, 2)
	f.store.AddToCart(t, s2, tee.ID, 3)

	_, err := f.svc.PriceAndReserve(ctx, s1, "GB", "GBP")
	require.NoError(t, err)
	check()

	_, err = f.svc.PriceAndReserve(ctx, s2, "GB", "GBP")
	require.NoError(t, err)
	check()

	f.store.AddToCart(t, s1, tee.ID, 3)
	_, err = f.svc.PriceAndReserve(ctx, s1, "GB", "GBP")
	require.NoError(t, err)
	check()

	_, err = f.svc.PriceAndReserve(ctx, s2, "GB", "GBP")
	require.NoError(t, err)
	check()
	assert.Equal(t, int64(0), f.store.Available(t, tee.ID))
}

func TestReservationService_LastUnitHasOneWinner(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	tee := f.store.SeedSKU(t, "TEE-NVY-M", 1, map[string]string{"GBP": "19.99"})
	const shoppers = 8
	sessions := make([]uuid.UUID, shoppers)
	for i := range sessions {
		sessions[i] = f.session(t)
		f.store.AddToCart(t, sessions[i], tee.ID, 1)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		shortage int
	)
	for _, id := range sessions {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.PriceAndReserve(ctx, id, "GB", "GBP")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, shared.ErrInsufficientStock):
				shortage++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, shoppers-1, shortage)
	assert.Equal(t, int64(0), f.store.Available(t, tee.ID))
	assert.Equal(t, int64(1), f.store.Pending(t, tee.ID))
}
