package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	err error
}

func (s stubTokens) GenerateSessionToken(sessionID uuid.UUID, _ time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + sessionID.String(), nil
}

func TestSessionService_Start(t *testing.T) {
	store := testutil.NewStore(t)
	svc := appcheckout.NewSessionService(store.Sessions, stubTokens{}, 2*time.Hour, nil)
	ctx := context.Background()

	resp, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-"+resp.SessionID.String(), resp.Token)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), resp.ExpiresAt, time.Minute)

	session, err := svc.RequireActive(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, session.ID)
}

func TestSessionService_StartTokenFailure(t *testing.T) {
	store := testutil.NewStore(t)
	svc := appcheckout.NewSessionService(store.Sessions, stubTokens{err: errors.New("no key")}, 0, nil)

	_, err := svc.Start(context.Background())
	assert.ErrorContains(t, err, "sign session token")
}

func TestSessionService_RequireActive(t *testing.T) {
	store := testutil.NewStore(t)
	svc := appcheckout.NewSessionService(store.Sessions, stubTokens{}, 0, nil)
	ctx := context.Background()

	lapsed := store.SeedSession(t, time.Hour, time.Now().Add(-2*time.Hour))
	_, err := svc.RequireActive(ctx, lapsed.ID)
	assert.ErrorIs(t, err, shared.ErrSessionExpired)

	_, err = svc.RequireActive(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func newCartService(store *testutil.Store) *appcheckout.CartService {
	sessions := appcheckout.NewSessionService(store.Sessions, stubTokens{}, 0, nil)
	return appcheckout.NewCartService(sessions, store.Carts, store.SKUs)
}

func TestCartService_SetItem(t *testing.T) {
	store := testutil.NewStore(t)
	svc := newCartService(store)
	ctx := context.Background()

	tee := store.SeedSKU(t, "TEE-NVY-M", 4, nil)
	session := store.SeedSession(t, time.Hour, time.Now())

	cart, err := svc.SetItem(ctx, session.ID, appcheckout.SetCartItemRequest{SKUID: tee.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "TEE-NVY-M", cart.Items[0].SKUCode)
	assert.Equal(t, int64(2), cart.Items[0].Quantity)
	assert.Equal(t, int64(4), cart.Items[0].AvailableQuantity)
	assert.Equal(t, int64(2), cart.TotalUnits)

	t.Run("replaces quantity", func(t *testing.T) {
		cart, err := svc.SetItem(ctx, session.ID, appcheckout.SetCartItemRequest{SKUID: tee.ID, Quantity: 3})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(3), cart.TotalUnits)
	})

	t.Run("more than available", func(t *testing.T) {
		_, err := svc.SetItem(ctx, session.ID, appcheckout.SetCartItemRequest{SKUID: tee.ID, Quantity: 5})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.ErrorContains(t, err, "TEE-NVY-M")
	})

	t.Run("unknown SKU", func(t *testing.T) {
		_, err := svc.SetItem(ctx, session.ID, appcheckout.SetCartItemRequest{SKUID: uuid.New(), Quantity: 1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		cart, err := svc.SetItem(ctx, session.ID, appcheckout.SetCartItemRequest{SKUID: tee.ID, Quantity: 0})
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
	})
}

func TestCartService_RemoveItem(t *testing.T) {
	store := testutil.NewStore(t)
	svc := newCartService(store)
	ctx := context.Background()

	tee := store.SeedSKU(t, "TEE-NVY-M", 4, nil)
	session := store.SeedSession(t, time.Hour, time.Now())
	store.AddToCart(t, session.ID, tee.ID, 1)

	cart, err := svc.RemoveItem(ctx, session.ID, tee.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(ctx, session.ID, tee.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCartService_ExpiredSession(t *testing.T) {
	store := testutil.NewStore(t)
	svc := newCartService(store)

	session := store.SeedSession(t, time.Hour, time.Now().Add(-3*time.Hour))
	_, err := svc.Get(context.Background(), session.ID)
	assert.ErrorIs(t, err, shared.ErrSessionExpired)
}
