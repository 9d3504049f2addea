package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := newSQLiteDB(t)
	sessions := NewGormSessionRepository(db)
	carts := NewGormCartRepository(db)
	reservations := NewGormReservationRepository(db)
	sku := seedSKU(t, db, "CAP-BLK", 10)

	expiredIdle := seedSession(t, db, time.Hour, now.Add(-2*time.Hour))
	expiredHolding := seedSession(t, db, time.Hour, now.Add(-2*time.Hour))
	active := seedSession(t, db, 72*time.Hour, now)

	item, err := checkout.NewCartItem(expiredIdle.ID, sku.ID, 1)
	require.NoError(t, err)
	require.NoError(t, carts.Upsert(ctx, item))

	ref := checkout.NewPaymentReference()
	require.NoError(t, reservations.CreateBatch(ctx, checkout.ReservationBatch{
		newTestReservation(t, ref, expiredHolding.ID, sku.ID, 1, now.Add(time.Minute)),
	}))

	deleted, err := sessions.DeleteExpired(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = sessions.FindByID(ctx, expiredIdle.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	items, err := carts.FindBySession(ctx, expiredIdle.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = sessions.FindByID(ctx, expiredHolding.ID)
	assert.NoError(t, err, "session with a pending reservation is kept")
	_, err = sessions.FindByID(ctx, active.ID)
	assert.NoError(t, err)

	deleted, err = sessions.DeleteExpired(ctx, now, 100)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestGormSessionRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	db := newSQLiteDB(t)
	repo := NewGormSessionRepository(db)

	s := seedSession(t, db, time.Hour, now)

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormCartRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	db := newSQLiteDB(t)
	repo := NewGormCartRepository(db)
	session := seedSession(t, db, time.Hour, now)
	a := seedSKU(t, db, "SOCK-1", 5)
	b := seedSKU(t, db, "SOCK-2", 5)

	first, err := checkout.NewCartItem(session.ID, a.ID, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, first))

	again, err := checkout.NewCartItem(session.ID, a.ID, 3)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, again))

	other, err := checkout.NewCartItem(session.ID, b.ID, 2)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, other))

	items, err := repo.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	line, err := repo.FindItem(ctx, session.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), line.Quantity)

	require.NoError(t, repo.Remove(ctx, session.ID, a.ID))
	require.NoError(t, repo.Remove(ctx, session.ID, a.ID))
	_, err = repo.FindItem(ctx, session.ID, a.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.ClearSession(ctx, session.ID))
	items, err = repo.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
