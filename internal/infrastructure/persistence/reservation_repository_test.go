package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormReservationRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*GormReservationRepository, checkout.ReservationBatch) {
		db := newSQLiteDB(t)
		session := seedSession(t, db, 72*time.Hour, now)
		a := seedSKU(t, db, "TEE-A", 10)
		b := seedSKU(t, db, "TEE-B", 10)

		ref := checkout.NewPaymentReference()
		batch := checkout.ReservationBatch{
			newTestReservation(t, ref, session.ID, a.ID, 2, now.Add(15*time.Minute)),
			newTestReservation(t, ref, session.ID, b.ID, 1, now.Add(15*time.Minute)),
		}
		repo := NewGormReservationRepository(db)
		require.NoError(t, repo.CreateBatch(ctx, batch))
		return repo, batch
	}

	t.Run("find by reference returns the whole batch", func(t *testing.T) {
		repo, batch := setup(t)

		got, err := repo.FindByReference(ctx, batch.Reference())
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.True(t, got.AllIn(checkout.ReservationPending))
		assert.Equal(t, batch.SessionID(), got.SessionID())
	})

	t.Run("unknown reference yields empty batch", func(t *testing.T) {
		repo, _ := setup(t)

		got, err := repo.FindByReference(ctx, "pay_unknown")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("confirm moves unexpired pending rows only once", func(t *testing.T) {
		repo, batch := setup(t)

		n, err := repo.ConfirmPendingByReference(ctx, batch.Reference(), now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.ConfirmPendingByReference(ctx, batch.Reference(), now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := repo.FindByReference(ctx, batch.Reference())
		require.NoError(t, err)
		assert.True(t, got.AllIn(checkout.ReservationConfirmed))
		require.NotNil(t, got[0].ConfirmedAt)
	})

	t.Run("confirm skips expired rows", func(t *testing.T) {
		repo, batch := setup(t)

		n, err := repo.ConfirmPendingByReference(ctx, batch.Reference(), now.Add(15*time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("release is guarded by status", func(t *testing.T) {
		repo, batch := setup(t)

		ok, err := repo.ReleaseIfPending(ctx, batch[0].ID, checkout.ReleaseExpired, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ReleaseIfPending(ctx, batch[0].ID, checkout.ReleaseExpired, now)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.FindByReference(ctx, batch.Reference())
		require.NoError(t, err)
		released := 0
		for _, r := range got {
			if r.Status == checkout.ReservationReleased {
				released++
				assert.Equal(t, checkout.ReleaseExpired, r.ReleaseReason)
				assert.NotNil(t, r.ReleasedAt)
			}
		}
		assert.Equal(t, 1, released)
	})

	t.Run("find expired pending honours expiry and limit", func(t *testing.T) {
		repo, batch := setup(t)

		got, err := repo.FindExpiredPending(ctx, now.Add(time.Minute), 10)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = repo.FindExpiredPending(ctx, now.Add(15*time.Minute), 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.FindExpiredPending(ctx, now.Add(time.Hour), 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		_, err = repo.ReleaseIfPending(ctx, batch[0].ID, checkout.ReleaseExpired, now)
		require.NoError(t, err)
		got, err = repo.FindExpiredPending(ctx, now.Add(time.Hour), 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("pending sum and session lookup", func(t *testing.T) {
		repo, batch := setup(t)

		sum, err := repo.SumPendingBySKU(ctx, batch[0].SKUID)
		require.NoError(t, err)
		assert.Equal(t, batch[0].Quantity, sum)

		pending, err := repo.FindPendingBySession(ctx, batch.SessionID())
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		_, err = repo.ConfirmPendingByReference(ctx, batch.Reference(), now)
		require.NoError(t, err)

		sum, err = repo.SumPendingBySKU(ctx, batch[0].SKUID)
		require.NoError(t, err)
		assert.Zero(t, sum)

		pending, err = repo.FindPendingBySession(ctx, batch.SessionID())
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
