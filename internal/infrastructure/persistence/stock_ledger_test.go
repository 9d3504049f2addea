package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockLedger_Reserve_SQL(t *testing.T) {
	t.Run("issues a single conditional decrement", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		skuID := uuid.New()
		mock.ExpectExec(`UPDATE "sku_stocks" SET .*available_quantity - \$1.* WHERE id = \$3 AND available_quantity >= \$4`).
			WithArgs(int64(2), sqlmock.AnyArg(), skuID, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewGormStockLedger(db).Reserve(context.Background(), skuID, 2)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected reports insufficient stock with the SKU code", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		skuID := uuid.New()
		mock.ExpectExec(`UPDATE "sku_stocks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "sku_stocks" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "code", "available_quantity"}).
				AddRow(skuID, "TEE-RED-M", 1))

		err := NewGormStockLedger(db).Reserve(context.Background(), skuID, 3)

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Contains(t, err.Error(), "TEE-RED-M")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive quantities without touching the database", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		err := NewGormStockLedger(db).Reserve(context.Background(), uuid.New(), 0)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockLedger_Release_SQL(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()

	skuID := uuid.New()
	mock.ExpectExec(`UPDATE "sku_stocks" SET .*available_quantity \+ \$1.* WHERE id = \$3`).
		WithArgs(int64(4), sqlmock.AnyArg(), skuID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewGormStockLedger(db).Release(context.Background(), skuID, 4)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStockLedger_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("reserve to zero then fail", func(t *testing.T) {
		db := newSQLiteDB(t)
		sku := seedSKU(t, db, "S1", 5)
		ledger := NewGormStockLedger(db)

		require.NoError(t, ledger.Reserve(ctx, sku.ID, 5))
		assert.Equal(t, int64(0), availableOf(t, db, sku.ID))

		err := ledger.Reserve(ctx, sku.ID, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "S1")
		assert.Equal(t, int64(0), availableOf(t, db, sku.ID))
	})

	t.Run("release restores quantity", func(t *testing.T) {
		db := newSQLiteDB(t)
		sku := seedSKU(t, db, "S2", 3)
		ledger := NewGormStockLedger(db)

		require.NoError(t, ledger.Reserve(ctx, sku.ID, 2))
		require.NoError(t, ledger.Release(ctx, sku.ID, 2))
		assert.Equal(t, int64(3), availableOf(t, db, sku.ID))
	})

	t.Run("unknown SKU is not found", func(t *testing.T) {
		db := newSQLiteDB(t)
		ledger := NewGormStockLedger(db)

		assert.ErrorIs(t, ledger.Reserve(ctx, uuid.New(), 1), shared.ErrNotFound)
		assert.ErrorIs(t, ledger.Release(ctx, uuid.New(), 1), shared.ErrNotFound)
		_, err := ledger.Available(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("concurrent reserves never oversell", func(t *testing.T) {
		db := newSQLiteDB(t)
		sku := seedSKU(t, db, "S3", 5)
		ledger := NewGormStockLedger(db)

		const workers = 12
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := ledger.Reserve(ctx, sku.ID, 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, shared.ErrInsufficientStock)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		assert.Equal(t, int64(0), availableOf(t, db, sku.ID))
	})
}
