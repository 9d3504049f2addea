package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the full schema. The pool is
// capped at one connection so every goroutine sees the same memory database
// and transactions serialise.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockGormDB wraps sqlmock with the postgres dialector
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func seedSKU(t *testing.T, db *gorm.DB, code string, qty int64) *inventory.SKUStock {
	t.Helper()
	sku, err := inventory.NewSKUStock(code, "Organic cotton tee", "M", "red", qty)
	require.NoError(t, err)
	require.NoError(t, NewGormSKUStockRepository(db).Create(context.Background(), sku))
	return sku
}

func seedSession(t *testing.T, db *gorm.DB, ttl time.Duration, now time.Time) *checkout.ShoppingSession {
	t.Helper()
	s, err := checkout.NewShoppingSession(ttl, now)
	require.NoError(t, err)
	require.NoError(t, NewGormSessionRepository(db).Create(context.Background(), s))
	return s
}

func newTestReservation(t *testing.T, reference string, sessionID, skuID uuid.UUID, qty int64, expiresAt time.Time) checkout.Reservation {
	t.Helper()
	r, err := checkout.NewReservation(reference, sessionID, skuID, qty, decimal.RequireFromString("19.99"), expiresAt)
	require.NoError(t, err)
	return *r
}

func availableOf(t *testing.T, db *gorm.DB, skuID uuid.UUID) int64 {
	t.Helper()
	n, err := NewGormStockLedger(db).Available(context.Background(), skuID)
	require.NoError(t, err)
	return n
}
