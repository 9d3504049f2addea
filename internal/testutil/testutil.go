// Package testutil holds fixtures shared by the storefront tests: an
// in-memory store with every repository, a controllable clock and a
// publisher that records events.
package testutil

import (
	"testing"

	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an in-memory SQLite database migrated with the full
// schema. The pool holds one connection, so every goroutine sees the same
// database and transactions run one at a time.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "migrate schema")
	return db
}
