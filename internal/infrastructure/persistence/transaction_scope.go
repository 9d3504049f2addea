package persistence

import (
	"context"

	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcheckout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Ledger() inventory.Ledger {
	return NewGormStockLedger(r.tx)
}

func (r *gormTransactionalRepositories) SKURepo() inventory.SKUStockRepository {
	return NewGormSKUStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) PriceRepo() catalog.PriceRepository {
	return NewGormPriceRepository(r.tx)
}

func (r *gormTransactionalRepositories) SessionRepo() checkout.SessionRepository {
	return NewGormSessionRepository(r.tx)
}

func (r *gormTransactionalRepositories) CartRepo() checkout.CartRepository {
	return NewGormCartRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReservationRepo() checkout.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) CheckoutRepo() checkout.CheckoutRepository {
	return NewGormCheckoutRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() checkout.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appcheckout.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appcheckout.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
