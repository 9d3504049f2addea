package checkout

import (
	"context"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the checkout repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Ledger is the only way stock quantities change during checkout. Reservations
// carry the SKU id and session id as plain foreign keys; nothing is loaded
// through object graphs.
type TransactionalRepositories interface {
	Ledger() inventory.Ledger
	SKURepo() inventory.SKUStockRepository
	PriceRepo() catalog.PriceRepository
	SessionRepo() checkout.SessionRepository
	CartRepo() checkout.CartRepository
	ReservationRepo() checkout.ReservationRepository
	CheckoutRepo() checkout.CheckoutRepository
	OrderRepo() checkout.OrderRepository
}
