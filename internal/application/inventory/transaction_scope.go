package inventory

import (
	"context"

	"github.com/stockledger/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Batch quantities are only written through BatchStore, which wraps BatchRepo;
// services never call the conditional updates directly.
type TransactionalRepositories interface {
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// ReceiptRepo returns the receipt repository scoped to the current transaction
	ReceiptRepo() inventory.ReceiptRepository
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() inventory.SaleRepository
	// MovementRepo returns the movement ledger scoped to the current transaction
	MovementRepo() inventory.MovementRepository
}
