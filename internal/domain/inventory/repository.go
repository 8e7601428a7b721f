package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BatchRepository persists batches. Quantity changes go through the
// conditional update methods so that a concurrent writer can never push a
// batch outside 0 <= remaining <= received.
type BatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIDForUpdate finds a batch and holds a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIDs finds batches by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Batch, error)

	// FindByKey finds the batch for a uniqueness key
	FindByKey(ctx context.Context, key BatchKey) (*Batch, error)

	// CreateIfAbsent inserts the batch unless one with the same key exists.
	// It reports whether the row was inserted.
	CreateIfAbsent(ctx context.Context, batch *Batch) (bool, error)

	// FindByReceipt finds all batches created by a receipt
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]Batch, error)

	// FindWithStock finds batches of a product with remaining > 0, in no particular order
	FindWithStock(ctx context.Context, scope shared.Scope, productID uuid.UUID) ([]Batch, error)

	// Increment adds qty to both received and remaining
	Increment(ctx context.Context, id uuid.UUID, qty int64) error

	// CompareAndDecrement subtracts qty from remaining if remaining >= qty.
	// It reports whether the row was updated.
	CompareAndDecrement(ctx context.Context, id uuid.UUID, qty int64) (bool, error)

	// CompareAndRestore adds qty to remaining if the result stays <= received.
	// It reports whether the row was updated.
	CompareAndRestore(ctx context.Context, id uuid.UUID, qty int64) (bool, error)

	// DeleteByReceipt deletes all batches of a receipt
	DeleteByReceipt(ctx context.Context, receiptID uuid.UUID) error
}

// ReceiptRepository persists receipt documents and their lines
type ReceiptRepository interface {
	// FindByID finds a receipt with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByProduct lists receipts of a product, newest first
	FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter shared.Filter) ([]Receipt, error)

	// DocumentNumbersWithPrefix returns the document numbers of a workspace starting with prefix
	DocumentNumbersWithPrefix(ctx context.Context, workspaceID uuid.UUID, prefix string) ([]string, error)

	// ExistsByDocumentNumber checks whether the number is taken in the workspace
	ExistsByDocumentNumber(ctx context.Context, workspaceID uuid.UUID, documentNumber string) (bool, error)

	// Create inserts the header only. A clash on the document number
	// returns ErrDuplicateDocumentNumber.
	Create(ctx context.Context, receipt *Receipt) error

	// CreateLines inserts receipt lines once their batches exist
	CreateLines(ctx context.Context, lines []ReceiptLine) error

	// DeleteLines removes the lines of a receipt
	DeleteLines(ctx context.Context, id uuid.UUID) error

	// Delete removes the header of a receipt; its lines must be gone already
	Delete(ctx context.Context, id uuid.UUID) error
}

// SaleRepository persists sales, their lines and allocation records
type SaleRepository interface {
	// FindByID finds a sale with lines and allocations
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByProduct lists sales with at least one line of the product
	FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter shared.Filter) ([]Sale, error)

	// Create inserts the header, lines and allocation records
	Create(ctx context.Context, sale *Sale) error

	// Delete removes the allocation records, lines and header of a sale
	Delete(ctx context.Context, id uuid.UUID) error
}

// MovementRepository is the append-only movement ledger
type MovementRepository interface {
	// Append inserts movements
	Append(ctx context.Context, movements ...*Movement) error

	// FindByBatch lists a batch's movements oldest first
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]Movement, error)

	// FindByReceipt lists the movements of a receipt oldest first
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]Movement, error)

	// FindBySale lists the movements of a sale oldest first
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]Movement, error)

	// DeleteByReceipt deletes movements referencing the receipt or any of its batches
	DeleteByReceipt(ctx context.Context, receiptID uuid.UUID, batchIDs []uuid.UUID) error

	// DeleteOutBySale deletes the OUT movements of a sale
	DeleteOutBySale(ctx context.Context, saleID uuid.UUID) error

	// SumByBatch returns the signed sum of a batch's movements
	SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}
