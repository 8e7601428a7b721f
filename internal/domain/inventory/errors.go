package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Error kinds of the inventory ledger. Data-carrying errors below unwrap to
// one of these, so callers can match the kind with errors.Is and read the
// payload with errors.As.
var (
	ErrInvalidQuantity              = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	ErrInconsistentLot              = shared.NewDomainError("INCONSISTENT_LOT", "Line lot number conflicts with the document lot number")
	ErrInsufficientStock            = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrConcurrentAllocationConflict = shared.NewDomainError("CONCURRENT_ALLOCATION_CONFLICT", "Batch changed between planning and allocation")
	ErrBatchConsumedConflict        = shared.NewDomainError("BATCH_CONSUMED_CONFLICT", "Some batches have already been consumed")
	ErrRestoreExceedsReceived       = shared.NewDomainError("RESTORE_EXCEEDS_RECEIVED", "Restore would exceed the received quantity")
	ErrDuplicateBatchKey            = shared.NewDomainError("DUPLICATE_BATCH_KEY", "Duplicate batch for the same receipt, product, lot and expiry")
	ErrDuplicateDocumentNumber      = shared.NewDomainError("DUPLICATE_DOCUMENT_NUMBER", "Document number already exists in this workspace")
	ErrEmptyDocument                = shared.NewDomainError("EMPTY_DOCUMENT", "Document has no lines")
	ErrInvalidPackDescriptor        = shared.NewDomainError("INVALID_PACK_DESCRIPTOR", "Line needs a variant or a custom pack descriptor")
	ErrBatchNotFound                = shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found")
	ErrReceiptNotFound              = shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	ErrSaleNotFound                 = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
)

// InsufficientStockError reports how much of a requirement could not be met
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int64
	Available int64
	Shortfall int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d, short by %d",
		e.ProductID, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConsumedBatch describes a batch that blocks a receipt deletion
type ConsumedBatch struct {
	BatchID    uuid.UUID
	LotNumber  string
	ExpiryDate *time.Time
	Received   int64
	Remaining  int64
}

// BatchConsumedError lists the batches that prevent a receipt from being deleted
type BatchConsumedError struct {
	ReceiptID uuid.UUID
	Batches   []ConsumedBatch
}

func (e *BatchConsumedError) Error() string {
	return fmt.Sprintf("cannot delete receipt %s: %d batch(es) already consumed", e.ReceiptID, len(e.Batches))
}

func (e *BatchConsumedError) Unwrap() error { return ErrBatchConsumedConflict }

// RestoreExceedsReceivedError names the batch whose restore would overshoot
type RestoreExceedsReceivedError struct {
	BatchID   uuid.UUID
	Received  int64
	Remaining int64
	Restore   int64
}

func (e *RestoreExceedsReceivedError) Error() string {
	return fmt.Sprintf("restoring %d to batch %s would exceed received %d (remaining %d)",
		e.Restore, e.BatchID, e.Received, e.Remaining)
}

func (e *RestoreExceedsReceivedError) Unwrap() error { return ErrRestoreExceedsReceived }

// AllocationConflictError reports a failed apply-time re-check
type AllocationConflictError struct {
	BatchID uuid.UUID
	Reason  string
}

func (e *AllocationConflictError) Error() string {
	return fmt.Sprintf("allocation conflict on batch %s: %s", e.BatchID, e.Reason)
}

func (e *AllocationConflictError) Unwrap() error { return ErrConcurrentAllocationConflict }

// InvalidQuantityError carries the offending value and where it came from
type InvalidQuantityError struct {
	Field  string
	Value  int64
	Reason string // empty means the value was not positive
}

func (e *InvalidQuantityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s, got %d", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s must be > 0, got %d", e.Field, e.Value)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// InconsistentLotError reports a line lot that disagrees with the document lot
type InconsistentLotError struct {
	Line        int
	LineLot     string
	DocumentLot string
}

func (e *InconsistentLotError) Error() string {
	return fmt.Sprintf("line %d: lot %q must match document lot %q", e.Line, e.LineLot, e.DocumentLot)
}

func (e *InconsistentLotError) Unwrap() error { return ErrInconsistentLot }
