package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BatchKey identifies a batch: at most one batch exists per key.
type BatchKey struct {
	ReceiptID  uuid.UUID
	ProductID  uuid.UUID
	LotNumber  string
	ExpiryDate *time.Time
}

// Normalize trims the lot and truncates the expiry to a date
func (k BatchKey) Normalize() BatchKey {
	k.LotNumber = strings.TrimSpace(k.LotNumber)
	k.ExpiryDate = shared.DatePtr(k.ExpiryDate)
	return k
}

// ExpiryKey renders the expiry part of the key; undated batches use "none".
// It is stored alongside the batch so the uniqueness constraint also holds
// for undated lots.
func (k BatchKey) ExpiryKey() string {
	return ExpiryKeyOf(k.ExpiryDate)
}

// ExpiryKeyOf renders an optional expiry date as a key component
func ExpiryKeyOf(expiry *time.Time) string {
	if expiry == nil {
		return "none"
	}
	return shared.DateOf(*expiry).Format("2006-01-02")
}

func (k BatchKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.ReceiptID, k.ProductID, k.LotNumber, k.ExpiryKey())
}

// BatchState is the derived lifecycle position of a batch
type BatchState string

const (
	BatchStateOpen               BatchState = "OPEN"
	BatchStateReceiving          BatchState = "RECEIVING"
	BatchStatePartiallyAllocated BatchState = "PARTIALLY_ALLOCATED"
	BatchStateFullyAllocated     BatchState = "FULLY_ALLOCATED"
)

// Batch is one physically distinguishable lot of a product.
// Quantities are base units and always satisfy 0 <= Remaining <= Received.
type Batch struct {
	shared.BaseEntity
	WorkspaceID uuid.UUID
	WarehouseID uuid.UUID
	ReceiptID   uuid.UUID
	ProductID   uuid.UUID
	LotNumber   string
	ExpiryDate  *time.Time
	Received    int64
	Remaining   int64
}

// NewBatch creates an empty batch for key; quantities start at zero and grow
// through Increment. The ID is time ordered so that batches created at the
// same instant still sort oldest first on (created_at, id).
func NewBatch(scope shared.Scope, key BatchKey, now time.Time) *Batch {
	key = key.Normalize()
	return &Batch{
		BaseEntity:  shared.NewOrderedBaseEntity(now),
		WorkspaceID: scope.WorkspaceID,
		WarehouseID: scope.WarehouseID,
		ReceiptID:   key.ReceiptID,
		ProductID:   key.ProductID,
		LotNumber:   key.LotNumber,
		ExpiryDate:  key.ExpiryDate,
	}
}

// Key returns the uniqueness key of the batch
func (b *Batch) Key() BatchKey {
	return BatchKey{
		ReceiptID:  b.ReceiptID,
		ProductID:  b.ProductID,
		LotNumber:  b.LotNumber,
		ExpiryDate: b.ExpiryDate,
	}
}

// Increment records newly received stock: received and remaining both grow
func (b *Batch) Increment(qty int64) error {
	if qty <= 0 {
		return &InvalidQuantityError{Field: "increment quantity", Value: qty}
	}
	b.Received += qty
	b.Remaining += qty
	return nil
}

// Decrement takes qty out of the batch
func (b *Batch) Decrement(qty int64) error {
	if qty <= 0 {
		return &InvalidQuantityError{Field: "decrement quantity", Value: qty}
	}
	if qty > b.Remaining {
		return &InsufficientStockError{
			ProductID: b.ProductID,
			Requested: qty,
			Available: b.Remaining,
			Shortfall: qty - b.Remaining,
		}
	}
	b.Remaining -= qty
	return nil
}

// RestorableQuantity returns how much of qty fits under the received ceiling
func (b *Batch) RestorableQuantity(qty int64) int64 {
	room := b.Received - b.Remaining
	if room < 0 {
		return 0
	}
	return min(qty, room)
}

// CheckRestore validates a restore without applying it. It returns the
// quantity that would actually be restored.
func (b *Batch) CheckRestore(qty int64, allowPartial bool) (int64, error) {
	if qty <= 0 {
		return 0, &InvalidQuantityError{Field: "restore quantity", Value: qty}
	}
	restorable := b.RestorableQuantity(qty)
	if restorable < qty && !allowPartial {
		return 0, &RestoreExceedsReceivedError{
			BatchID:   b.ID,
			Received:  b.Received,
			Remaining: b.Remaining,
			Restore:   qty,
		}
	}
	return restorable, nil
}

// Restore adds qty back to remaining, capped at received. Capping is only
// allowed when allowPartial is set. It returns the quantity restored.
func (b *Batch) Restore(qty int64, allowPartial bool) (int64, error) {
	restored, err := b.CheckRestore(qty, allowPartial)
	if err != nil {
		return 0, err
	}
	b.Remaining += restored
	return restored, nil
}

// IsConsumed returns true once any quantity has left the batch
func (b *Batch) IsConsumed() bool {
	return b.Remaining < b.Received
}

// HasStock returns true if the batch has remaining quantity
func (b *Batch) HasStock() bool {
	return b.Remaining > 0
}

// IsExpiredOn returns true if the batch expired strictly before day
func (b *Batch) IsExpiredOn(day time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return shared.DateOf(*b.ExpiryDate).Before(shared.DateOf(day))
}

// State derives the lifecycle state from the quantities
func (b *Batch) State() BatchState {
	switch {
	case b.Received == 0:
		return BatchStateOpen
	case b.Remaining == b.Received:
		return BatchStateReceiving
	case b.Remaining == 0:
		return BatchStateFullyAllocated
	default:
		return BatchStatePartiallyAllocated
	}
}

// Validate checks 0 <= remaining <= received
func (b *Batch) Validate() error {
	if b.Received < 0 || b.Remaining < 0 || b.Remaining > b.Received {
		return shared.NewDomainError("INVALID_BATCH_STATE",
			fmt.Sprintf("batch %s violates 0 <= remaining(%d) <= received(%d)", b.ID, b.Remaining, b.Received))
	}
	return nil
}

// Consumption describes the batch for a deletion conflict report
func (b *Batch) Consumption() ConsumedBatch {
	return ConsumedBatch{
		BatchID:    b.ID,
		LotNumber:  b.LotNumber,
		ExpiryDate: b.ExpiryDate,
		Received:   b.Received,
		Remaining:  b.Remaining,
	}
}
