package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// MovementKind represents the kind of ledger movement
type MovementKind string

const (
	// MovementKindIn records stock received into a batch
	MovementKindIn MovementKind = "IN"
	// MovementKindOut records stock allocated out of a batch to a sale
	MovementKindOut MovementKind = "OUT"
	// MovementKindAdjust records a manual correction of a batch
	MovementKindAdjust MovementKind = "ADJUST"
	// MovementKindVoid records quantity dropped when a voided sale could not be fully restored
	MovementKindVoid MovementKind = "VOID"
)

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// IsValid returns true if the movement kind is valid
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindIn, MovementKindOut, MovementKindAdjust, MovementKindVoid:
		return true
	}
	return false
}

// signOK reports whether qty has the sign the kind requires
func (k MovementKind) signOK(qty int64) bool {
	switch k {
	case MovementKindIn:
		return qty > 0
	case MovementKindOut, MovementKindVoid:
		return qty < 0
	default:
		return qty != 0
	}
}

// Movement is an append-only ledger entry. Quantity is signed base units:
// positive for inbound, negative for outbound, never zero. RemainingAfter is
// the batch's remaining quantity right after the change.
type Movement struct {
	shared.BaseEntity
	WorkspaceID    uuid.UUID
	WarehouseID    uuid.UUID
	ProductID      uuid.UUID
	BatchID        *uuid.UUID
	Kind           MovementKind
	Quantity       int64
	RemainingAfter int64
	ReceiptID      *uuid.UUID
	SaleID         *uuid.UUID
	Note           string
}

// NewMovement creates a movement against a batch
func NewMovement(batch *Batch, kind MovementKind, qty int64, now time.Time) (*Movement, error) {
	if batch == nil {
		return nil, shared.NewDomainError("INVALID_BATCH", "Movement requires a batch")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Invalid movement kind")
	}
	if qty == 0 {
		return nil, &InvalidQuantityError{Field: "movement quantity", Value: qty}
	}
	if !kind.signOK(qty) {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_SIGN", "Movement quantity sign does not match its kind")
	}

	batchID := batch.ID
	return &Movement{
		BaseEntity:     shared.NewBaseEntity(now),
		WorkspaceID:    batch.WorkspaceID,
		WarehouseID:    batch.WarehouseID,
		ProductID:      batch.ProductID,
		BatchID:        &batchID,
		Kind:           kind,
		Quantity:       qty,
		RemainingAfter: batch.Remaining,
	}, nil
}

// WithReceipt sets the originating receipt
func (m *Movement) WithReceipt(receiptID uuid.UUID) *Movement {
	m.ReceiptID = &receiptID
	return m
}

// WithSale sets the originating sale
func (m *Movement) WithSale(saleID uuid.UUID) *Movement {
	m.SaleID = &saleID
	return m
}

// WithNote sets the free-text note
func (m *Movement) WithNote(note string) *Movement {
	m.Note = note
	return m
}

// IsInbound returns true if the movement added stock
func (m *Movement) IsInbound() bool {
	return m.Quantity > 0
}

// NewInMovement records qty received into batch by a receipt
func NewInMovement(batch *Batch, receiptID uuid.UUID, qty int64, note string, now time.Time) (*Movement, error) {
	m, err := NewMovement(batch, MovementKindIn, qty, now)
	if err != nil {
		return nil, err
	}
	return m.WithReceipt(receiptID).WithNote(note), nil
}

// NewOutMovement records qty allocated from batch to a sale; qty is positive
func NewOutMovement(batch *Batch, saleID uuid.UUID, qty int64, note string, now time.Time) (*Movement, error) {
	m, err := NewMovement(batch, MovementKindOut, -qty, now)
	if err != nil {
		return nil, err
	}
	return m.WithSale(saleID).WithNote(note), nil
}

// NewAdjustMovement records a signed correction
func NewAdjustMovement(batch *Batch, delta int64, note string, now time.Time) (*Movement, error) {
	m, err := NewMovement(batch, MovementKindAdjust, delta, now)
	if err != nil {
		return nil, err
	}
	return m.WithNote(note), nil
}

// NewVoidMovement records qty dropped by a capped restore; qty is positive
func NewVoidMovement(batch *Batch, qty int64, note string, now time.Time) (*Movement, error) {
	m, err := NewMovement(batch, MovementKindVoid, -qty, now)
	if err != nil {
		return nil, err
	}
	return m.WithNote(note), nil
}
