package models

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// MovementModel is the persistence model for a ledger movement.
type MovementModel struct {
	ScopedModel
	ProductID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	BatchID        *uuid.UUID             `gorm:"type:uuid;index"`
	Kind           inventory.MovementKind `gorm:"type:varchar(10);not null"`
	Quantity       int64                  `gorm:"not null"`
	RemainingAfter int64                  `gorm:"not null"`
	ReceiptID      *uuid.UUID             `gorm:"type:uuid;index"`
	SaleID         *uuid.UUID             `gorm:"type:uuid;index"`
	Note           string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "stock_movements"
}

// BeforeSave rejects zero quantities and unknown kinds
func (m *MovementModel) BeforeSave(tx *gorm.DB) error {
	if m.Quantity == 0 {
		return &inventory.InvalidQuantityError{Field: "movement quantity", Value: m.Quantity}
	}
	if !m.Kind.IsValid() {
		return shared.NewDomainError("INVALID_MOVEMENT_KIND", "Invalid movement kind: "+string(m.Kind))
	}
	return nil
}

// ToDomain converts the persistence model to a domain Movement.
func (m *MovementModel) ToDomain() *inventory.Movement {
	return &inventory.Movement{
		BaseEntity:     m.BaseModel.ToDomain(),
		WorkspaceID:    m.WorkspaceID,
		WarehouseID:    m.WarehouseID,
		ProductID:      m.ProductID,
		BatchID:        m.BatchID,
		Kind:           m.Kind,
		Quantity:       m.Quantity,
		RemainingAfter: m.RemainingAfter,
		ReceiptID:      m.ReceiptID,
		SaleID:         m.SaleID,
		Note:           m.Note,
	}
}

// FromDomain populates the persistence model from a domain Movement.
func (m *MovementModel) FromDomain(mv *inventory.Movement) {
	m.FromDomainScoped(mv.BaseEntity, shared.Scope{WorkspaceID: mv.WorkspaceID, WarehouseID: mv.WarehouseID})
	m.ProductID = mv.ProductID
	m.BatchID = mv.BatchID
	m.Kind = mv.Kind
	m.Quantity = mv.Quantity
	m.RemainingAfter = mv.RemainingAfter
	m.ReceiptID = mv.ReceiptID
	m.SaleID = mv.SaleID
	m.Note = mv.Note
}

// MovementModelFromDomain creates a new persistence model from a domain Movement.
func MovementModelFromDomain(mv *inventory.Movement) *MovementModel {
	m := &MovementModel{}
	m.FromDomain(mv)
	return m
}

// MovementsToDomain converts a slice of models
func MovementsToDomain(ms []MovementModel) []inventory.Movement {
	out := make([]inventory.Movement, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}
