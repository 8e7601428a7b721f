package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BatchModel is the persistence model for the Batch entity. ExpiryKey mirrors
// ExpiryDate as a non-null string so the unique key also covers undated lots.
type BatchModel struct {
	ScopedModel
	ReceiptID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_batch_key,priority:1"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_batch_key,priority:2;index:idx_batch_product"`
	LotNumber  string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_key,priority:3"`
	ExpiryKey  string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_batch_key,priority:4"`
	ExpiryDate *time.Time `gorm:"type:date"`
	Received   int64      `gorm:"not null;default:0"`
	Remaining  int64      `gorm:"not null;default:0;index"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain Batch entity.
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity:  m.BaseModel.ToDomain(),
		WorkspaceID: m.WorkspaceID,
		WarehouseID: m.WarehouseID,
		ReceiptID:   m.ReceiptID,
		ProductID:   m.ProductID,
		LotNumber:   m.LotNumber,
		ExpiryDate:  shared.DatePtr(m.ExpiryDate),
		Received:    m.Received,
		Remaining:   m.Remaining,
	}
}

// FromDomain populates the persistence model from a domain Batch entity.
func (m *BatchModel) FromDomain(b *inventory.Batch) {
	m.FromDomainScoped(b.BaseEntity, shared.Scope{WorkspaceID: b.WorkspaceID, WarehouseID: b.WarehouseID})
	m.ReceiptID = b.ReceiptID
	m.ProductID = b.ProductID
	m.LotNumber = b.LotNumber
	m.ExpiryKey = inventory.ExpiryKeyOf(b.ExpiryDate)
	m.ExpiryDate = shared.DatePtr(b.ExpiryDate)
	m.Received = b.Received
	m.Remaining = b.Remaining
}

// BatchModelFromDomain creates a new persistence model from a domain Batch entity.
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{}
	m.FromDomain(b)
	return m
}

// BatchesToDomain converts a slice of models
func BatchesToDomain(ms []BatchModel) []inventory.Batch {
	out := make([]inventory.Batch, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}
