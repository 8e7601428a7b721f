package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
)

// ReceiptModel is the persistence model for the Receipt document header.
type ReceiptModel struct {
	BaseModel
	WorkspaceID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_receipt_doc_number,priority:1"`
	WarehouseID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	DocumentNumber string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_receipt_doc_number,priority:2"`
	ProductID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	LotNumber      string             `gorm:"type:varchar(100)"`
	ExpiryDate     *time.Time         `gorm:"type:date"`
	ReceivedAt     time.Time          `gorm:"not null"`
	Note           string             `gorm:"type:text"`
	AttachmentRef  string             `gorm:"type:varchar(500)"`
	Lines          []ReceiptLineModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "stock_receipts"
}

// ToDomain converts the persistence model to a domain Receipt.
func (m *ReceiptModel) ToDomain() *inventory.Receipt {
	r := &inventory.Receipt{
		BaseEntity:     m.BaseModel.ToDomain(),
		WorkspaceID:    m.WorkspaceID,
		WarehouseID:    m.WarehouseID,
		ProductID:      m.ProductID,
		DocumentNumber: m.DocumentNumber,
		LotNumber:      m.LotNumber,
		ExpiryDate:     m.ExpiryDate,
		ReceivedAt:     m.ReceivedAt,
		Note:           m.Note,
		AttachmentRef:  m.AttachmentRef,
		Lines:          make([]inventory.ReceiptLine, len(m.Lines)),
	}
	for i := range m.Lines {
		r.Lines[i] = m.Lines[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain Receipt.
func (m *ReceiptModel) FromDomain(r *inventory.Receipt) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.WorkspaceID = r.WorkspaceID
	m.WarehouseID = r.WarehouseID
	m.DocumentNumber = r.DocumentNumber
	m.ProductID = r.ProductID
	m.LotNumber = r.LotNumber
	m.ExpiryDate = r.ExpiryDate
	m.ReceivedAt = r.ReceivedAt
	m.Note = r.Note
	m.AttachmentRef = r.AttachmentRef
	m.Lines = make([]ReceiptLineModel, len(r.Lines))
	for i := range r.Lines {
		m.Lines[i].FromDomain(&r.Lines[i])
	}
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt.
func ReceiptModelFromDomain(r *inventory.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// ReceiptLineModel is the persistence model for a receipt line.
type ReceiptLineModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	ReceiptID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null"`
	LineNo         int        `gorm:"not null"`
	VariantID      *uuid.UUID `gorm:"type:uuid"`
	CustomSaleMode string     `gorm:"type:varchar(50)"`
	CustomPackSize int64      `gorm:"not null;default:0"`
	PackSize       int64      `gorm:"not null"`
	Quantity       int64      `gorm:"not null"`
	LotNumber      string     `gorm:"type:varchar(100);not null"`
	BatchID        *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ReceiptLineModel) TableName() string {
	return "stock_receipt_lines"
}

// ToDomain converts the persistence model to a domain ReceiptLine.
func (m *ReceiptLineModel) ToDomain() inventory.ReceiptLine {
	return inventory.ReceiptLine{
		ID:             m.ID,
		ReceiptID:      m.ReceiptID,
		ProductID:      m.ProductID,
		LineNo:         m.LineNo,
		VariantID:      m.VariantID,
		CustomSaleMode: m.CustomSaleMode,
		CustomPackSize: m.CustomPackSize,
		PackSize:       m.PackSize,
		Quantity:       m.Quantity,
		LotNumber:      m.LotNumber,
		BatchID:        m.BatchID,
	}
}

// FromDomain populates the persistence model from a domain ReceiptLine.
func (m *ReceiptLineModel) FromDomain(l *inventory.ReceiptLine) {
	m.ID = l.ID
	m.ReceiptID = l.ReceiptID
	m.ProductID = l.ProductID
	m.LineNo = l.LineNo
	m.VariantID = l.VariantID
	m.CustomSaleMode = l.CustomSaleMode
	m.CustomPackSize = l.CustomPackSize
	m.PackSize = l.PackSize
	m.Quantity = l.Quantity
	m.LotNumber = l.LotNumber
	m.BatchID = l.BatchID
}
