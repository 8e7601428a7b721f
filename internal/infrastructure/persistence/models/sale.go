package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// SaleModel is the persistence model for the Sale header. Channel terms and
// totals are stored as a snapshot.
type SaleModel struct {
	ScopedModel
	SaleDate           time.Time       `gorm:"not null;index"`
	ChannelID          *uuid.UUID      `gorm:"type:uuid"`
	ChannelName        string          `gorm:"type:varchar(100)"`
	CommissionPercent  decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	TransactionPercent decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	CustomerName       string          `gorm:"type:varchar(200)"`
	Province           string          `gorm:"type:varchar(100)"`
	Note               string          `gorm:"type:text"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	ShippingFee        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Discount           decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	CommissionFee      decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TransactionFee     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	VATAmount          decimal.Decimal `gorm:"column:vat_amount;type:numeric(18,4);not null;default:0"`
	CustomerPay        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	SellerReceive      decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Lines              []SaleLineModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale. Allocation
// records are attached per line.
func (m *SaleModel) ToDomain() *inventory.Sale {
	s := &inventory.Sale{
		BaseEntity:  m.BaseModel.ToDomain(),
		WorkspaceID: m.WorkspaceID,
		WarehouseID: m.WarehouseID,
		SaleDate:    m.SaleDate,
		Channel: inventory.ChannelSnapshot{
			ChannelID:          m.ChannelID,
			Name:               m.ChannelName,
			CommissionPercent:  m.CommissionPercent,
			TransactionPercent: m.TransactionPercent,
		},
		CustomerName: m.CustomerName,
		Province:     m.Province,
		Note:         m.Note,
		Totals: inventory.SaleTotals{
			Subtotal:       m.Subtotal,
			ShippingFee:    m.ShippingFee,
			Discount:       m.Discount,
			CommissionFee:  m.CommissionFee,
			TransactionFee: m.TransactionFee,
			VATAmount:      m.VATAmount,
			CustomerPay:    m.CustomerPay,
			SellerReceive:  m.SellerReceive,
		},
		Lines: make([]inventory.SaleLine, len(m.Lines)),
	}
	for i := range m.Lines {
		s.Lines[i] = m.Lines[i].ToDomain()
	}
	return s
}

// FromDomain populates the header fields from a domain Sale. Lines are
// mapped separately with SaleLinesFromDomain.
func (m *SaleModel) FromDomain(s *inventory.Sale) {
	m.FromDomainScoped(s.BaseEntity, shared.Scope{WorkspaceID: s.WorkspaceID, WarehouseID: s.WarehouseID})
	m.SaleDate = s.SaleDate
	m.ChannelID = s.Channel.ChannelID
	m.ChannelName = s.Channel.Name
	m.CommissionPercent = s.Channel.CommissionPercent
	m.TransactionPercent = s.Channel.TransactionPercent
	m.CustomerName = s.CustomerName
	m.Province = s.Province
	m.Note = s.Note
	m.Subtotal = s.Totals.Subtotal
	m.ShippingFee = s.Totals.ShippingFee
	m.Discount = s.Totals.Discount
	m.CommissionFee = s.Totals.CommissionFee
	m.TransactionFee = s.Totals.TransactionFee
	m.VATAmount = s.Totals.VATAmount
	m.CustomerPay = s.Totals.CustomerPay
	m.SellerReceive = s.Totals.SellerReceive
}

// SaleLineModel is the persistence model for a sale line.
type SaleLineModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key"`
	SaleID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	LineNo       int               `gorm:"not null"`
	ProductID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	VariantID    uuid.UUID         `gorm:"type:uuid;not null"`
	SaleMode     string            `gorm:"type:varchar(50)"`
	PackSize     int64             `gorm:"not null"`
	QuantityPack int64             `gorm:"not null"`
	UnitPrice    decimal.Decimal   `gorm:"type:numeric(18,4);not null;default:0"`
	LineTotal    decimal.Decimal   `gorm:"type:numeric(18,4);not null;default:0"`
	Allocations  []AllocationModel `gorm:"foreignKey:SaleLineID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleLineModel) TableName() string {
	return "sale_lines"
}

// ToDomain converts the persistence model to a domain SaleLine.
func (m *SaleLineModel) ToDomain() inventory.SaleLine {
	l := inventory.SaleLine{
		ID:           m.ID,
		SaleID:       m.SaleID,
		ProductID:    m.ProductID,
		VariantID:    m.VariantID,
		SaleMode:     m.SaleMode,
		PackSize:     m.PackSize,
		QuantityPack: m.QuantityPack,
		UnitPrice:    m.UnitPrice,
		LineTotal:    m.LineTotal,
		Allocations:  make([]inventory.AllocationRecord, len(m.Allocations)),
	}
	for i := range m.Allocations {
		l.Allocations[i] = m.Allocations[i].ToDomain()
	}
	return l
}

// SaleLinesFromDomain maps the lines and their allocation records of a sale.
func SaleLinesFromDomain(s *inventory.Sale) ([]SaleLineModel, []AllocationModel) {
	lines := make([]SaleLineModel, 0, len(s.Lines))
	var allocs []AllocationModel
	for i := range s.Lines {
		l := &s.Lines[i]
		lines = append(lines, SaleLineModel{
			ID:           l.ID,
			SaleID:       s.ID,
			LineNo:       i + 1,
			ProductID:    l.ProductID,
			VariantID:    l.VariantID,
			SaleMode:     l.SaleMode,
			PackSize:     l.PackSize,
			QuantityPack: l.QuantityPack,
			UnitPrice:    l.UnitPrice,
			LineTotal:    l.LineTotal,
		})
		for _, a := range l.Allocations {
			allocs = append(allocs, AllocationModelFromDomain(a))
		}
	}
	return lines, allocs
}

// AllocationModel is the persistence model for an allocation record.
type AllocationModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	SaleID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SaleLineID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null"`
	BatchID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity   int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "sale_line_allocations"
}

// ToDomain converts the persistence model to a domain AllocationRecord.
func (m *AllocationModel) ToDomain() inventory.AllocationRecord {
	return inventory.AllocationRecord{
		ID:         m.ID,
		SaleID:     m.SaleID,
		SaleLineID: m.SaleLineID,
		ProductID:  m.ProductID,
		BatchID:    m.BatchID,
		Quantity:   m.Quantity,
		CreatedAt:  m.CreatedAt,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain AllocationRecord.
func AllocationModelFromDomain(a inventory.AllocationRecord) AllocationModel {
	return AllocationModel{
		ID:         a.ID,
		SaleID:     a.SaleID,
		SaleLineID: a.SaleLineID,
		ProductID:  a.ProductID,
		BatchID:    a.BatchID,
		Quantity:   a.Quantity,
		CreatedAt:  a.CreatedAt,
	}
}
