package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// ChannelSnapshot freezes the sales channel terms at sale time
type ChannelSnapshot struct {
	ChannelID          *uuid.UUID
	Name               string
	CommissionPercent  decimal.Decimal
	TransactionPercent decimal.Decimal
}

// SaleTotals holds the monetary header of a sale. Fee arithmetic happens
// upstream; the engine only derives Subtotal from the lines.
type SaleTotals struct {
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Discount       decimal.Decimal
	CommissionFee  decimal.Decimal
	TransactionFee decimal.Decimal
	VATAmount      decimal.Decimal
	CustomerPay    decimal.Decimal
	SellerReceive  decimal.Decimal
}

// AllocationRecord is the base-unit cut a sale line took from one batch
type AllocationRecord struct {
	ID         uuid.UUID
	SaleID     uuid.UUID
	SaleLineID uuid.UUID
	ProductID  uuid.UUID
	BatchID    uuid.UUID
	Quantity   int64
	CreatedAt  time.Time
}

// SaleLine is one product line of a sale
type SaleLine struct {
	ID           uuid.UUID
	SaleID       uuid.UUID
	ProductID    uuid.UUID
	VariantID    uuid.UUID
	SaleMode     string
	PackSize     int64
	QuantityPack int64
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	Allocations  []AllocationRecord
}

// RequiredUnits returns pack size x number of packs
func (l *SaleLine) RequiredUnits() int64 {
	return l.PackSize * l.QuantityPack
}

// AllocatedUnits sums the allocation records of the line
func (l *SaleLine) AllocatedUnits() int64 {
	var total int64
	for _, a := range l.Allocations {
		total += a.Quantity
	}
	return total
}

// IsFullyAllocated reports whether allocations cover the required units exactly
func (l *SaleLine) IsFullyAllocated() bool {
	return l.AllocatedUnits() == l.RequiredUnits()
}

// Allocate records a cut from batchID. The line can never be over-allocated.
func (l *SaleLine) Allocate(batchID uuid.UUID, qty int64, now time.Time) (AllocationRecord, error) {
	if qty <= 0 {
		return AllocationRecord{}, &InvalidQuantityError{Field: "allocation quantity", Value: qty}
	}
	if l.AllocatedUnits()+qty > l.RequiredUnits() {
		return AllocationRecord{}, shared.NewDomainError("OVER_ALLOCATION",
			fmt.Sprintf("allocating %d would exceed line requirement %d", qty, l.RequiredUnits()))
	}
	rec := AllocationRecord{
		ID:         uuid.New(),
		SaleID:     l.SaleID,
		SaleLineID: l.ID,
		ProductID:  l.ProductID,
		BatchID:    batchID,
		Quantity:   qty,
		CreatedAt:  now,
	}
	l.Allocations = append(l.Allocations, rec)
	return rec, nil
}

// Sale is a sale event with one or more lines
type Sale struct {
	shared.BaseEntity
	WorkspaceID  uuid.UUID
	WarehouseID  uuid.UUID
	SaleDate     time.Time
	Channel      ChannelSnapshot
	CustomerName string
	Province     string
	Note         string
	Totals       SaleTotals
	Lines        []SaleLine
}

// NewSale creates a sale header
func NewSale(scope shared.Scope, saleDate time.Time, channel ChannelSnapshot, now time.Time) (*Sale, error) {
	if scope.WorkspaceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORKSPACE", "Workspace ID cannot be empty")
	}
	if channel.CommissionPercent.IsNegative() || channel.TransactionPercent.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CHANNEL_TERMS", "Channel percentages cannot be negative")
	}
	if saleDate.IsZero() {
		saleDate = now
	}
	return &Sale{
		BaseEntity:  shared.NewBaseEntity(now),
		WorkspaceID: scope.WorkspaceID,
		WarehouseID: scope.WarehouseID,
		SaleDate:    saleDate,
		Channel:     channel,
	}, nil
}

// Scope returns the workspace/warehouse scope of the sale
func (s *Sale) Scope() shared.Scope {
	return shared.Scope{WorkspaceID: s.WorkspaceID, WarehouseID: s.WarehouseID}
}

// AddLine appends a line and returns its index
func (s *Sale) AddLine(productID, variantID uuid.UUID, saleMode string, packSize, quantityPack int64, unitPrice decimal.Decimal) (int, error) {
	if productID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if packSize <= 0 {
		return 0, &InvalidQuantityError{Field: fmt.Sprintf("line %d pack size", len(s.Lines)+1), Value: packSize}
	}
	if quantityPack <= 0 {
		return 0, &InvalidQuantityError{Field: fmt.Sprintf("line %d quantity", len(s.Lines)+1), Value: quantityPack}
	}
	if unitPrice.IsNegative() {
		return 0, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if err := checkUnits(len(s.Lines)+1, packSize, quantityPack, s.RequiredUnits()); err != nil {
		return 0, err
	}

	s.Lines = append(s.Lines, SaleLine{
		ID:           uuid.New(),
		SaleID:       s.ID,
		ProductID:    productID,
		VariantID:    variantID,
		SaleMode:     saleMode,
		PackSize:     packSize,
		QuantityPack: quantityPack,
		UnitPrice:    unitPrice,
		LineTotal:    unitPrice.Mul(decimal.NewFromInt(quantityPack)),
	})
	s.recalculateSubtotal()
	return len(s.Lines) - 1, nil
}

// RequiredUnits sums the base units every line needs
func (s *Sale) RequiredUnits() int64 {
	var total int64
	for i := range s.Lines {
		total += s.Lines[i].RequiredUnits()
	}
	return total
}

func (s *Sale) recalculateSubtotal() {
	subtotal := decimal.Zero
	for i := range s.Lines {
		subtotal = subtotal.Add(s.Lines[i].LineTotal)
	}
	s.Totals.Subtotal = subtotal
}

// Allocations returns every allocation record of the sale in line order
func (s *Sale) Allocations() []AllocationRecord {
	var out []AllocationRecord
	for i := range s.Lines {
		out = append(out, s.Lines[i].Allocations...)
	}
	return out
}

// CheckFullyAllocated verifies every line's allocations sum to its requirement
func (s *Sale) CheckFullyAllocated() error {
	for i := range s.Lines {
		l := &s.Lines[i]
		if !l.IsFullyAllocated() {
			return shared.NewDomainError("INCOMPLETE_ALLOCATION",
				fmt.Sprintf("line %d allocated %d of %d units", i+1, l.AllocatedUnits(), l.RequiredUnits()))
		}
	}
	return nil
}
