package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// CustomPackRequest describes a pack that is not a catalog variant
type CustomPackRequest struct {
	SaleMode string `json:"sale_mode" validate:"max=50"`
	PackSize int64  `json:"pack_size"`
}

// ReceiptLineRequest is one line of a stock-in document. Exactly one of
// VariantID and CustomPack describes the pack; PackSize overrides both.
type ReceiptLineRequest struct {
	VariantID  *uuid.UUID         `json:"variant_id"`
	CustomPack *CustomPackRequest `json:"custom_pack"`
	PackSize   *int64             `json:"pack_size"`
	Quantity   int64              `json:"quantity"`
	LotNumber  string             `json:"lot_number" validate:"max=100"`
}

// CreateReceiptRequest represents a request to receive stock. DocumentNumber
// is generated when empty; LotNumber is the document-level lot.
type CreateReceiptRequest struct {
	WorkspaceID    uuid.UUID            `json:"workspace_id" validate:"required"`
	WarehouseID    uuid.UUID            `json:"warehouse_id" validate:"required"`
	ProductID      uuid.UUID            `json:"product_id" validate:"required"`
	DocumentNumber string               `json:"document_number" validate:"max=50"`
	LotNumber      string               `json:"lot_number" validate:"max=100"`
	ExpiryDate     *time.Time           `json:"expiry_date"`
	ReceivedAt     *time.Time           `json:"received_at"`
	Note           string               `json:"note" validate:"max=2000"`
	AttachmentRef  string               `json:"attachment_ref" validate:"max=500"`
	IdempotencyKey string               `json:"idempotency_key" validate:"max=128"`
	Lines          []ReceiptLineRequest `json:"lines" validate:"dive"`
}

// Scope returns the workspace/warehouse of the request
func (r *CreateReceiptRequest) Scope() shared.Scope {
	return shared.Scope{WorkspaceID: r.WorkspaceID, WarehouseID: r.WarehouseID}
}

// BatchResponse represents a batch (lot) in API responses
type BatchResponse struct {
	ID          uuid.UUID  `json:"id"`
	ReceiptID   uuid.UUID  `json:"receipt_id"`
	ProductID   uuid.UUID  `json:"product_id"`
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	LotNumber   string     `json:"lot_number"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	Received    int64      `json:"received"`
	Remaining   int64      `json:"remaining"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ReceiptLineResponse represents a receipt line in API responses
type ReceiptLineResponse struct {
	ID             uuid.UUID  `json:"id"`
	LineNo         int        `json:"line_no"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	CustomSaleMode string     `json:"custom_sale_mode,omitempty"`
	PackSize       int64      `json:"pack_size"`
	Quantity       int64      `json:"quantity"`
	BaseUnits      int64      `json:"base_units"`
	LotNumber      string     `json:"lot_number"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
}

// ReceiptResponse represents a receipt with its lines and the batches it created
type ReceiptResponse struct {
	ID                     uuid.UUID             `json:"id"`
	WorkspaceID            uuid.UUID             `json:"workspace_id"`
	WarehouseID            uuid.UUID             `json:"warehouse_id"`
	ProductID              uuid.UUID             `json:"product_id"`
	DocumentNumber         string                `json:"document_number"`
	LotNumber              string                `json:"lot_number,omitempty"`
	ExpiryDate             *time.Time            `json:"expiry_date,omitempty"`
	ReceivedAt             time.Time             `json:"received_at"`
	Note                   string                `json:"note,omitempty"`
	AttachmentRef          string                `json:"attachment_ref,omitempty"`
	TotalBaseUnitsReceived int64                 `json:"total_base_units_received"`
	Locked                 bool                  `json:"locked"`
	Lines                  []ReceiptLineResponse `json:"lines"`
	Batches                []BatchResponse       `json:"batches,omitempty"`
	CreatedAt              time.Time             `json:"created_at"`
}

// ReceiptListFilter represents paging options for receipt lists
type ReceiptListFilter struct {
	Page     int    `json:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// SaleListFilter represents paging options for sale lists
type SaleListFilter struct {
	Page     int    `json:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// ChannelRequest carries the sales channel terms to snapshot on the sale
type ChannelRequest struct {
	ChannelID          *uuid.UUID      `json:"channel_id"`
	Name               string          `json:"name" validate:"max=100"`
	CommissionPercent  decimal.Decimal `json:"commission_percent" validate:"nonnegative_decimal"`
	TransactionPercent decimal.Decimal `json:"transaction_percent" validate:"nonnegative_decimal"`
}

// SaleTotalsRequest carries the monetary header computed upstream
type SaleTotalsRequest struct {
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Discount       decimal.Decimal `json:"discount"`
	CommissionFee  decimal.Decimal `json:"commission_fee"`
	TransactionFee decimal.Decimal `json:"transaction_fee"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	CustomerPay    decimal.Decimal `json:"customer_pay"`
	SellerReceive  decimal.Decimal `json:"seller_receive"`
}

// SaleLineRequest is one line of a sale. PackSize defaults to the variant's.
type SaleLineRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	VariantID    uuid.UUID       `json:"variant_id" validate:"required"`
	PackSize     *int64          `json:"pack_size"`
	QuantityPack int64           `json:"quantity_pack"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"nonnegative_decimal"`
}

// CreateSaleRequest represents a request to record a sale and allocate its stock
type CreateSaleRequest struct {
	WorkspaceID    uuid.UUID         `json:"workspace_id" validate:"required"`
	WarehouseID    uuid.UUID         `json:"warehouse_id" validate:"required"`
	SaleDate       *time.Time        `json:"sale_date"`
	Channel        ChannelRequest    `json:"channel"`
	CustomerName   string            `json:"customer_name" validate:"max=200"`
	Province       string            `json:"province" validate:"max=100"`
	Note           string            `json:"note" validate:"max=2000"`
	Totals         SaleTotalsRequest `json:"totals"`
	IdempotencyKey string            `json:"idempotency_key" validate:"max=128"`
	Lines          []SaleLineRequest `json:"lines" validate:"dive"`
}

// Scope returns the workspace/warehouse of the request
func (r *CreateSaleRequest) Scope() shared.Scope {
	return shared.Scope{WorkspaceID: r.WorkspaceID, WarehouseID: r.WarehouseID}
}

// AllocationResponse is one base-unit cut of a sale line
type AllocationResponse struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Quantity int64     `json:"quantity"`
}

// SaleLineResponse represents a sale line with its allocations
type SaleLineResponse struct {
	ID            uuid.UUID            `json:"id"`
	ProductID     uuid.UUID            `json:"product_id"`
	VariantID     uuid.UUID            `json:"variant_id"`
	SaleMode      string               `json:"sale_mode"`
	PackSize      int64                `json:"pack_size"`
	QuantityPack  int64                `json:"quantity_pack"`
	RequiredUnits int64                `json:"required_units"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	LineTotal     decimal.Decimal      `json:"line_total"`
	Allocations   []AllocationResponse `json:"allocations"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID                 uuid.UUID          `json:"id"`
	WorkspaceID        uuid.UUID          `json:"workspace_id"`
	WarehouseID        uuid.UUID          `json:"warehouse_id"`
	SaleDate           time.Time          `json:"sale_date"`
	ChannelID          *uuid.UUID         `json:"channel_id,omitempty"`
	ChannelName        string             `json:"channel_name,omitempty"`
	CommissionPercent  decimal.Decimal    `json:"commission_percent"`
	TransactionPercent decimal.Decimal    `json:"transaction_percent"`
	CustomerName       string             `json:"customer_name,omitempty"`
	Province           string             `json:"province,omitempty"`
	Note               string             `json:"note,omitempty"`
	Subtotal           decimal.Decimal    `json:"subtotal"`
	ShippingFee        decimal.Decimal    `json:"shipping_fee"`
	Discount           decimal.Decimal    `json:"discount"`
	CommissionFee      decimal.Decimal    `json:"commission_fee"`
	TransactionFee     decimal.Decimal    `json:"transaction_fee"`
	VATAmount          decimal.Decimal    `json:"vat_amount"`
	CustomerPay        decimal.Decimal    `json:"customer_pay"`
	SellerReceive      decimal.Decimal    `json:"seller_receive"`
	Lines              []SaleLineResponse `json:"lines"`
	CreatedAt          time.Time          `json:"created_at"`
}

// VoidSaleRequest represents a request to void a sale
type VoidSaleRequest struct {
	WorkspaceID        uuid.UUID `json:"workspace_id" validate:"required"`
	SaleID             uuid.UUID `json:"sale_id" validate:"required"`
	AllowCappedRestore bool      `json:"allow_capped_restore"`
}

// BatchRestoration reports what a void gave back to one batch
type BatchRestoration struct {
	BatchID        uuid.UUID `json:"batch_id"`
	Requested      int64     `json:"requested"`
	Restored       int64     `json:"restored"`
	Dropped        int64     `json:"dropped"`
	RemainingAfter int64     `json:"remaining_after"`
}

// RestorationReport is the result of voiding a sale
type RestorationReport struct {
	SaleID  uuid.UUID          `json:"sale_id"`
	Capped  bool               `json:"capped"`
	Batches []BatchRestoration `json:"batches"`
}

// ConsumedBatchResponse describes a batch that blocks a receipt deletion
type ConsumedBatchResponse struct {
	BatchID    uuid.UUID  `json:"batch_id"`
	LotNumber  string     `json:"lot_number"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Received   int64      `json:"received"`
	Remaining  int64      `json:"remaining"`
}

// DeletionCheckResponse tells whether a receipt can be deleted
type DeletionCheckResponse struct {
	ReceiptID       uuid.UUID               `json:"receipt_id"`
	Deletable       bool                    `json:"deletable"`
	ConsumedBatches []ConsumedBatchResponse `json:"consumed_batches,omitempty"`
}

// AdjustBatchRequest represents a manual correction of a batch
type AdjustBatchRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" validate:"required"`
	BatchID     uuid.UUID `json:"batch_id" validate:"required"`
	Delta       int64     `json:"delta"`
	Note        string    `json:"note" validate:"required,max=500"`
}

// MovementResponse represents a ledger movement in API responses
type MovementResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	Kind           string     `json:"kind"`
	Quantity       int64      `json:"quantity"`
	RemainingAfter int64      `json:"remaining_after"`
	ReceiptID      *uuid.UUID `json:"receipt_id,omitempty"`
	SaleID         *uuid.UUID `json:"sale_id,omitempty"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AdjustmentResponse is the batch after an adjustment and the movement written
type AdjustmentResponse struct {
	Batch    BatchResponse    `json:"batch"`
	Movement MovementResponse `json:"movement"`
}

// StockSummaryResponse is the allocatable stock of a product on a day
type StockSummaryResponse struct {
	ProductID  uuid.UUID  `json:"product_id"`
	Day        time.Time  `json:"day"`
	Available  int64      `json:"available"`
	Expired    int64      `json:"expired"`
	BatchCount int        `json:"batch_count"`
	NextExpiry *time.Time `json:"next_expiry,omitempty"`
}

// ToBatchResponse converts a domain Batch to response DTO
func ToBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:          b.ID,
		ReceiptID:   b.ReceiptID,
		ProductID:   b.ProductID,
		WarehouseID: b.WarehouseID,
		LotNumber:   b.LotNumber,
		ExpiryDate:  b.ExpiryDate,
		Received:    b.Received,
		Remaining:   b.Remaining,
		State:       string(b.State()),
		CreatedAt:   b.CreatedAt,
	}
}

// ToBatchResponses converts a slice of domain Batches to responses
func ToBatchResponses(batches []inventory.Batch) []BatchResponse {
	responses := make([]BatchResponse, len(batches))
	for i := range batches {
		responses[i] = ToBatchResponse(&batches[i])
	}
	return responses
}

// ToReceiptResponse converts a domain Receipt and its batches to response DTO.
// Locked is set when any of the batches has been consumed.
func ToReceiptResponse(r *inventory.Receipt, batches []inventory.Batch) ReceiptResponse {
	resp := ReceiptResponse{
		ID:                     r.ID,
		WorkspaceID:            r.WorkspaceID,
		WarehouseID:            r.WarehouseID,
		ProductID:              r.ProductID,
		DocumentNumber:         r.DocumentNumber,
		LotNumber:              r.LotNumber,
		ExpiryDate:             r.ExpiryDate,
		ReceivedAt:             r.ReceivedAt,
		Note:                   r.Note,
		AttachmentRef:          r.AttachmentRef,
		TotalBaseUnitsReceived: r.TotalBaseUnits(),
		Lines:                  make([]ReceiptLineResponse, len(r.Lines)),
		CreatedAt:              r.CreatedAt,
	}
	for i := range r.Lines {
		l := &r.Lines[i]
		resp.Lines[i] = ReceiptLineResponse{
			ID:             l.ID,
			LineNo:         l.LineNo,
			VariantID:      l.VariantID,
			CustomSaleMode: l.CustomSaleMode,
			PackSize:       l.PackSize,
			Quantity:       l.Quantity,
			BaseUnits:      l.BaseUnits(),
			LotNumber:      l.LotNumber,
			BatchID:        l.BatchID,
		}
	}
	if len(batches) > 0 {
		resp.Batches = ToBatchResponses(batches)
	}
	for i := range batches {
		if batches[i].IsConsumed() {
			resp.Locked = true
			break
		}
	}
	return resp
}

// ToSaleResponse converts a domain Sale to response DTO
func ToSaleResponse(s *inventory.Sale) SaleResponse {
	resp := SaleResponse{
		ID:                 s.ID,
		WorkspaceID:        s.WorkspaceID,
		WarehouseID:        s.WarehouseID,
		SaleDate:           s.SaleDate,
		ChannelID:          s.Channel.ChannelID,
		ChannelName:        s.Channel.Name,
		CommissionPercent:  s.Channel.CommissionPercent,
		TransactionPercent: s.Channel.TransactionPercent,
		CustomerName:       s.CustomerName,
		Province:           s.Province,
		Note:               s.Note,
		Subtotal:           s.Totals.Subtotal,
		ShippingFee:        s.Totals.ShippingFee,
		Discount:           s.Totals.Discount,
		CommissionFee:      s.Totals.CommissionFee,
		TransactionFee:     s.Totals.TransactionFee,
		VATAmount:          s.Totals.VATAmount,
		CustomerPay:        s.Totals.CustomerPay,
		SellerReceive:      s.Totals.SellerReceive,
		Lines:              make([]SaleLineResponse, len(s.Lines)),
		CreatedAt:          s.CreatedAt,
	}
	for i := range s.Lines {
		l := &s.Lines[i]
		line := SaleLineResponse{
			ID:            l.ID,
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			SaleMode:      l.SaleMode,
			PackSize:      l.PackSize,
			QuantityPack:  l.QuantityPack,
			RequiredUnits: l.RequiredUnits(),
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
			Allocations:   make([]AllocationResponse, len(l.Allocations)),
		}
		for j, a := range l.Allocations {
			line.Allocations[j] = AllocationResponse{BatchID: a.BatchID, Quantity: a.Quantity}
		}
		resp.Lines[i] = line
	}
	return resp
}

// ToMovementResponse converts a domain Movement to response DTO
func ToMovementResponse(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		BatchID:        m.BatchID,
		Kind:           m.Kind.String(),
		Quantity:       m.Quantity,
		RemainingAfter: m.RemainingAfter,
		ReceiptID:      m.ReceiptID,
		SaleID:         m.SaleID,
		Note:           m.Note,
		CreatedAt:      m.CreatedAt,
	}
}

// ToMovementResponses converts a slice of domain Movements to responses
func ToMovementResponses(ms []inventory.Movement) []MovementResponse {
	responses := make([]MovementResponse, len(ms))
	for i := range ms {
		responses[i] = ToMovementResponse(&ms[i])
	}
	return responses
}

// ToStockSummaryResponse converts a StockSummary to response DTO
func ToStockSummaryResponse(s inventory.StockSummary) StockSummaryResponse {
	return StockSummaryResponse{
		ProductID:  s.ProductID,
		Day:        s.Day,
		Available:  s.Available,
		Expired:    s.Expired,
		BatchCount: s.BatchCount,
		NextExpiry: s.NextExpiry,
	}
}

func toConsumedBatchResponses(batches []inventory.ConsumedBatch) []ConsumedBatchResponse {
	responses := make([]ConsumedBatchResponse, len(batches))
	for i, b := range batches {
		responses[i] = ConsumedBatchResponse{
			BatchID:    b.BatchID,
			LotNumber:  b.LotNumber,
			ExpiryDate: b.ExpiryDate,
			Received:   b.Received,
			Remaining:  b.Remaining,
		}
	}
	return responses
}
