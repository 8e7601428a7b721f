package inventory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Default prefixes for generated document numbers and lots
const (
	DefaultDocumentPrefix = "GRN"
	DefaultLotPrefix      = "LOT"
)

// ReceiptLine is one input line of a stock-in document. PackSize is the
// pack size as of receipt, so later catalog changes do not rewrite history.
type ReceiptLine struct {
	ID             uuid.UUID
	ReceiptID      uuid.UUID
	ProductID      uuid.UUID
	LineNo         int
	VariantID      *uuid.UUID
	CustomSaleMode string
	CustomPackSize int64
	PackSize       int64
	Quantity       int64
	LotNumber      string
	BatchID        *uuid.UUID
}

// BaseUnits returns pack size x number of packs
func (l *ReceiptLine) BaseUnits() int64 {
	return l.PackSize * l.Quantity
}

// PackUnits returns packSize x packs, or false when the product does not
// fit in an int64. Both factors must already be positive.
func PackUnits(packSize, packs int64) (int64, bool) {
	if packs > math.MaxInt64/packSize {
		return 0, false
	}
	return packSize * packs, true
}

// checkUnits rejects a line whose base units, or the document total with
// the line added, overflow an int64.
func checkUnits(line int, packSize, packs, total int64) error {
	units, ok := PackUnits(packSize, packs)
	if !ok {
		return &InvalidQuantityError{
			Field:  fmt.Sprintf("line %d quantity", line),
			Value:  packs,
			Reason: fmt.Sprintf("overflows base units at pack size %d", packSize),
		}
	}
	if units > math.MaxInt64-total {
		return &InvalidQuantityError{
			Field:  fmt.Sprintf("line %d quantity", line),
			Value:  packs,
			Reason: "overflows the document total in base units",
		}
	}
	return nil
}

// IsCustomPack reports whether the line used a custom pack descriptor
func (l *ReceiptLine) IsCustomPack() bool {
	return l.VariantID == nil
}

// Receipt is a stock-in document (goods received note)
type Receipt struct {
	shared.BaseEntity
	WorkspaceID    uuid.UUID
	WarehouseID    uuid.UUID
	ProductID      uuid.UUID
	DocumentNumber string
	LotNumber      string
	ExpiryDate     *time.Time
	ReceivedAt     time.Time
	Note           string
	AttachmentRef  string
	Lines          []ReceiptLine
}

// NewReceipt creates a receipt header; lines are attached with AddLine
func NewReceipt(scope shared.Scope, productID uuid.UUID, documentNumber string, expiry *time.Time, receivedAt, now time.Time) (*Receipt, error) {
	if scope.WorkspaceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORKSPACE", "Workspace ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	documentNumber = strings.TrimSpace(documentNumber)
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if receivedAt.IsZero() {
		receivedAt = now
	}

	return &Receipt{
		BaseEntity:     shared.NewBaseEntity(now),
		WorkspaceID:    scope.WorkspaceID,
		WarehouseID:    scope.WarehouseID,
		ProductID:      productID,
		DocumentNumber: documentNumber,
		ExpiryDate:     shared.DatePtr(expiry),
		ReceivedAt:     receivedAt,
	}, nil
}

// Scope returns the workspace/warehouse scope of the receipt
func (r *Receipt) Scope() shared.Scope {
	return shared.Scope{WorkspaceID: r.WorkspaceID, WarehouseID: r.WarehouseID}
}

// AddLine appends a resolved line. Pack size and quantity must be positive.
func (r *Receipt) AddLine(line ReceiptLine) error {
	if line.PackSize <= 0 {
		return &InvalidQuantityError{Field: fmt.Sprintf("line %d pack size", len(r.Lines)+1), Value: line.PackSize}
	}
	if line.Quantity <= 0 {
		return &InvalidQuantityError{Field: fmt.Sprintf("line %d quantity", len(r.Lines)+1), Value: line.Quantity}
	}
	if err := checkUnits(len(r.Lines)+1, line.PackSize, line.Quantity, r.TotalBaseUnits()); err != nil {
		return err
	}
	line.ID = uuid.New()
	line.ReceiptID = r.ID
	line.ProductID = r.ProductID
	line.LineNo = len(r.Lines) + 1
	r.Lines = append(r.Lines, line)
	return nil
}

// BatchKeyFor returns the batch key a lot of this receipt maps to
func (r *Receipt) BatchKeyFor(lot string) BatchKey {
	return BatchKey{
		ReceiptID:  r.ID,
		ProductID:  r.ProductID,
		LotNumber:  lot,
		ExpiryDate: r.ExpiryDate,
	}.Normalize()
}

// TotalBaseUnits sums base units over all lines
func (r *Receipt) TotalBaseUnits() int64 {
	var total int64
	for i := range r.Lines {
		total += r.Lines[i].BaseUnits()
	}
	return total
}

// DocumentDayPrefix returns "{prefix}-{yyyyMMdd}-" for day
func DocumentDayPrefix(prefix string, day time.Time) string {
	if prefix == "" {
		prefix = DefaultDocumentPrefix
	}
	return fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
}

// FormatDocumentNumber renders "{prefix}-{yyyyMMdd}-{seq:03d}"
func FormatDocumentNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s%03d", DocumentDayPrefix(prefix, day), seq)
}

// ParseDocumentSequence extracts the numeric suffix of a document number
// carrying dayPrefix. ok is false for numbers that do not follow the format.
func ParseDocumentSequence(documentNumber, dayPrefix string) (seq int, ok bool) {
	suffix, found := strings.CutPrefix(documentNumber, dayPrefix)
	if !found || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextDocumentNumber returns the number following the highest sequence seen today
func NextDocumentNumber(prefix string, day time.Time, existing []string) string {
	dayPrefix := DocumentDayPrefix(prefix, day)
	maxSeq := 0
	for _, n := range existing {
		if seq, ok := ParseDocumentSequence(n, dayPrefix); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return FormatDocumentNumber(prefix, day, maxSeq+1)
}

// DefaultLot derives the auto lot of a document: "{prefix}-{DOCNUMBER}"
// with spaces removed and upper-cased.
func DefaultLot(prefix, documentNumber string) string {
	if prefix == "" {
		prefix = DefaultLotPrefix
	}
	base := strings.ToUpper(strings.ReplaceAll(documentNumber, " ", ""))
	if base == "" {
		base = DefaultDocumentPrefix
	}
	return prefix + "-" + base
}

// ResolveLots picks the lot of every line. A document-level lot overrides
// the default and every non-blank line lot must equal it. Without a document
// lot, blank line lots fall back to defaultLot.
func ResolveLots(documentLot string, lineLots []string, defaultLot string) ([]string, error) {
	documentLot = strings.TrimSpace(documentLot)
	fallback := defaultLot
	if documentLot != "" {
		fallback = documentLot
	}

	resolved := make([]string, len(lineLots))
	for i, lot := range lineLots {
		lot = strings.TrimSpace(lot)
		switch {
		case lot == "":
			resolved[i] = fallback
		case documentLot != "" && lot != documentLot:
			return nil, &InconsistentLotError{Line: i + 1, LineLot: lot, DocumentLot: documentLot}
		default:
			resolved[i] = lot
		}
	}
	return resolved, nil
}
