package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Field keys shared by every ledger log line
const (
	FieldWorkspaceID    = "workspace_id"
	FieldWarehouseID    = "warehouse_id"
	FieldProductID      = "product_id"
	FieldBatchID        = "batch_id"
	FieldReceiptID      = "receipt_id"
	FieldSaleID         = "sale_id"
	FieldDocumentNumber = "document_number"
)

// UUID renders an id field
func UUID(key string, id uuid.UUID) zap.Field {
	return zap.String(key, id.String())
}

// Scope returns the workspace and warehouse fields
func Scope(workspaceID, warehouseID uuid.UUID) []zap.Field {
	return []zap.Field{
		UUID(FieldWorkspaceID, workspaceID),
		UUID(FieldWarehouseID, warehouseID),
	}
}

// Product returns the product id field
func Product(id uuid.UUID) zap.Field { return UUID(FieldProductID, id) }

// Batch returns the batch id field
func Batch(id uuid.UUID) zap.Field { return UUID(FieldBatchID, id) }

// Receipt returns the receipt id and document number fields
func Receipt(id uuid.UUID, documentNumber string) []zap.Field {
	return []zap.Field{
		UUID(FieldReceiptID, id),
		zap.String(FieldDocumentNumber, documentNumber),
	}
}

// Sale returns the sale id field
func Sale(id uuid.UUID) zap.Field { return UUID(FieldSaleID, id) }
