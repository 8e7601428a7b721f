package persistence

import (
	"strings"

	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ReceiptSortFields contains allowed sort fields for receipts
var ReceiptSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"document_number": true,
	"received_at":     true,
	"expiry_date":     true,
	"lot_number":      true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"sale_date":     true,
	"customer_name": true,
	"subtotal":      true,
}

// applyFilter applies validated ordering and pagination
func applyFilter(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	filter = filter.Normalize()
	orderBy := ValidateSortField(filter.OrderBy, allowed, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if orderBy != "id" {
		query = query.Order("id ASC")
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
