package persistence

import (
	"testing"

	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":          "DESC",
		"asc":       "ASC",
		"  ASC ":    "ASC",
		"desc":      "DESC",
		"ascending": "DESC",
		"ASC; --":   "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField_ReceiptFields(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "created_at"},
		{"document_number", "document_number"},
		{" received_at ", "received_at"},
		{"expiry_date", "expiry_date"},
		{"DOCUMENT_NUMBER", "created_at"},
		{"remaining", "created_at"},
		{"document_number; DROP TABLE stock_receipts;--", "created_at"},
		{"document_number, (SELECT note FROM stock_movements)", "created_at"},
		{"lot_number'--", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, ReceiptSortFields, "created_at"))
		})
	}

	assert.Equal(t, "", ValidateSortField("remaining", ReceiptSortFields, ""))
}

func TestApplyFilter(t *testing.T) {
	db := newLedgerSQLite(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	build := func(filter shared.Filter) (string, []any) {
		var rows []models.ReceiptModel
		stmt := applyFilter(dry.Model(&models.ReceiptModel{}), filter, ReceiptSortFields).Find(&rows).Statement
		return stmt.SQL.String(), stmt.Vars
	}

	sql, vars := build(shared.Filter{OrderBy: "document_number", OrderDir: "asc", Page: 3, PageSize: 10})
	assert.Contains(t, sql, "ORDER BY document_number ASC,id ASC")
	assert.Contains(t, sql, "LIMIT")
	assert.Equal(t, []any{10, 20}, vars)

	sql, _ = build(shared.Filter{OrderBy: "id", OrderDir: "sideways"})
	assert.Contains(t, sql, "ORDER BY id DESC")
	assert.NotContains(t, sql, "id ASC")

	sql, _ = build(shared.Filter{OrderBy: "note; --"})
	assert.Contains(t, sql, "ORDER BY created_at DESC,id ASC")
}

func TestValidateSortField_SaleFields(t *testing.T) {
	assert.Equal(t, "sale_date", ValidateSortField("sale_date", SaleSortFields, "created_at"))
	assert.Equal(t, "subtotal", ValidateSortField("subtotal", SaleSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("document_number", SaleSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("product_id", SaleSortFields, "created_at"))
}
