package inventory

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReceipt(t *testing.T) *Receipt {
	t.Helper()
	expiry := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	r, err := NewReceipt(testScope(), uuid.New(), "GRN-20240615-001", &expiry, time.Time{}, testNow)
	require.NoError(t, err)
	return r
}

func TestNewReceipt(t *testing.T) {
	t.Run("normalises expiry and defaults received time", func(t *testing.T) {
		r := createTestReceipt(t)
		require.NotNil(t, r.ExpiryDate)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *r.ExpiryDate)
		assert.Equal(t, testNow, r.ReceivedAt)
		assert.Empty(t, r.Lines)
	})

	t.Run("requires workspace, product and number", func(t *testing.T) {
		_, err := NewReceipt(shared.Scope{}, uuid.New(), "X", nil, testNow, testNow)
		assert.Error(t, err)

		_, err = NewReceipt(testScope(), uuid.Nil, "X", nil, testNow, testNow)
		assert.Error(t, err)

		_, err = NewReceipt(testScope(), uuid.New(), "   ", nil, testNow, testNow)
		assert.Error(t, err)
	})
}

func TestReceipt_AddLine(t *testing.T) {
	t.Run("numbers lines and totals base units", func(t *testing.T) {
		r := createTestReceipt(t)
		require.NoError(t, r.AddLine(ReceiptLine{PackSize: 6, Quantity: 2}))
		require.NoError(t, r.AddLine(ReceiptLine{PackSize: 1, Quantity: 5}))

		require.Len(t, r.Lines, 2)
		assert.Equal(t, 1, r.Lines[0].LineNo)
		assert.Equal(t, 2, r.Lines[1].LineNo)
		assert.Equal(t, r.ID, r.Lines[0].ReceiptID)
		assert.Equal(t, r.ProductID, r.Lines[1].ProductID)
		assert.Equal(t, int64(12), r.Lines[0].BaseUnits())
		assert.Equal(t, int64(17), r.TotalBaseUnits())
		assert.True(t, r.Lines[0].IsCustomPack())
	})

	t.Run("rejects non-positive pack size or quantity", func(t *testing.T) {
		r := createTestReceipt(t)

		err := r.AddLine(ReceiptLine{PackSize: 0, Quantity: 2})
		var qtyErr *InvalidQuantityError
		require.True(t, errors.As(err, &qtyErr))
		assert.Equal(t, "line 1 pack size", qtyErr.Field)

		err = r.AddLine(ReceiptLine{PackSize: 3, Quantity: -1})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Empty(t, r.Lines)
	})

	t.Run("rejects base units that overflow", func(t *testing.T) {
		r := createTestReceipt(t)

		err := r.AddLine(ReceiptLine{PackSize: 1 << 32, Quantity: 1<<32 + 1})
		var qtyErr *InvalidQuantityError
		require.True(t, errors.As(err, &qtyErr))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, "line 1 quantity", qtyErr.Field)
		assert.Contains(t, err.Error(), "overflows")
		assert.Empty(t, r.Lines)

		require.NoError(t, r.AddLine(ReceiptLine{PackSize: 1, Quantity: math.MaxInt64}))
		err = r.AddLine(ReceiptLine{PackSize: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Len(t, r.Lines, 1)
		assert.Equal(t, int64(math.MaxInt64), r.TotalBaseUnits())
	})
}

func TestPackUnits(t *testing.T) {
	units, ok := PackUnits(6, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(12), units)

	units, ok = PackUnits(2, math.MaxInt64/2)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64-1), units)

	_, ok = PackUnits(2, math.MaxInt64/2+1)
	assert.False(t, ok)
	_, ok = PackUnits(1<<32, 1<<32+1)
	assert.False(t, ok)
}

func TestReceipt_BatchKeyFor(t *testing.T) {
	r := createTestReceipt(t)
	key := r.BatchKeyFor(" LOT-9 ")

	assert.Equal(t, r.ID, key.ReceiptID)
	assert.Equal(t, r.ProductID, key.ProductID)
	assert.Equal(t, "LOT-9", key.LotNumber)
	assert.Equal(t, "2025-03-01", key.ExpiryKey())
}

func TestDocumentNumbers(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("formats with zero padded sequence", func(t *testing.T) {
		assert.Equal(t, "GRN-20240615-", DocumentDayPrefix("", day))
		assert.Equal(t, "GRN-20240615-007", FormatDocumentNumber("GRN", day, 7))
		assert.Equal(t, "GRN-20240615-1000", FormatDocumentNumber("GRN", day, 1000))
	})

	t.Run("starts at one for a new day", func(t *testing.T) {
		assert.Equal(t, "GRN-20240615-001", NextDocumentNumber("GRN", day, nil))
	})

	t.Run("follows the highest numeric suffix", func(t *testing.T) {
		existing := []string{"GRN-20240615-002", "GRN-20240615-999", "GRN-20240615-010", "GRN-20240615-abc", "MANUAL-1"}
		assert.Equal(t, "GRN-20240615-1000", NextDocumentNumber("GRN", day, existing))
	})

	t.Run("parses only matching numbers", func(t *testing.T) {
		seq, ok := ParseDocumentSequence("GRN-20240615-042", "GRN-20240615-")
		assert.True(t, ok)
		assert.Equal(t, 42, seq)

		_, ok = ParseDocumentSequence("GRN-20240614-042", "GRN-20240615-")
		assert.False(t, ok)
		_, ok = ParseDocumentSequence("GRN-20240615-", "GRN-20240615-")
		assert.False(t, ok)
	})
}

func TestDefaultLot(t *testing.T) {
	assert.Equal(t, "LOT-GRN-20240615-001", DefaultLot("LOT", "GRN-20240615-001"))
	assert.Equal(t, "LOT-INV2024A", DefaultLot("", "inv 2024 a"))
}

func TestResolveLots(t *testing.T) {
	t.Run("blank lines use the default lot", func(t *testing.T) {
		lots, err := ResolveLots("", []string{"", "  "}, "LOT-GRN-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"LOT-GRN-1", "LOT-GRN-1"}, lots)
	})

	t.Run("line lots are kept without a document lot", func(t *testing.T) {
		lots, err := ResolveLots("", []string{"A", "", " B "}, "LOT-GRN-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "LOT-GRN-1", "B"}, lots)
	})

	t.Run("document lot overrides the default", func(t *testing.T) {
		lots, err := ResolveLots(" DOC ", []string{"", "DOC"}, "LOT-GRN-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"DOC", "DOC"}, lots)
	})

	t.Run("conflicting line lot is rejected", func(t *testing.T) {
		_, err := ResolveLots("DOC", []string{"DOC", "OTHER"}, "LOT-GRN-1")

		var lotErr *InconsistentLotError
		require.True(t, errors.As(err, &lotErr))
		assert.Equal(t, 2, lotErr.Line)
		assert.Equal(t, "OTHER", lotErr.LineLot)
		assert.ErrorIs(t, err, ErrInconsistentLot)
	})
}
