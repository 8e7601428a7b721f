package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMovement_Signs(t *testing.T) {
	b := createTestBatch(10)

	tests := []struct {
		name    string
		kind    MovementKind
		qty     int64
		wantErr bool
	}{
		{"in positive", MovementKindIn, 5, false},
		{"in negative", MovementKindIn, -5, true},
		{"out negative", MovementKindOut, -5, false},
		{"out positive", MovementKindOut, 5, true},
		{"adjust positive", MovementKindAdjust, 2, false},
		{"adjust negative", MovementKindAdjust, -2, false},
		{"void negative", MovementKindVoid, -1, false},
		{"void positive", MovementKindVoid, 1, true},
		{"zero", MovementKindAdjust, 0, true},
		{"unknown kind", MovementKind("MOVE"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMovement(b, tt.kind, tt.qty, testNow)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.qty, m.Quantity)
		})
	}
}

func TestNewMovement_ZeroIsInvalidQuantity(t *testing.T) {
	_, err := NewMovement(createTestBatch(1), MovementKindIn, 0, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNewInMovement(t *testing.T) {
	b := createTestBatch(12)
	receiptID := uuid.New()

	m, err := NewInMovement(b, receiptID, 12, "GRN-20240615-001", testNow)
	require.NoError(t, err)

	assert.Equal(t, MovementKindIn, m.Kind)
	assert.Equal(t, int64(12), m.Quantity)
	assert.Equal(t, int64(12), m.RemainingAfter)
	require.NotNil(t, m.BatchID)
	assert.Equal(t, b.ID, *m.BatchID)
	require.NotNil(t, m.ReceiptID)
	assert.Equal(t, receiptID, *m.ReceiptID)
	assert.Nil(t, m.SaleID)
	assert.Equal(t, b.ProductID, m.ProductID)
	assert.Equal(t, b.WorkspaceID, m.WorkspaceID)
	assert.True(t, m.IsInbound())
}

func TestNewOutMovement(t *testing.T) {
	b := createTestBatch(12)
	require.NoError(t, b.Decrement(5))
	saleID := uuid.New()

	m, err := NewOutMovement(b, saleID, 5, "", testNow)
	require.NoError(t, err)

	assert.Equal(t, MovementKindOut, m.Kind)
	assert.Equal(t, int64(-5), m.Quantity)
	assert.Equal(t, int64(7), m.RemainingAfter)
	require.NotNil(t, m.SaleID)
	assert.Equal(t, saleID, *m.SaleID)
	assert.False(t, m.IsInbound())
}

func TestNewVoidMovement(t *testing.T) {
	b := createTestBatch(3)

	m, err := NewVoidMovement(b, 2, "capped restore", testNow)
	require.NoError(t, err)
	assert.Equal(t, MovementKindVoid, m.Kind)
	assert.Equal(t, int64(-2), m.Quantity)
	assert.Nil(t, m.SaleID)
	assert.Nil(t, m.ReceiptID)
	assert.Equal(t, "capped restore", m.Note)
}
