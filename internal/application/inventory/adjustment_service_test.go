package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustBatch(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(10, nil).Batches[0].ID
	adjust := func(delta int64) (*appinv.AdjustmentResponse, error) {
		return f.adjustments.AdjustBatch(f.ctx, appinv.AdjustBatchRequest{
			WorkspaceID: f.scope.WorkspaceID,
			BatchID:     batchID,
			Delta:       delta,
			Note:        "  damaged in transit ",
		})
	}

	resp, err := adjust(-3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.Batch.Remaining)
	assert.Equal(t, int64(10), resp.Batch.Received)
	assert.Equal(t, inventory.MovementKindAdjust.String(), resp.Movement.Kind)
	assert.Equal(t, int64(-3), resp.Movement.Quantity)
	assert.Equal(t, int64(7), resp.Movement.RemainingAfter)
	assert.Equal(t, "damaged in transit", resp.Movement.Note)

	_, err = adjust(-8)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = adjust(4)
	assert.ErrorIs(t, err, inventory.ErrRestoreExceedsReceived)

	resp, err = adjust(3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.Batch.Remaining)

	_, err = adjust(0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	assert.Equal(t, int64(10), f.batchRemaining(batchID))
	assert.Equal(t, int64(10), f.movementSum(batchID))

	movements, err := f.ledger.ListByBatch(f.ctx, f.scope.WorkspaceID, batchID)
	require.NoError(t, err)
	assert.Len(t, movements, 3, "IN plus two ADJUST")
}

func TestAdjustBatch_Rejections(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(10, nil).Batches[0].ID

	_, err := f.adjustments.AdjustBatch(f.ctx, appinv.AdjustBatchRequest{
		WorkspaceID: f.scope.WorkspaceID,
		BatchID:     batchID,
		Delta:       -1,
	})
	assert.Error(t, err, "a note is required")

	_, err = f.adjustments.AdjustBatch(f.ctx, appinv.AdjustBatchRequest{
		WorkspaceID: uuid.New(),
		BatchID:     batchID,
		Delta:       -1,
		Note:        "wrong workspace",
	})
	assert.ErrorIs(t, err, inventory.ErrBatchNotFound)

	_, err = f.adjustments.AdjustBatch(f.ctx, appinv.AdjustBatchRequest{
		WorkspaceID: f.scope.WorkspaceID,
		BatchID:     uuid.New(),
		Delta:       -1,
		Note:        "missing batch",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, int64(10), f.batchRemaining(batchID))
}

func TestMovementLedger_WorkspaceIsolation(t *testing.T) {
	f := newLedgerFixture(t)
	receipt := f.receive(10, nil)
	sale := f.sell(2)
	stranger := uuid.New()

	_, err := f.ledger.ListByBatch(f.ctx, stranger, receipt.Batches[0].ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.ledger.ListByReceipt(f.ctx, stranger, receipt.ID)
	assert.ErrorIs(t, err, inventory.ErrReceiptNotFound)
	_, err = f.ledger.ListBySale(f.ctx, stranger, sale.ID)
	assert.ErrorIs(t, err, inventory.ErrSaleNotFound)

	other := shared.Scope{WorkspaceID: f.scope.WorkspaceID, WarehouseID: uuid.New()}
	summary, err := f.ledger.AvailableForProduct(f.ctx, other, f.productID)
	require.NoError(t, err)
	assert.Zero(t, summary.Available, "stock is per warehouse")
	assert.Equal(t, int64(8), f.available().Available)
}
