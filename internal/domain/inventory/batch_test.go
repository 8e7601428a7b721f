package inventory

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func testScope() shared.Scope {
	return shared.Scope{WorkspaceID: uuid.New(), WarehouseID: uuid.New()}
}

func createTestBatch(received int64) *Batch {
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	b := NewBatch(testScope(), BatchKey{
		ReceiptID:  uuid.New(),
		ProductID:  uuid.New(),
		LotNumber:  "LOT-A",
		ExpiryDate: &expiry,
	}, testNow)
	if received > 0 {
		_ = b.Increment(received)
	}
	return b
}

func TestBatchKey_Normalize(t *testing.T) {
	expiry := time.Date(2024, 12, 31, 17, 45, 0, 0, time.UTC)
	key := BatchKey{LotNumber: "  LOT-1 ", ExpiryDate: &expiry}.Normalize()

	assert.Equal(t, "LOT-1", key.LotNumber)
	require.NotNil(t, key.ExpiryDate)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *key.ExpiryDate)
	assert.Equal(t, "2024-12-31", key.ExpiryKey())
	assert.Equal(t, "none", BatchKey{}.ExpiryKey())
}

func TestNewBatch(t *testing.T) {
	b := createTestBatch(0)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, int64(0), b.Received)
	assert.Equal(t, int64(0), b.Remaining)
	assert.Equal(t, BatchStateOpen, b.State())
	assert.Equal(t, testNow, b.CreatedAt)
	assert.Equal(t, uuid.Version(7), b.ID.Version())

	next := createTestBatch(0)
	assert.Equal(t, testNow, next.CreatedAt)
	assert.Negative(t, bytes.Compare(b.ID[:], next.ID[:]), "later batch sorts after on equal created_at")
}

func TestBatch_Increment(t *testing.T) {
	t.Run("grows received and remaining", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Increment(5))
		assert.Equal(t, int64(15), b.Received)
		assert.Equal(t, int64(15), b.Remaining)
		assert.Equal(t, BatchStateReceiving, b.State())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		b := createTestBatch(10)
		for _, qty := range []int64{0, -3} {
			err := b.Increment(qty)
			assert.ErrorIs(t, err, ErrInvalidQuantity)
		}
		assert.Equal(t, int64(10), b.Received)
	})
}

func TestBatch_Decrement(t *testing.T) {
	t.Run("takes from remaining only", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(4))
		assert.Equal(t, int64(10), b.Received)
		assert.Equal(t, int64(6), b.Remaining)
		assert.Equal(t, BatchStatePartiallyAllocated, b.State())
		assert.True(t, b.IsConsumed())
	})

	t.Run("can empty the batch", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(10))
		assert.Equal(t, BatchStateFullyAllocated, b.State())
		assert.False(t, b.HasStock())
	})

	t.Run("fails with shortfall when qty exceeds remaining", func(t *testing.T) {
		b := createTestBatch(10)
		err := b.Decrement(12)

		var stockErr *InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, int64(12), stockErr.Requested)
		assert.Equal(t, int64(10), stockErr.Available)
		assert.Equal(t, int64(2), stockErr.Shortfall)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, int64(10), b.Remaining)
	})
}

func TestBatch_Restore(t *testing.T) {
	t.Run("restores within received", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(6))

		restored, err := b.Restore(6, false)
		require.NoError(t, err)
		assert.Equal(t, int64(6), restored)
		assert.Equal(t, int64(10), b.Remaining)
		assert.False(t, b.IsConsumed())
	})

	t.Run("rejects overshoot without opt-in", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(3))

		_, err := b.Restore(5, false)
		var restoreErr *RestoreExceedsReceivedError
		require.True(t, errors.As(err, &restoreErr))
		assert.Equal(t, b.ID, restoreErr.BatchID)
		assert.Equal(t, int64(5), restoreErr.Restore)
		assert.Equal(t, int64(7), b.Remaining)
	})

	t.Run("caps overshoot when allowed", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(3))

		restored, err := b.Restore(5, true)
		require.NoError(t, err)
		assert.Equal(t, int64(3), restored)
		assert.Equal(t, int64(10), b.Remaining)
	})

	t.Run("check does not mutate", func(t *testing.T) {
		b := createTestBatch(10)
		require.NoError(t, b.Decrement(3))

		restorable, err := b.CheckRestore(2, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), restorable)
		assert.Equal(t, int64(7), b.Remaining)
	})
}

func TestBatch_IsExpiredOn(t *testing.T) {
	b := createTestBatch(1)

	assert.False(t, b.IsExpiredOn(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, b.IsExpiredOn(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)), "expiring today is still usable")
	assert.True(t, b.IsExpiredOn(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	b.ExpiryDate = nil
	assert.False(t, b.IsExpiredOn(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBatch_Validate(t *testing.T) {
	b := createTestBatch(5)
	assert.NoError(t, b.Validate())

	b.Remaining = 6
	assert.Error(t, b.Validate())

	b.Remaining = -1
	assert.Error(t, b.Validate())
}

func TestBatch_Consumption(t *testing.T) {
	b := createTestBatch(10)
	require.NoError(t, b.Decrement(4))

	c := b.Consumption()
	assert.Equal(t, b.ID, c.BatchID)
	assert.Equal(t, "LOT-A", c.LotNumber)
	assert.Equal(t, int64(10), c.Received)
	assert.Equal(t, int64(6), c.Remaining)
}
