package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BatchStore is the only writer of batch quantities. It is bound to the
// repository of one transaction; build a new one per unit of work.
type BatchStore struct {
	repo  inventory.BatchRepository
	clock shared.Clock
}

// NewBatchStore creates a BatchStore over repo
func NewBatchStore(repo inventory.BatchRepository, clock shared.Clock) *BatchStore {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &BatchStore{repo: repo, clock: clock}
}

// RestoreResult is the outcome of a restore on one batch
type RestoreResult struct {
	Batch     *inventory.Batch
	Requested int64
	Restored  int64
}

// Dropped is the part of the request that did not fit under received
func (r RestoreResult) Dropped() int64 {
	return r.Requested - r.Restored
}

// FindOrCreate returns the batch for key, creating an empty one if none
// exists. A concurrent insert of the same key is resolved by re-reading;
// if the key is still contested after one retry, ErrDuplicateBatchKey is returned.
func (s *BatchStore) FindOrCreate(ctx context.Context, scope shared.Scope, key inventory.BatchKey) (*inventory.Batch, error) {
	key = key.Normalize()
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.repo.FindByKey(ctx, key)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		candidate := inventory.NewBatch(scope, key, s.clock())
		created, err := s.repo.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if created {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", inventory.ErrDuplicateBatchKey, key)
}

// Increment adds qty to received and remaining of batch and updates it in place
func (s *BatchStore) Increment(ctx context.Context, batch *inventory.Batch, qty int64) error {
	if qty <= 0 {
		return &inventory.InvalidQuantityError{Field: "increment quantity", Value: qty}
	}
	if err := s.repo.Increment(ctx, batch.ID, qty); err != nil {
		return err
	}
	return batch.Increment(qty)
}

// Decrement takes qty out of a batch. It fails with InsufficientStockError
// when qty exceeds the remaining quantity and returns the updated batch otherwise.
func (s *BatchStore) Decrement(ctx context.Context, batchID uuid.UUID, qty int64) (*inventory.Batch, error) {
	if qty <= 0 {
		return nil, &inventory.InvalidQuantityError{Field: "decrement quantity", Value: qty}
	}
	ok, err := s.repo.CompareAndDecrement(ctx, batchID, qty)
	if err != nil {
		return nil, err
	}

	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The batch row is current now; replay the decrement to build the error.
		if err := batch.Decrement(qty); err != nil {
			return nil, err
		}
		return nil, &inventory.AllocationConflictError{BatchID: batchID, Reason: "remaining changed during decrement"}
	}
	return batch, nil
}

// CheckRestore validates a restore against the locked batch row without
// writing. The batch stays locked until the transaction ends.
func (s *BatchStore) CheckRestore(ctx context.Context, batchID uuid.UUID, qty int64, allowPartial bool) (RestoreResult, error) {
	batch, err := s.repo.FindByIDForUpdate(ctx, batchID)
	if err != nil {
		return RestoreResult{}, err
	}
	restorable, err := batch.CheckRestore(qty, allowPartial)
	if err != nil {
		return RestoreResult{}, err
	}
	return RestoreResult{Batch: batch, Requested: qty, Restored: restorable}, nil
}

// Restore adds qty back to a batch, capped at received. Capping only happens
// when allowPartial is set; otherwise RestoreExceedsReceivedError is returned.
func (s *BatchStore) Restore(ctx context.Context, batchID uuid.UUID, qty int64, allowPartial bool) (RestoreResult, error) {
	result, err := s.CheckRestore(ctx, batchID, qty, allowPartial)
	if err != nil {
		return RestoreResult{}, err
	}
	if result.Restored == 0 {
		return result, nil
	}

	ok, err := s.repo.CompareAndRestore(ctx, batchID, result.Restored)
	if err != nil {
		return RestoreResult{}, err
	}
	if !ok {
		return RestoreResult{}, fmt.Errorf("%w: batch %s changed during restore", shared.ErrConcurrencyConflict, batchID)
	}
	result.Batch.Remaining += result.Restored
	return result, nil
}

// IsConsumed reports whether any quantity has left the batch
func (s *BatchStore) IsConsumed(ctx context.Context, batchID uuid.UUID) (bool, error) {
	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		return false, err
	}
	return batch.IsConsumed(), nil
}

// AvailableForProduct summarizes the stock of a product as of day
func (s *BatchStore) AvailableForProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, day time.Time) (inventory.StockSummary, error) {
	batches, err := s.repo.FindWithStock(ctx, scope, productID)
	if err != nil {
		return inventory.StockSummary{}, err
	}
	return inventory.SummarizeStock(productID, batches, day), nil
}
