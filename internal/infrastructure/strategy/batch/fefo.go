package batch

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/strategy"
)

// FEFOBatchStrategy implements First Expired First Out batch selection.
// Batches are ordered by expiry date with undated stock last, ties broken by
// creation time and then by the time-ordered batch ID (oldest lot first).
// Batches that expired before the selection date are skipped.
type FEFOBatchStrategy struct {
	strategy.Descriptor
}

// NewFEFOBatchStrategy creates a new FEFO batch strategy
func NewFEFOBatchStrategy() *FEFOBatchStrategy {
	return &FEFOBatchStrategy{
		Descriptor: strategy.NewDescriptor(
			"fefo",
			"First Expired First Out - selects batches by expiry date (earliest expiry first, undated last)",
		),
	}
}

// SelectBatches selects batches in FEFO order by expiry date
func (s *FEFOBatchStrategy) SelectBatches(
	ctx context.Context,
	selCtx strategy.BatchSelectionContext,
	batches []strategy.Batch,
) (strategy.BatchSelectionResult, error) {
	if selCtx.Quantity <= 0 {
		return strategy.BatchSelectionResult{}, fmt.Errorf("fefo: quantity must be positive, got %d", selCtx.Quantity)
	}

	filtered := filterAvailableBatches(batches, selCtx.ProductID)
	filtered = filterNonExpiredBatches(filtered, selCtx.Date)
	SortFEFO(filtered)

	return selectFromBatches(filtered, selCtx.Quantity), nil
}

// ConsidersExpiry returns true as FEFO considers expiry dates
func (s *FEFOBatchStrategy) ConsidersExpiry() bool {
	return true
}

// SortFEFO orders batches in place: earliest expiry first, undated last,
// then oldest creation first.
func SortFEFO(batches []strategy.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		iExpiry := batches[i].ExpiryDate
		jExpiry := batches[j].ExpiryDate

		switch {
		case iExpiry == nil && jExpiry == nil:
			return olderLot(batches[i], batches[j])
		case iExpiry == nil:
			return false
		case jExpiry == nil:
			return true
		}

		ie, je := shared.DateOf(*iExpiry), shared.DateOf(*jExpiry)
		if ie.Equal(je) {
			return olderLot(batches[i], batches[j])
		}
		return ie.Before(je)
	})
}

// olderLot orders by creation time, then by ID. Batch IDs are UUIDv7, so
// byte order follows creation order when timestamps are equal.
func olderLot(a, b strategy.Batch) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// IsExpiredOn reports whether a batch expiring on expiry is expired on day.
// A batch expiring today is still usable.
func IsExpiredOn(expiry *time.Time, day time.Time) bool {
	if expiry == nil {
		return false
	}
	return shared.DateOf(*expiry).Before(shared.DateOf(day))
}

func filterAvailableBatches(batches []strategy.Batch, productID uuid.UUID) []strategy.Batch {
	filtered := make([]strategy.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Remaining <= 0 {
			continue
		}
		if productID != uuid.Nil && b.ProductID != productID {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

// filterNonExpiredBatches filters out batches that expired before currentDate
func filterNonExpiredBatches(batches []strategy.Batch, currentDate time.Time) []strategy.Batch {
	if currentDate.IsZero() {
		currentDate = time.Now()
	}

	filtered := make([]strategy.Batch, 0, len(batches))
	for _, b := range batches {
		if !IsExpiredOn(b.ExpiryDate, currentDate) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

// selectFromBatches greedily takes min(remaining, stillNeeded) from each batch in order
func selectFromBatches(batches []strategy.Batch, quantity int64) strategy.BatchSelectionResult {
	remainingQty := quantity
	selections := make([]strategy.BatchSelection, 0)
	var totalQty int64

	for _, b := range batches {
		if remainingQty <= 0 {
			break
		}

		selectedQty := min(remainingQty, b.Remaining)
		selections = append(selections, strategy.BatchSelection{
			BatchID:    b.ID,
			LotNumber:  b.LotNumber,
			Quantity:   selectedQty,
			ExpiryDate: b.ExpiryDate,
		})

		remainingQty -= selectedQty
		totalQty += selectedQty
	}

	return strategy.BatchSelectionResult{
		Selections:   selections,
		TotalQty:     totalQty,
		ShortfallQty: remainingQty,
	}
}

var _ strategy.BatchSelectionStrategy = (*FEFOBatchStrategy)(nil)
