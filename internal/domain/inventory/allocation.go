package inventory

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/strategy"
)

// Cut is one planned take from a batch
type Cut struct {
	BatchID    uuid.UUID
	LotNumber  string
	ExpiryDate *time.Time
	Quantity   int64
}

// LinePlan is the ordered list of cuts that covers one sale line
type LinePlan struct {
	LineIndex int
	ProductID uuid.UUID
	Required  int64
	Cuts      []Cut
}

// Planned sums the cut quantities
func (p LinePlan) Planned() int64 {
	var total int64
	for _, c := range p.Cuts {
		total += c.Quantity
	}
	return total
}

// AllocationPlan is a read-only proposal produced by planning. Nothing is
// reserved until the plan is applied.
type AllocationPlan struct {
	Day   time.Time
	Lines []LinePlan
}

// BatchTotals returns the total planned quantity per batch across all lines
func (p *AllocationPlan) BatchTotals() map[uuid.UUID]int64 {
	totals := make(map[uuid.UUID]int64)
	for _, l := range p.Lines {
		for _, c := range l.Cuts {
			totals[c.BatchID] += c.Quantity
		}
	}
	return totals
}

// BatchIDs returns the distinct batches of the plan in a stable order, used
// as the row lock acquisition order.
func (p *AllocationPlan) BatchIDs() []uuid.UUID {
	totals := p.BatchTotals()
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// SortIDs orders ids bytewise
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

// Candidates converts batches into selection candidates
func Candidates(batches []Batch) []strategy.Batch {
	out := make([]strategy.Batch, 0, len(batches))
	for i := range batches {
		b := &batches[i]
		out = append(out, strategy.Batch{
			ID:         b.ID,
			ProductID:  b.ProductID,
			LotNumber:  b.LotNumber,
			Remaining:  b.Remaining,
			ExpiryDate: b.ExpiryDate,
			CreatedAt:  b.CreatedAt,
		})
	}
	return out
}

// SumByBatch totals allocation quantities per batch
func SumByBatch(records []AllocationRecord) map[uuid.UUID]int64 {
	totals := make(map[uuid.UUID]int64)
	for _, r := range records {
		totals[r.BatchID] += r.Quantity
	}
	return totals
}

// StockSummary is the stock on hand of a product on a given day
type StockSummary struct {
	ProductID  uuid.UUID
	Day        time.Time
	Available  int64
	Expired    int64
	BatchCount int
	NextExpiry *time.Time
}

// SummarizeStock splits the remaining stock of batches into allocatable and
// expired quantities as of day. Batches without stock are ignored.
func SummarizeStock(productID uuid.UUID, batches []Batch, day time.Time) StockSummary {
	summary := StockSummary{ProductID: productID, Day: shared.DateOf(day)}
	for i := range batches {
		b := &batches[i]
		if b.ProductID != productID || !b.HasStock() {
			continue
		}
		if b.IsExpiredOn(day) {
			summary.Expired += b.Remaining
			continue
		}
		summary.Available += b.Remaining
		summary.BatchCount++
		if b.ExpiryDate != nil && (summary.NextExpiry == nil || b.ExpiryDate.Before(*summary.NextExpiry)) {
			summary.NextExpiry = b.ExpiryDate
		}
	}
	return summary
}
