package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/strategy"
	ledgerlog "github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LineRequirement is the base-unit demand of one sale line
type LineRequirement struct {
	LineIndex int
	ProductID uuid.UUID
	Units     int64
}

// FEFOAllocator plans allocations with a batch selection strategy and
// applies them under row locks.
type FEFOAllocator struct {
	selector strategy.BatchSelectionStrategy
	clock    shared.Clock
	logger   *zap.Logger
}

// NewFEFOAllocator creates a FEFOAllocator
func NewFEFOAllocator(selector strategy.BatchSelectionStrategy, clock shared.Clock, logger *zap.Logger) *FEFOAllocator {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FEFOAllocator{selector: selector, clock: clock, logger: logger}
}

// PlanProduct proposes the cuts covering units of one product on day
func (a *FEFOAllocator) PlanProduct(ctx context.Context, batches inventory.BatchRepository, scope shared.Scope, productID uuid.UUID, units int64, day time.Time) ([]inventory.Cut, error) {
	plan, err := a.Plan(ctx, batches, scope, day, []LineRequirement{{ProductID: productID, Units: units}})
	if err != nil {
		return nil, err
	}
	return plan.Lines[0].Cuts, nil
}

// Plan proposes cuts for every requirement in order. Lines of the same
// product draw down a shared view of the batches, so a later line never
// plans units an earlier line already took. Planning reads only; it fails
// with InsufficientStockError when a line cannot be covered.
func (a *FEFOAllocator) Plan(ctx context.Context, batches inventory.BatchRepository, scope shared.Scope, day time.Time, reqs []LineRequirement) (*inventory.AllocationPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "plan",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, scope.WorkspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, len(reqs)),
	)
	defer span.End()

	plan := &inventory.AllocationPlan{Day: shared.DateOf(day), Lines: make([]inventory.LinePlan, 0, len(reqs))}
	candidates := make(map[uuid.UUID][]strategy.Batch)

	for _, req := range reqs {
		if req.Units <= 0 {
			err := &inventory.InvalidQuantityError{Field: fmt.Sprintf("line %d units", req.LineIndex+1), Value: req.Units}
			telemetry.RecordError(span, err)
			return nil, err
		}

		pool, ok := candidates[req.ProductID]
		if !ok {
			found, err := batches.FindWithStock(ctx, scope, req.ProductID)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, fmt.Errorf("failed to load batches: %w", err)
			}
			pool = inventory.Candidates(found)
			candidates[req.ProductID] = pool
		}

		result, err := a.selector.SelectBatches(ctx, strategy.BatchSelectionContext{
			ProductID: req.ProductID,
			Quantity:  req.Units,
			Date:      plan.Day,
		}, pool)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if !result.IsSatisfied() {
			err := &inventory.InsufficientStockError{
				ProductID: req.ProductID,
				Requested: req.Units,
				Available: result.TotalQty,
				Shortfall: result.ShortfallQty,
			}
			telemetry.RecordError(span, err)
			return nil, err
		}

		line := inventory.LinePlan{LineIndex: req.LineIndex, ProductID: req.ProductID, Required: req.Units}
		taken := make(map[uuid.UUID]int64, len(result.Selections))
		for _, sel := range result.Selections {
			line.Cuts = append(line.Cuts, inventory.Cut{
				BatchID:    sel.BatchID,
				LotNumber:  sel.LotNumber,
				ExpiryDate: sel.ExpiryDate,
				Quantity:   sel.Quantity,
			})
			taken[sel.BatchID] += sel.Quantity
		}
		for i := range pool {
			pool[i].Remaining -= taken[pool[i].ID]
		}
		plan.Lines = append(plan.Lines, line)
	}

	telemetry.SetOK(span)
	return plan, nil
}

// ApplyPlan reserves a plan for sale inside the caller's transaction. Every
// batch of the plan is locked in a fixed order and re-checked; a batch that
// vanished, expired, or no longer holds the planned quantity fails the whole
// apply with AllocationConflictError. On success the sale lines carry their
// allocation records and one OUT movement per distinct batch is returned,
// holding the remaining quantity after the decrement.
func (a *FEFOAllocator) ApplyPlan(ctx context.Context, repos TransactionalRepositories, sale *inventory.Sale, plan *inventory.AllocationPlan) ([]*inventory.Movement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "apply",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, sale.ID),
	)
	defer span.End()

	store := NewBatchStore(repos.BatchRepo(), a.clock)
	totals := plan.BatchTotals()
	order := plan.BatchIDs()
	after := make(map[uuid.UUID]*inventory.Batch, len(order))

	for _, batchID := range order {
		batch, err := a.revalidate(ctx, repos.BatchRepo(), batchID, totals[batchID], plan.Day)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		updated, err := store.Decrement(ctx, batch.ID, totals[batchID])
		if err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				err = &inventory.AllocationConflictError{BatchID: batchID, Reason: err.Error()}
			}
			telemetry.RecordError(span, err)
			return nil, err
		}
		after[batchID] = updated
	}

	now := a.clock()
	for _, lp := range plan.Lines {
		if lp.LineIndex < 0 || lp.LineIndex >= len(sale.Lines) {
			return nil, fmt.Errorf("plan line %d has no matching sale line", lp.LineIndex)
		}
		line := &sale.Lines[lp.LineIndex]
		for _, cut := range lp.Cuts {
			if _, err := line.Allocate(cut.BatchID, cut.Quantity, now); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
		}
	}
	if err := sale.CheckFullyAllocated(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	movements := make([]*inventory.Movement, 0, len(order))
	for _, batchID := range order {
		m, err := inventory.NewOutMovement(after[batchID], sale.ID, totals[batchID], "sale allocation", now)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		movements = append(movements, m)
	}

	telemetry.SetAttributes(span, "batch_count", len(order))
	telemetry.SetOK(span)
	return movements, nil
}

// revalidate locks a planned batch and checks it can still cover qty on day
func (a *FEFOAllocator) revalidate(ctx context.Context, repo inventory.BatchRepository, batchID uuid.UUID, qty int64, day time.Time) (*inventory.Batch, error) {
	batch, err := repo.FindByIDForUpdate(ctx, batchID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &inventory.AllocationConflictError{BatchID: batchID, Reason: "batch no longer exists"}
		}
		return nil, err
	}
	if batch.IsExpiredOn(day) {
		return nil, &inventory.AllocationConflictError{BatchID: batchID, Reason: "batch expired"}
	}
	if batch.Remaining < qty {
		a.logger.Warn("Allocation re-check failed",
			ledgerlog.Batch(batchID),
			zap.Int64("remaining", batch.Remaining),
			zap.Int64("planned", qty),
		)
		return nil, &inventory.AllocationConflictError{
			BatchID: batchID,
			Reason:  fmt.Sprintf("remaining %d below planned %d", batch.Remaining, qty),
		}
	}
	return batch, nil
}
