package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	ledgerlog "github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReversalGuard deletes receipts and voids sales without breaking the
// batch invariants. A receipt can only go while none of its stock has left;
// a sale gives its allocations back before it is removed.
type ReversalGuard struct {
	txScope TransactionScope
	clock   shared.Clock
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewReversalGuard creates a ReversalGuard
func NewReversalGuard(txScope TransactionScope, clock shared.Clock, logger *zap.Logger) *ReversalGuard {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReversalGuard{txScope: txScope, clock: clock, logger: logger}
}

// SetMetrics sets the ledger metrics collector
func (g *ReversalGuard) SetMetrics(m *telemetry.LedgerMetrics) {
	g.metrics = m
}

// CanDeleteReceipt reports whether every batch of the receipt is untouched
func (g *ReversalGuard) CanDeleteReceipt(ctx context.Context, workspaceID, receiptID uuid.UUID) (*DeletionCheckResponse, error) {
	var resp DeletionCheckResponse
	err := g.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := findReceipt(ctx, repos.ReceiptRepo(), workspaceID, receiptID)
		if err != nil {
			return err
		}
		batches, err := repos.BatchRepo().FindByReceipt(ctx, receipt.ID)
		if err != nil {
			return err
		}
		consumed := consumedBatches(batches)
		resp = DeletionCheckResponse{
			ReceiptID:       receipt.ID,
			Deletable:       len(consumed) == 0,
			ConsumedBatches: toConsumedBatchResponses(consumed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteReceipt removes a receipt with its batches and movements. It fails
// with BatchConsumedError listing the blocking batches when any stock of the
// receipt has been allocated.
func (g *ReversalGuard) DeleteReceipt(ctx context.Context, workspaceID, receiptID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "reversal", "delete_receipt",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, workspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrReceiptID, receiptID),
	)
	defer span.End()

	var scope shared.Scope
	err := g.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := findReceipt(ctx, repos.ReceiptRepo(), workspaceID, receiptID)
		if err != nil {
			return err
		}
		scope = receipt.Scope()

		batches, err := repos.BatchRepo().FindByReceipt(ctx, receipt.ID)
		if err != nil {
			return err
		}
		// Lock the batches so no sale can take from them while they are removed.
		batchIDs := make([]uuid.UUID, len(batches))
		for i := range batches {
			batchIDs[i] = batches[i].ID
		}
		inventory.SortIDs(batchIDs)
		locked := make([]inventory.Batch, 0, len(batchIDs))
		for _, id := range batchIDs {
			b, err := repos.BatchRepo().FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked = append(locked, *b)
		}

		if consumed := consumedBatches(locked); len(consumed) > 0 {
			g.metrics.RecordDeletionBlocked(ctx, scope.WorkspaceID, scope.WarehouseID)
			g.logger.Warn("Receipt deletion blocked by consumed batches",
				ledgerlog.UUID(ledgerlog.FieldReceiptID, receipt.ID),
				zap.Int("consumed_batches", len(consumed)),
			)
			return &inventory.BatchConsumedError{ReceiptID: receipt.ID, Batches: consumed}
		}

		if err := repos.MovementRepo().DeleteByReceipt(ctx, receipt.ID, batchIDs); err != nil {
			return fmt.Errorf("failed to delete movements: %w", err)
		}
		if err := repos.ReceiptRepo().DeleteLines(ctx, receipt.ID); err != nil {
			return fmt.Errorf("failed to delete receipt lines: %w", err)
		}
		if err := repos.BatchRepo().DeleteByReceipt(ctx, receipt.ID); err != nil {
			return fmt.Errorf("failed to delete batches: %w", err)
		}
		if err := repos.ReceiptRepo().Delete(ctx, receipt.ID); err != nil {
			return fmt.Errorf("failed to delete receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	g.metrics.RecordReceiptDeleted(ctx, scope.WorkspaceID, scope.WarehouseID)
	g.logger.Info("Receipt deleted", ledgerlog.UUID(ledgerlog.FieldReceiptID, receiptID))
	telemetry.SetOK(span)
	return nil
}

// VoidSale gives every allocation of a sale back to its batch and deletes
// the sale. All restores are checked before any batch changes, so a restore
// that would exceed received aborts the void with RestoreExceedsReceivedError
// unless AllowCappedRestore is set. Capped quantity is written off with a
// VOID movement.
func (g *ReversalGuard) VoidSale(ctx context.Context, req VoidSaleRequest) (*RestorationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reversal", "void_sale",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, req.WorkspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, req.SaleID),
	)
	defer span.End()

	if err := validateRequest(&req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &RestorationReport{SaleID: req.SaleID}
	var scope shared.Scope
	capped := 0
	err := g.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := findSale(ctx, repos.SaleRepo(), req.WorkspaceID, req.SaleID)
		if err != nil {
			return err
		}
		scope = sale.Scope()

		totals := inventory.SumByBatch(sale.Allocations())
		batchIDs := make([]uuid.UUID, 0, len(totals))
		for id := range totals {
			batchIDs = append(batchIDs, id)
		}
		inventory.SortIDs(batchIDs)

		store := NewBatchStore(repos.BatchRepo(), g.clock)
		for _, id := range batchIDs {
			if _, err := store.CheckRestore(ctx, id, totals[id], req.AllowCappedRestore); err != nil {
				return err
			}
		}

		now := g.clock()
		var voids []*inventory.Movement
		for _, id := range batchIDs {
			result, err := store.Restore(ctx, id, totals[id], req.AllowCappedRestore)
			if err != nil {
				return err
			}
			report.Batches = append(report.Batches, BatchRestoration{
				BatchID:        id,
				Requested:      result.Requested,
				Restored:       result.Restored,
				Dropped:        result.Dropped(),
				RemainingAfter: result.Batch.Remaining,
			})
			if result.Dropped() == 0 {
				continue
			}
			capped++
			g.logger.Warn("Capped restore on sale void",
				ledgerlog.Sale(sale.ID),
				ledgerlog.Batch(id),
				zap.Int64("requested", result.Requested),
				zap.Int64("restored", result.Restored),
			)
			m, err := inventory.NewVoidMovement(result.Batch, result.Dropped(),
				fmt.Sprintf("void of sale %s: %d units not restored", sale.ID, result.Dropped()), now)
			if err != nil {
				return err
			}
			voids = append(voids, m)
		}

		if err := repos.MovementRepo().DeleteOutBySale(ctx, sale.ID); err != nil {
			return fmt.Errorf("failed to delete sale movements: %w", err)
		}
		if len(voids) > 0 {
			if err := repos.MovementRepo().Append(ctx, voids...); err != nil {
				return fmt.Errorf("failed to append void movements: %w", err)
			}
		}
		if err := repos.SaleRepo().Delete(ctx, sale.ID); err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report.Capped = capped > 0
	g.metrics.RecordSaleVoided(ctx, scope.WorkspaceID, scope.WarehouseID, capped)
	g.logger.Info("Sale voided",
		ledgerlog.Sale(req.SaleID),
		zap.Int("batches", len(report.Batches)),
		zap.Bool("capped", report.Capped),
	)
	telemetry.SetOK(span)
	return report, nil
}

func consumedBatches(batches []inventory.Batch) []inventory.ConsumedBatch {
	var consumed []inventory.ConsumedBatch
	for i := range batches {
		if batches[i].IsConsumed() {
			consumed = append(consumed, batches[i].Consumption())
		}
	}
	return consumed
}
