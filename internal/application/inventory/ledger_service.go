package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// MovementLedger answers read queries over movements and stock on hand
type MovementLedger struct {
	txScope  TransactionScope
	settings Settings
	clock    shared.Clock
}

// NewMovementLedger creates a MovementLedger
func NewMovementLedger(txScope TransactionScope, settings Settings, clock shared.Clock) *MovementLedger {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &MovementLedger{txScope: txScope, settings: settings.withDefaults(), clock: clock}
}

// ListByBatch lists the movements of a batch oldest first
func (l *MovementLedger) ListByBatch(ctx context.Context, workspaceID, batchID uuid.UUID) ([]MovementResponse, error) {
	var out []MovementResponse
	err := l.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.WorkspaceID != workspaceID {
			return fmt.Errorf("%w: %w", inventory.ErrBatchNotFound, shared.ErrNotFound)
		}
		ms, err := repos.MovementRepo().FindByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		out = ToMovementResponses(ms)
		return nil
	})
	return out, err
}

// ListByReceipt lists the IN movements written by a receipt
func (l *MovementLedger) ListByReceipt(ctx context.Context, workspaceID, receiptID uuid.UUID) ([]MovementResponse, error) {
	var out []MovementResponse
	err := l.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := findReceipt(ctx, repos.ReceiptRepo(), workspaceID, receiptID); err != nil {
			return err
		}
		ms, err := repos.MovementRepo().FindByReceipt(ctx, receiptID)
		if err != nil {
			return err
		}
		out = ToMovementResponses(ms)
		return nil
	})
	return out, err
}

// ListBySale lists the OUT movements written by a sale
func (l *MovementLedger) ListBySale(ctx context.Context, workspaceID, saleID uuid.UUID) ([]MovementResponse, error) {
	var out []MovementResponse
	err := l.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := findSale(ctx, repos.SaleRepo(), workspaceID, saleID); err != nil {
			return err
		}
		ms, err := repos.MovementRepo().FindBySale(ctx, saleID)
		if err != nil {
			return err
		}
		out = ToMovementResponses(ms)
		return nil
	})
	return out, err
}

// AvailableForProduct summarizes the non-expired stock of a product today
func (l *MovementLedger) AvailableForProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID) (*StockSummaryResponse, error) {
	var resp StockSummaryResponse
	err := l.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		summary, err := NewBatchStore(repos.BatchRepo(), l.clock).
			AvailableForProduct(ctx, scope, productID, l.settings.today(l.clock))
		if err != nil {
			return err
		}
		resp = ToStockSummaryResponse(summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
