package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	ledgerlog "github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Adjustment kinds reported on the adjustments counter
const (
	adjustmentIncrease = "increase"
	adjustmentDecrease = "decrease"
)

// AdjustmentService applies manual corrections to a batch
type AdjustmentService struct {
	txScope TransactionScope
	clock   shared.Clock
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewAdjustmentService creates an AdjustmentService
func NewAdjustmentService(txScope TransactionScope, clock shared.Clock, logger *zap.Logger) *AdjustmentService {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{txScope: txScope, clock: clock, logger: logger}
}

// SetMetrics sets the ledger metrics collector
func (s *AdjustmentService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// AdjustBatch moves a batch's remaining quantity by delta and records an
// ADJUST movement. A negative delta fails with InsufficientStockError when
// the batch does not hold enough; a positive delta may not lift remaining
// above received.
func (s *AdjustmentService) AdjustBatch(ctx context.Context, req AdjustBatchRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "adjustment", "adjust_batch",
		telemetry.WithAttribute(telemetry.SpanAttrWorkspaceID, req.WorkspaceID),
		telemetry.WithAttribute(telemetry.SpanAttrBatchID, req.BatchID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Delta),
	)
	defer span.End()

	if err := validateRequest(&req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Delta == 0 {
		err := &inventory.InvalidQuantityError{Field: "adjustment delta", Value: req.Delta}
		telemetry.RecordError(span, err)
		return nil, err
	}

	var resp AdjustmentResponse
	var scope shared.Scope
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if batch.WorkspaceID != req.WorkspaceID {
			return fmt.Errorf("%w: %w", inventory.ErrBatchNotFound, shared.ErrNotFound)
		}
		scope = shared.Scope{WorkspaceID: batch.WorkspaceID, WarehouseID: batch.WarehouseID}

		store := NewBatchStore(repos.BatchRepo(), s.clock)
		if req.Delta < 0 {
			batch, err = store.Decrement(ctx, batch.ID, -req.Delta)
			if err != nil {
				return err
			}
		} else {
			result, err := store.Restore(ctx, batch.ID, req.Delta, false)
			if err != nil {
				return err
			}
			batch = result.Batch
		}

		m, err := inventory.NewAdjustMovement(batch, req.Delta, strings.TrimSpace(req.Note), s.clock())
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Append(ctx, m); err != nil {
			return fmt.Errorf("failed to append movement: %w", err)
		}
		resp = AdjustmentResponse{Batch: ToBatchResponse(batch), Movement: ToMovementResponse(m)}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	kind := adjustmentIncrease
	if req.Delta < 0 {
		kind = adjustmentDecrease
	}
	s.metrics.RecordAdjustment(ctx, scope.WorkspaceID, scope.WarehouseID, kind)
	s.logger.Info("Batch adjusted",
		ledgerlog.Batch(req.BatchID),
		zap.Int64("delta", req.Delta),
		zap.Int64("remaining", resp.Batch.Remaining),
	)
	telemetry.SetOK(span)
	return &resp, nil
}
