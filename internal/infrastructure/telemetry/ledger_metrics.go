package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome values for the allocation duration histogram
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeShort    = "insufficient_stock"
	OutcomeError    = "error"
)

// LedgerMetrics counts ledger operations. All methods are safe on a nil
// receiver so services can run without metrics.
type LedgerMetrics struct {
	receiptsCreated     *Counter
	unitsReceived       *Counter
	salesCreated        *Counter
	unitsAllocated      *Counter
	allocationConflicts *Counter
	allocationRetries   *Counter
	salesVoided         *Counter
	receiptsDeleted     *Counter
	deletionsBlocked    *Counter
	cappedRestores      *Counter
	unitsAdjusted       *Counter
	allocationDuration  *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	lm := &LedgerMetrics{}
	counters := []struct {
		dst         **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.receiptsCreated, "ledger_receipts_created_total", "Receipts committed", "{receipts}"},
		{&lm.unitsReceived, "ledger_units_received_total", "Base units received into batches", "{units}"},
		{&lm.salesCreated, "ledger_sales_created_total", "Sales committed", "{sales}"},
		{&lm.unitsAllocated, "ledger_units_allocated_total", "Base units allocated out of batches", "{units}"},
		{&lm.allocationConflicts, "ledger_allocation_conflicts_total", "Apply-time re-validations that failed", "{conflicts}"},
		{&lm.allocationRetries, "ledger_allocation_retries_total", "Sales retried after a conflict", "{retries}"},
		{&lm.salesVoided, "ledger_sales_voided_total", "Sales voided", "{sales}"},
		{&lm.receiptsDeleted, "ledger_receipts_deleted_total", "Receipts deleted", "{receipts}"},
		{&lm.deletionsBlocked, "ledger_deletions_blocked_total", "Receipt deletions refused because a batch was consumed", "{receipts}"},
		{&lm.cappedRestores, "ledger_capped_restores_total", "Restores capped at the received quantity", "{restores}"},
		{&lm.unitsAdjusted, "ledger_adjustments_total", "Manual batch adjustments", "{adjustments}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	h, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger_sale_allocation_duration_seconds",
		Description: "Time spent planning and applying the allocation of a sale",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	lm.allocationDuration = h

	return lm, nil
}

func scopeAttrs(workspaceID, warehouseID uuid.UUID) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrWorkspaceID.String(workspaceID.String()),
		AttrWarehouseID.String(warehouseID.String()),
	}
}

// RecordReceiptCreated counts a committed receipt and its base units
func (m *LedgerMetrics) RecordReceiptCreated(ctx context.Context, workspaceID, warehouseID uuid.UUID, units int64) {
	if m == nil {
		return
	}
	attrs := scopeAttrs(workspaceID, warehouseID)
	m.receiptsCreated.Inc(ctx, attrs...)
	m.unitsReceived.Add(ctx, units, attrs...)
}

// RecordSaleCreated counts a committed sale and its allocated base units
func (m *LedgerMetrics) RecordSaleCreated(ctx context.Context, workspaceID, warehouseID uuid.UUID, units int64) {
	if m == nil {
		return
	}
	attrs := scopeAttrs(workspaceID, warehouseID)
	m.salesCreated.Inc(ctx, attrs...)
	m.unitsAllocated.Add(ctx, units, attrs...)
}

// RecordAllocationConflict counts a failed apply-time re-validation
func (m *LedgerMetrics) RecordAllocationConflict(ctx context.Context, workspaceID, warehouseID uuid.UUID) {
	if m == nil {
		return
	}
	m.allocationConflicts.Inc(ctx, scopeAttrs(workspaceID, warehouseID)...)
}

// RecordAllocationRetry counts a sale retried after a conflict
func (m *LedgerMetrics) RecordAllocationRetry(ctx context.Context, workspaceID, warehouseID uuid.UUID) {
	if m == nil {
		return
	}
	m.allocationRetries.Inc(ctx, scopeAttrs(workspaceID, warehouseID)...)
}

// RecordAllocationDuration records how long a sale's plan and apply took
func (m *LedgerMetrics) RecordAllocationDuration(ctx context.Context, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.allocationDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordSaleVoided counts a voided sale and the restores that were capped
func (m *LedgerMetrics) RecordSaleVoided(ctx context.Context, workspaceID, warehouseID uuid.UUID, capped int) {
	if m == nil {
		return
	}
	attrs := scopeAttrs(workspaceID, warehouseID)
	m.salesVoided.Inc(ctx, attrs...)
	if capped > 0 {
		m.cappedRestores.Add(ctx, int64(capped), attrs...)
	}
}

// RecordReceiptDeleted counts a deleted receipt
func (m *LedgerMetrics) RecordReceiptDeleted(ctx context.Context, workspaceID, warehouseID uuid.UUID) {
	if m == nil {
		return
	}
	m.receiptsDeleted.Inc(ctx, scopeAttrs(workspaceID, warehouseID)...)
}

// RecordDeletionBlocked counts a receipt deletion refused by the guard
func (m *LedgerMetrics) RecordDeletionBlocked(ctx context.Context, workspaceID, warehouseID uuid.UUID) {
	if m == nil {
		return
	}
	m.deletionsBlocked.Inc(ctx, scopeAttrs(workspaceID, warehouseID)...)
}

// RecordAdjustment counts a manual adjustment
func (m *LedgerMetrics) RecordAdjustment(ctx context.Context, workspaceID, warehouseID uuid.UUID, kind string) {
	if m == nil {
		return
	}
	attrs := append(scopeAttrs(workspaceID, warehouseID), AttrKind.String(kind))
	m.unitsAdjusted.Inc(ctx, attrs...)
}
