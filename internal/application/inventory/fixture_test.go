package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/cache"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/strategy/batch"
	"github.com/stockledger/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ledgerStart is the instant every fixture clock starts from
var ledgerStart = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// steppingClock returns a clock that moves one second forward on every read,
// so rows written in sequence keep their order by created_at.
func steppingClock(start time.Time) shared.Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type ledgerFixture struct {
	t           *testing.T
	ctx         context.Context
	db          *persistence.Database
	scope       shared.Scope
	productID   uuid.UUID
	unit        catalog.Variant
	box         catalog.Variant
	receipts    *appinv.ReceiptService
	sales       *appinv.SaleService
	reversals   *appinv.ReversalGuard
	adjustments *appinv.AdjustmentService
	ledger      *appinv.MovementLedger
}

// newLedgerFixture wires the services over a fresh sqlite database with one
// product carrying a unit variant and a box of 6.
func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	clock := steppingClock(ledgerStart)
	logger := zap.NewNop()
	settings := appinv.DefaultSettings()

	idem := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = idem.Close() })

	txScope := persistence.NewGormTransactionScope(db.DB)
	variants := persistence.NewGormVariantReader(db.DB)
	allocator := appinv.NewFEFOAllocator(batch.NewFEFOBatchStrategy(), clock, logger)

	f := &ledgerFixture{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		scope:       testutil.NewScope(),
		productID:   uuid.New(),
		receipts:    appinv.NewReceiptService(txScope, variants, idem, settings, clock, logger),
		sales:       appinv.NewSaleService(txScope, variants, allocator, nil, idem, settings, clock, logger),
		reversals:   appinv.NewReversalGuard(txScope, clock, logger),
		adjustments: appinv.NewAdjustmentService(txScope, clock, logger),
		ledger:      appinv.NewMovementLedger(txScope, settings, clock),
	}
	f.unit = testutil.SeedVariant(t, db.DB, testutil.VariantFixture{
		WorkspaceID: f.scope.WorkspaceID,
		ProductID:   f.productID,
	})
	f.box = testutil.SeedVariant(t, db.DB, testutil.VariantFixture{
		WorkspaceID: f.scope.WorkspaceID,
		ProductID:   f.productID,
		SaleMode:    "box",
		PackSize:    6,
	})
	return f
}

// receive records a single-line receipt of qty units expiring on expiry
func (f *ledgerFixture) receive(qty int64, expiry *time.Time) *appinv.ReceiptResponse {
	f.t.Helper()
	resp, err := f.receipts.CreateReceipt(f.ctx, appinv.CreateReceiptRequest{
		WorkspaceID: f.scope.WorkspaceID,
		WarehouseID: f.scope.WarehouseID,
		ProductID:   f.productID,
		ExpiryDate:  expiry,
		Lines:       []appinv.ReceiptLineRequest{{VariantID: &f.unit.ID, Quantity: qty}},
	})
	require.NoError(f.t, err)
	require.Len(f.t, resp.Batches, 1)
	return resp
}

// saleRequest builds a sale of units of the unit variant
func (f *ledgerFixture) saleRequest(units int64) appinv.CreateSaleRequest {
	return appinv.CreateSaleRequest{
		WorkspaceID: f.scope.WorkspaceID,
		WarehouseID: f.scope.WarehouseID,
		Lines: []appinv.SaleLineRequest{{
			ProductID:    f.productID,
			VariantID:    f.unit.ID,
			QuantityPack: units,
			UnitPrice:    decimal.NewFromInt(10),
		}},
	}
}

// sell records a sale of units and fails the test on error
func (f *ledgerFixture) sell(units int64) *appinv.SaleResponse {
	f.t.Helper()
	resp, err := f.sales.CreateSale(f.ctx, f.saleRequest(units))
	require.NoError(f.t, err)
	return resp
}

// available returns the allocatable stock of the fixture product
func (f *ledgerFixture) available() *appinv.StockSummaryResponse {
	f.t.Helper()
	summary, err := f.ledger.AvailableForProduct(f.ctx, f.scope, f.productID)
	require.NoError(f.t, err)
	return summary
}

// batchRemaining reads the current remaining quantity of a batch
func (f *ledgerFixture) batchRemaining(batchID uuid.UUID) int64 {
	f.t.Helper()
	b, err := persistence.NewGormBatchRepository(f.db.DB).FindByID(f.ctx, batchID)
	require.NoError(f.t, err)
	return b.Remaining
}

// movementSum adds up the signed quantities of a batch's movements
func (f *ledgerFixture) movementSum(batchID uuid.UUID) int64 {
	f.t.Helper()
	ms, err := f.ledger.ListByBatch(f.ctx, f.scope.WorkspaceID, batchID)
	require.NoError(f.t, err)
	var sum int64
	for _, m := range ms {
		sum += m.Quantity
	}
	return sum
}
