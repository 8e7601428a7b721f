package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/strategy/batch"
	"github.com/stockledger/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// racingBatchRepo takes stock out from under the caller right after the
// first FindWithStock, as a concurrent sale would.
type racingBatchRepo struct {
	inventory.BatchRepository
	steal func(ctx context.Context, repo inventory.BatchRepository)
}

func (r *racingBatchRepo) FindWithStock(ctx context.Context, scope shared.Scope, productID uuid.UUID) ([]inventory.Batch, error) {
	batches, err := r.BatchRepository.FindWithStock(ctx, scope, productID)
	if err == nil && r.steal != nil {
		r.steal(ctx, r.BatchRepository)
		r.steal = nil
	}
	return batches, err
}

type racingRepos struct {
	appinv.TransactionalRepositories
	batches inventory.BatchRepository
}

func (r racingRepos) BatchRepo() inventory.BatchRepository { return r.batches }

// racingScope injects the race into the first transaction, or into every
// transaction when repeat is set.
type racingScope struct {
	appinv.TransactionScope
	steal  func(ctx context.Context, repo inventory.BatchRepository)
	repeat bool
	runs   int
}

func (s *racingScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.TransactionScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		s.runs++
		if s.steal == nil {
			return fn(repos)
		}
		steal := s.steal
		if !s.repeat {
			s.steal = nil
		}
		return fn(racingRepos{
			TransactionalRepositories: repos,
			batches:                   &racingBatchRepo{BatchRepository: repos.BatchRepo(), steal: steal},
		})
	})
}

func newRacingSaleService(f *ledgerFixture, retries int, stealFrom uuid.UUID) (*appinv.SaleService, *racingScope) {
	scope := &racingScope{
		TransactionScope: persistence.NewGormTransactionScope(f.db.DB),
		steal: func(ctx context.Context, repo inventory.BatchRepository) {
			ok, err := repo.CompareAndDecrement(ctx, stealFrom, 3)
			require.NoError(f.t, err)
			require.True(f.t, ok)
		},
	}
	settings := appinv.DefaultSettings()
	settings.AllocationRetries = retries
	clock := steppingClock(ledgerStart)
	svc := appinv.NewSaleService(
		scope,
		persistence.NewGormVariantReader(f.db.DB),
		appinv.NewFEFOAllocator(batch.NewFEFOBatchStrategy(), clock, zap.NewNop()),
		nil,
		nil,
		settings,
		clock,
		zap.NewNop(),
	)
	return svc, scope
}

func TestCreateSale_ReplansAfterAllocationConflict(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(10, testutil.DatePtr(2026, 6, 1)).Batches[0].ID
	svc, scope := newRacingSaleService(f, 1, batchID)

	sale, err := svc.CreateSale(f.ctx, f.saleRequest(9))
	require.NoError(t, err)
	assert.Equal(t, 2, scope.runs, "first attempt conflicts, second succeeds")
	assert.Equal(t, []appinv.AllocationResponse{{BatchID: batchID, Quantity: 9}}, sale.Lines[0].Allocations)
	assert.Equal(t, int64(1), f.batchRemaining(batchID))
}

func TestCreateSale_ConflictWithoutRetries(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(10, testutil.DatePtr(2026, 6, 1)).Batches[0].ID
	svc, scope := newRacingSaleService(f, 0, batchID)

	_, err := svc.CreateSale(f.ctx, f.saleRequest(9))
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrConcurrentAllocationConflict)
	var conflict *inventory.AllocationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, batchID, conflict.BatchID)
	assert.Equal(t, 1, scope.runs)
	assert.Equal(t, int64(10), f.batchRemaining(batchID), "the failed attempt is rolled back")
}

func TestCreateSale_RetriesAtMostOnce(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(10, testutil.DatePtr(2026, 6, 1)).Batches[0].ID
	svc, scope := newRacingSaleService(f, 5, batchID)
	scope.repeat = true

	_, err := svc.CreateSale(f.ctx, f.saleRequest(9))
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrConcurrentAllocationConflict)
	assert.Equal(t, 1+appinv.MaxAllocationRetries, scope.runs, "retries are capped")
	assert.Equal(t, int64(10), f.batchRemaining(batchID))
}

func TestFEFOAllocator_PlanDoesNotWrite(t *testing.T) {
	f := newLedgerFixture(t)
	b1 := f.receive(4, testutil.DatePtr(2026, 2, 1)).Batches[0].ID
	b2 := f.receive(4, testutil.DatePtr(2026, 3, 1)).Batches[0].ID
	allocator := appinv.NewFEFOAllocator(batch.NewFEFOBatchStrategy(), testutil.FixedClock(ledgerStart), zap.NewNop())
	repo := persistence.NewGormBatchRepository(f.db.DB)

	plan, err := allocator.Plan(f.ctx, repo, f.scope, ledgerStart, []appinv.LineRequirement{
		{LineIndex: 0, ProductID: f.productID, Units: 3},
		{LineIndex: 1, ProductID: f.productID, Units: 3},
	})
	require.NoError(t, err)
	require.Len(t, plan.Lines, 2)
	require.Len(t, plan.Lines[0].Cuts, 1)
	assert.Equal(t, b1, plan.Lines[0].Cuts[0].BatchID)
	require.Len(t, plan.Lines[1].Cuts, 2)
	assert.Equal(t, b1, plan.Lines[1].Cuts[0].BatchID)
	assert.Equal(t, int64(1), plan.Lines[1].Cuts[0].Quantity)
	assert.Equal(t, b2, plan.Lines[1].Cuts[1].BatchID)
	assert.Equal(t, int64(2), plan.Lines[1].Cuts[1].Quantity)
	assert.Equal(t, map[uuid.UUID]int64{b1: 4, b2: 2}, plan.BatchTotals())

	assert.Equal(t, int64(4), f.batchRemaining(b1))
	assert.Equal(t, int64(4), f.batchRemaining(b2))

	_, err = allocator.Plan(f.ctx, repo, f.scope, ledgerStart, []appinv.LineRequirement{
		{LineIndex: 0, ProductID: f.productID, Units: 0},
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestFEFOAllocator_ApplyRejectsExpiredBatch(t *testing.T) {
	f := newLedgerFixture(t)
	batchID := f.receive(5, testutil.DatePtr(2026, 1, 5)).Batches[0].ID
	allocator := appinv.NewFEFOAllocator(batch.NewFEFOBatchStrategy(), testutil.FixedClock(ledgerStart), zap.NewNop())

	err := persistence.NewGormTransactionScope(f.db.DB).Execute(f.ctx, func(repos appinv.TransactionalRepositories) error {
		plan, err := allocator.Plan(f.ctx, repos.BatchRepo(), f.scope, ledgerStart, []appinv.LineRequirement{
			{LineIndex: 0, ProductID: f.productID, Units: 2},
		})
		require.NoError(t, err)

		// Applied a day late, the planned batch is no longer usable.
		plan.Day = testutil.Date(2026, 1, 6)
		sale, err := inventory.NewSale(f.scope, ledgerStart, inventory.ChannelSnapshot{}, ledgerStart)
		require.NoError(t, err)
		_, err = sale.AddLine(f.productID, f.unit.ID, "unit", 1, 2, decimal.Zero)
		require.NoError(t, err)

		_, err = allocator.ApplyPlan(f.ctx, repos, sale, plan)
		return err
	})
	assert.ErrorIs(t, err, inventory.ErrConcurrentAllocationConflict)
	assert.Equal(t, int64(5), f.batchRemaining(batchID))
}
