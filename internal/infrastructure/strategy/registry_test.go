package strategy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBatchStrategy struct {
	strategy.Descriptor
}

func newMockBatchStrategy(name string) *mockBatchStrategy {
	return &mockBatchStrategy{
		Descriptor: strategy.NewDescriptor(name, "Mock batch strategy"),
	}
}

func (s *mockBatchStrategy) SelectBatches(ctx context.Context, selCtx strategy.BatchSelectionContext, batches []strategy.Batch) (strategy.BatchSelectionResult, error) {
	return strategy.BatchSelectionResult{}, nil
}

func (s *mockBatchStrategy) ConsidersExpiry() bool {
	return false
}

func TestStrategyRegistry_RegisterAndGet(t *testing.T) {
	r := NewStrategyRegistry()

	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("first")))
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("second")))

	s, err := r.GetBatchStrategy("second")
	require.NoError(t, err)
	assert.Equal(t, "second", s.Name())
	assert.Equal(t, []string{"first", "second"}, r.ListBatchStrategies())

	t.Run("duplicate name", func(t *testing.T) {
		err := r.RegisterBatchStrategy(newMockBatchStrategy("first"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.GetBatchStrategy("missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name without default", func(t *testing.T) {
		_, err := r.GetBatchStrategy("")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestStrategyRegistry_Default(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("only")))

	assert.ErrorIs(t, r.SetDefaultBatch("missing"), shared.ErrNotFound)
	require.NoError(t, r.SetDefaultBatch("only"))
	assert.Equal(t, "only", r.DefaultBatch())

	s, err := r.GetBatchStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "only", s.Name())

	require.NoError(t, r.UnregisterBatchStrategy("only"))
	assert.Empty(t, r.DefaultBatch())
	assert.ErrorIs(t, r.UnregisterBatchStrategy("only"), shared.ErrNotFound)
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	assert.Equal(t, "fefo", r.DefaultBatch())
	s, err := r.GetBatchStrategy("")
	require.NoError(t, err)
	assert.True(t, s.ConsidersExpiry())
	assert.Equal(t, "fefo", s.Name())
}

func TestStrategyRegistry_ConcurrentAccess(t *testing.T) {
	r := NewStrategyRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.RegisterBatchStrategy(newMockBatchStrategy(fmt.Sprintf("s%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = r.ListBatchStrategies()
		}()
	}
	wg.Wait()

	assert.Len(t, r.ListBatchStrategies(), 20)
}
