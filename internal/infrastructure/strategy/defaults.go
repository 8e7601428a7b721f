package strategy

import (
	"github.com/stockledger/backend/internal/infrastructure/strategy/batch"
)

// NewRegistryWithDefaults creates a registry with FEFO registered as the
// default batch strategy.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	fefo := batch.NewFEFOBatchStrategy()
	if err := r.RegisterBatchStrategy(fefo); err != nil {
		return nil, err
	}
	if err := r.SetDefaultBatch(fefo.Name()); err != nil {
		return nil, err
	}
	return r, nil
}
