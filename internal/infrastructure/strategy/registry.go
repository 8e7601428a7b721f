package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/strategy"
)

// StrategyRegistry holds the batch selection strategies sales can allocate with
type StrategyRegistry struct {
	mu              sync.RWMutex
	batchStrategies map[string]strategy.BatchSelectionStrategy
	defaultBatch    string
}

// NewStrategyRegistry creates an empty strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		batchStrategies: make(map[string]strategy.BatchSelectionStrategy),
	}
}

// RegisterBatchStrategy registers a batch selection strategy
func (r *StrategyRegistry) RegisterBatchStrategy(s strategy.BatchSelectionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.batchStrategies[name]; exists {
		return fmt.Errorf("%w: batch strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.batchStrategies[name] = s
	return nil
}

// GetBatchStrategy returns a batch strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetBatchStrategy(name string) (strategy.BatchSelectionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultBatch
		if name == "" {
			return nil, fmt.Errorf("%w: no default batch strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.batchStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: batch strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListBatchStrategies returns all registered batch strategy names
func (r *StrategyRegistry) ListBatchStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.batchStrategies))
	for name := range r.batchStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterBatchStrategy removes a batch strategy, clearing the default if it was one
func (r *StrategyRegistry) UnregisterBatchStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batchStrategies[name]; !exists {
		return fmt.Errorf("%w: batch strategy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.batchStrategies, name)

	if r.defaultBatch == name {
		r.defaultBatch = ""
	}
	return nil
}

// SetDefaultBatch sets the strategy returned for an empty name
func (r *StrategyRegistry) SetDefaultBatch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batchStrategies[name]; !exists {
		return fmt.Errorf("%w: batch strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultBatch = name
	return nil
}

// DefaultBatch returns the default batch strategy name
func (r *StrategyRegistry) DefaultBatch() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultBatch
}
