package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// ProductLocker serializes sale allocation per product across processes.
// It only narrows the window for allocation conflicts; the row locks taken
// while applying a plan remain authoritative.
type ProductLocker interface {
	// Lock acquires the named lock and returns its release function
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NoopLocker never blocks
type NoopLocker struct{}

// Lock returns immediately
func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// ProductLockKey returns the lock name of a product within a scope
func ProductLockKey(scope shared.Scope, productID uuid.UUID) string {
	return fmt.Sprintf("ledger:lock:product:%s:%s:%s", scope.WorkspaceID, scope.WarehouseID, productID)
}

// productLockKeys returns the distinct lock names of products in a stable
// order so that two sales never wait on each other's locks in reverse.
func productLockKeys(scope shared.Scope, productIDs []uuid.UUID) []string {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, ProductLockKey(scope, id))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
