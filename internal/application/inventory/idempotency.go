package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// idempotencyGuard rejects a repeated request key within the TTL
type idempotencyGuard struct {
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

// claim marks key as processed. The returned release function forgets the
// key again and must be called when the guarded operation fails.
func (g idempotencyGuard) claim(ctx context.Context, operation string, workspaceID uuid.UUID, key string) (func(), error) {
	if g.store == nil || key == "" {
		return func() {}, nil
	}

	fullKey := fmt.Sprintf("ledger:idem:%s:%s:%s", operation, workspaceID, key)
	fresh, err := g.store.MarkProcessed(ctx, fullKey, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		return nil, shared.ErrDuplicateRequest
	}

	return func() {
		// The request context may already be cancelled when the operation failed.
		if err := g.store.Release(context.WithoutCancel(ctx), fullKey); err != nil {
			g.logger.Warn("Failed to release idempotency key",
				zap.String("key", fullKey),
				zap.Error(err),
			)
		}
	}, nil
}
