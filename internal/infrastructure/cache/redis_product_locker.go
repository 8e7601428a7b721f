package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"go.uber.org/zap"
)

// ErrLockNotObtained is returned when another holder kept the lock past the wait
var ErrLockNotObtained = errors.New("product lock not obtained")

// Product lock defaults
const (
	DefaultProductLockTTL  = 30 * time.Second
	DefaultProductLockWait = 2 * time.Second
)

// RedisProductLocker takes named Redis locks around sale allocation
type RedisProductLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisProductLocker creates a locker. Locks expire after ttl even if the
// holder dies; Lock waits up to wait for a busy lock.
func NewRedisProductLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisProductLocker {
	if ttl <= 0 {
		ttl = DefaultProductLockTTL
	}
	if wait < 0 {
		wait = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProductLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

// Lock obtains key, retrying every 50ms until the wait runs out
func (l *RedisProductLocker) Lock(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{}
	if l.wait > 0 {
		const step = 50 * time.Millisecond
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(step), int(l.wait/step))
	}

	lock, err := l.locker.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		// Release even if the request context is already done.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release product lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}, nil
}

// Ensure RedisProductLocker implements ProductLocker
var _ appinv.ProductLocker = (*RedisProductLocker)(nil)
