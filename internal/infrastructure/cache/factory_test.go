package cache

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func atoiPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("uses memory when redis is disabled", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false})

		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("uses redis when reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: atoiPort(t, mr.Port())}

		store, err := NewIdempotencyStoreFactory(cfg).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("reuses a provided client", func(t *testing.T) {
		_, client := newMiniredisClient(t)
		f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: true}, WithRedisClient(client))

		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		rs, ok := store.(*RedisIdempotencyStore)
		require.True(t, ok)
		assert.Same(t, client, rs.client)
	})

	t.Run("falls back to memory when redis is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: atoiPort(t, mr.Port())}
		mr.Close()

		core, logs := observer.New(zap.WarnLevel)
		store, err := NewIdempotencyStoreFactory(cfg, WithLogger(zap.New(core))).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, logs.FilterMessage("Redis unavailable, falling back to in-memory idempotency store").Len())
	})

	t.Run("fails without fallback", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: atoiPort(t, mr.Port())}
		mr.Close()

		_, err := NewIdempotencyStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore(ctx)
		assert.ErrorContains(t, err, "redis required for idempotency but unavailable")
	})
}
