package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/infrastructure/redis"
	"github.com/jhoicas/farmacia-inventario/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*redis.StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewStatsCache(client, 30*time.Second), mr
}

func TestStatsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss cuando no hay entrada", func(t *testing.T) {
		cache, _ := newCache(t)
		got, version, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Zero(t, version)
	})

	t.Run("set y get conservan los valores", func(t *testing.T) {
		cache, mr := newCache(t)
		stats := &dto.BranchStatsDTO{
			TenantID:      "t1",
			BranchID:      "b1",
			TotalLines:    3,
			TotalValue:    decimal.RequireFromString("1250.50"),
			LowStockCount: 1,
		}
		require.NoError(t, cache.Set(ctx, "t1", "b1", 0, stats))
		assert.True(t, mr.Exists("farmacia:inventory:stats:t1:b1"))
		assert.Equal(t, 30*time.Second, mr.TTL("farmacia:inventory:stats:t1:b1"))

		got, _, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, got.TotalLines)
		assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("1250.5")))
	})

	t.Run("invalidate borra solo las sucursales indicadas", func(t *testing.T) {
		cache, _ := newCache(t)
		for _, b := range []string{"b1", "b2", "b3"} {
			require.NoError(t, cache.Set(ctx, "t1", b, 0, &dto.BranchStatsDTO{BranchID: b}))
		}
		require.NoError(t, cache.Invalidate(ctx, "t1", "b1", "b2"))

		_, v1, ok, _ := cache.Get(ctx, "t1", "b1")
		assert.False(t, ok)
		assert.Equal(t, int64(1), v1)
		_, _, ok, _ = cache.Get(ctx, "t1", "b2")
		assert.False(t, ok)
		_, v3, ok, _ := cache.Get(ctx, "t1", "b3")
		assert.True(t, ok)
		assert.Zero(t, v3)
	})

	t.Run("entrada expirada es miss", func(t *testing.T) {
		cache, mr := newCache(t)
		require.NoError(t, cache.Set(ctx, "t1", "b1", 0, &dto.BranchStatsDTO{}))
		mr.FastForward(time.Minute)
		_, _, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set con versión vieja no guarda tras una invalidación", func(t *testing.T) {
		cache, mr := newCache(t)
		_, version, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		require.False(t, ok)

		// una mutación confirma e invalida mientras se calculaban las estadísticas
		require.NoError(t, cache.Invalidate(ctx, "t1", "b1"))
		require.NoError(t, cache.Set(ctx, "t1", "b1", version, &dto.BranchStatsDTO{TotalLines: 1}))
		assert.False(t, mr.Exists("farmacia:inventory:stats:t1:b1"))

		_, current, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		require.False(t, ok)
		assert.Equal(t, version+1, current)

		require.NoError(t, cache.Set(ctx, "t1", "b1", current, &dto.BranchStatsDTO{TotalLines: 2}))
		got, _, ok, err := cache.Get(ctx, "t1", "b1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 2, got.TotalLines)
	})
}
