package config_test

import (
	"testing"
	"time"

	"github.com/jhoicas/farmacia-inventario/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"INVENTORY_STORE", "INVENTORY_OPERATION_TIMEOUT", "INVENTORY_EXPIRY_WINDOW_DAYS", "REDIS_ADDR", "REDIS_STATS_TTL"} {
		t.Setenv(k, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.StorePostgres, cfg.Inventory.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.Inventory.OperationTimeout)
	assert.Equal(t, 30, cfg.Inventory.ExpiryWindowDays)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Minute, cfg.Redis.StatsTTL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("INVENTORY_STORE", "MEMORY")
	t.Setenv("INVENTORY_OPERATION_TIMEOUT", "2s")
	t.Setenv("INVENTORY_EXPIRY_WINDOW_DAYS", "45")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_STATS_TTL", "90")
	t.Setenv("DB_MAX_CONNS", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, config.StoreMemory, cfg.Inventory.StoreDriver)
	assert.Equal(t, 2*time.Second, cfg.Inventory.OperationTimeout)
	assert.Equal(t, 45, cfg.Inventory.ExpiryWindowDays)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 90*time.Second, cfg.Redis.StatsTTL)
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
}

func TestLoad_InvalidStore(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "memory")
	t.Setenv("INVENTORY_OPERATION_TIMEOUT", "pronto")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "farma", Password: "p@ss:word", DBName: "farmacia", SSLMode: "disable"}
	assert.Equal(t, "postgres://farma:p%40ss%3Aword@db:5432/farmacia?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
