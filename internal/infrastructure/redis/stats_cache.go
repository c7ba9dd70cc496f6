// Package redis caché de estadísticas por sucursal sobre Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/pkg/config"
	goredis "github.com/redis/go-redis/v9"
)

var _ inventory.StatsCache = (*StatsCache)(nil)

// DefaultStatsTTL vida de una entrada si no se configura REDIS_STATS_TTL.
const DefaultStatsTTL = time.Minute

const (
	keyPrefix     = "farmacia:inventory:stats:"
	versionPrefix = "farmacia:inventory:stats-version:"
)

// setIfVersion guarda KEYS[1] solo si la versión KEYS[2] sigue siendo ARGV[1].
var setIfVersion = goredis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// NewClient conecta con Redis y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// StatsCache guarda BranchStatsDTO como JSON bajo farmacia:inventory:stats:<tenant>:<sucursal>,
// con un contador de versión por sucursal en farmacia:inventory:stats-version:<tenant>:<sucursal>.
type StatsCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewStatsCache construye la caché; ttl <= 0 usa DefaultStatsTTL.
func NewStatsCache(client *goredis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(tenantID, branchID string) string {
	return keyPrefix + tenantID + ":" + branchID
}

func versionKey(tenantID, branchID string) string {
	return versionPrefix + tenantID + ":" + branchID
}

func parseVersion(v any) (int64, error) {
	raw, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stats cache version %q: %w", raw, err)
	}
	return n, nil
}

// Get devuelve las estadísticas en caché y la versión vigente de la sucursal; ok=false si no hay entrada.
func (c *StatsCache) Get(ctx context.Context, tenantID, branchID string) (*dto.BranchStatsDTO, int64, bool, error) {
	vals, err := c.client.MGet(ctx, statsKey(tenantID, branchID), versionKey(tenantID, branchID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("get stats cache: %w", err)
	}
	version, err := parseVersion(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false, nil
	}
	var stats dto.BranchStatsDTO
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, 0, false, fmt.Errorf("decode stats cache: %w", err)
	}
	return &stats, version, true, nil
}

// Set guarda las estadísticas con el TTL configurado si la versión no cambió desde Get.
func (c *StatsCache) Set(ctx context.Context, tenantID, branchID string, version int64, stats *dto.BranchStatsDTO) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats cache: %w", err)
	}
	keys := []string{statsKey(tenantID, branchID), versionKey(tenantID, branchID)}
	err = setIfVersion.Run(ctx, c.client, keys, strconv.FormatInt(version, 10), data, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("set stats cache: %w", err)
	}
	return nil
}

// Invalidate borra las entradas de las sucursales indicadas e incrementa su versión.
func (c *StatsCache) Invalidate(ctx context.Context, tenantID string, branchIDs ...string) error {
	if len(branchIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, b := range branchIDs {
			pipe.Incr(ctx, versionKey(tenantID, b))
			pipe.Del(ctx, statsKey(tenantID, b))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate stats cache: %w", err)
	}
	return nil
}
