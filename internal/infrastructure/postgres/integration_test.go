package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/jhoicas/farmacia-inventario/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-inventario/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Pruebas contra una base real. Se omiten si TEST_DATABASE_URL no está definida.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definida")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type pgEngine struct {
	tenant    string
	inventory *inventory.InventoryUseCase
	transfers *inventory.TransferUseCase
}

// newPgEngine usa un tenant nuevo por prueba para no depender del estado de la base.
func newPgEngine(t *testing.T, now time.Time) *pgEngine {
	pool := testPool(t)
	runner := postgres.NewTxRunner(pool)
	cfg := inventory.Config{OperationTimeout: 10 * time.Second}
	invUC := inventory.NewInventoryUseCase(runner, postgres.NewInventoryLineRepository(pool), postgres.NewStockLedgerRepository(pool), cfg, zerolog.Nop())
	trUC := inventory.NewTransferUseCase(runner, postgres.NewStockTransferRepository(pool), cfg, zerolog.Nop())
	invUC.SetClock(func() time.Time { return now })
	trUC.SetClock(func() time.Time { return now })
	return &pgEngine{tenant: "test-" + uuid.NewString(), inventory: invUC, transfers: trUC}
}

func TestPostgres_AdjustReserveTransfer(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)
	e := newPgEngine(t, now)
	ctx := context.Background()

	_, err := e.inventory.Adjust(ctx, inventory.AdjustInput{TenantID: e.tenant, BranchID: "a", ProductID: "p1", ActorID: "u", NewOnHand: 20})
	require.NoError(t, err)
	_, err = e.inventory.Reserve(ctx, inventory.ReservationInput{TenantID: e.tenant, BranchID: "a", ProductID: "p1", ActorID: "u", Quantity: 5})
	require.NoError(t, err)

	_, err = e.inventory.Reserve(ctx, inventory.ReservationInput{TenantID: e.tenant, BranchID: "a", ProductID: "p1", ActorID: "u", Quantity: 16})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	tr, err := e.transfers.Transfer(ctx, inventory.TransferInput{
		TenantID: e.tenant, SourceBranchID: "a", DestinationBranchID: "b", ProductID: "p1", Quantity: 10, ActorID: "u",
	})
	require.NoError(t, err)
	assert.Equal(t, "TRF202503140001", tr.TransferNumber)

	src, err := e.inventory.GetLine(ctx, e.tenant, "a", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), src.QuantityOnHand)
	assert.Equal(t, int64(5), src.QuantityReserved)
	assert.Equal(t, int64(5), src.QuantityAvailable)

	dst, err := e.inventory.GetLine(ctx, e.tenant, "b", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), dst.QuantityAvailable)

	got, err := e.transfers.GetTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(10), got.Items[0].QuantityTransferred)

	hist, err := e.inventory.History(ctx, e.tenant, "b", "p1", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, tr.ID, hist[0].TransferID)

	_, err = e.transfers.Transfer(ctx, inventory.TransferInput{
		TenantID: e.tenant, SourceBranchID: "a", DestinationBranchID: "c", ProductID: "p1", Quantity: 6, ActorID: "u",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = e.inventory.GetLine(ctx, e.tenant, "c", "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "la línea destino insertada se revierte")
}

func TestPostgres_ConcurrentTransfersNumbering(t *testing.T) {
	now := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	e := newPgEngine(t, now)
	ctx := context.Background()

	_, err := e.inventory.Adjust(ctx, inventory.AdjustInput{TenantID: e.tenant, BranchID: "a", ProductID: "p1", ActorID: "u", NewOnHand: 1000})
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		numbers []string
	)
	var g errgroup.Group
	g.SetLimit(20)
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			tr, err := e.transfers.Transfer(ctx, inventory.TransferInput{
				TenantID: e.tenant, SourceBranchID: "a", DestinationBranchID: "b", ProductID: "p1", Quantity: 1, ActorID: "u",
			})
			if err != nil {
				return err
			}
			mu.Lock()
			numbers = append(numbers, tr.TransferNumber)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(numbers)
	require.Len(t, numbers, 100)
	for i, n := range numbers {
		assert.Equal(t, fmt.Sprintf("TRF20250315%04d", i+1), n)
	}
	src, err := e.inventory.GetLine(ctx, e.tenant, "a", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), src.QuantityOnHand)

	list, err := e.transfers.ListTransfers(ctx, e.tenant, now)
	require.NoError(t, err)
	assert.Len(t, list, 100)
}
