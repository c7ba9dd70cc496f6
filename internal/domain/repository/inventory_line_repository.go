package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
)

// InventoryLineRepository define el puerto para leer y persistir líneas de inventario por
// (tenant, sucursal, producto). Los métodos *ForUpdate solo tienen sentido dentro de TxRunner.Run:
// bloquean la línea hasta el commit o rollback.
type InventoryLineRepository interface {
	// Get devuelve la línea o nil si no existe.
	Get(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error)
	// GetForUpdate bloquea la línea (SELECT FOR UPDATE). nil si no existe.
	GetForUpdate(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error)
	// GetOrInitForUpdate bloquea la línea; si no existe la crea en cero dentro de la transacción
	// con CreatedAt = now. created indica si la línea es nueva.
	GetOrInitForUpdate(ctx context.Context, key entity.LineKey, now time.Time) (line *entity.InventoryLine, created bool, err error)
	Upsert(ctx context.Context, line *entity.InventoryLine) error

	ListByBranch(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error)
	// ListLowStock: líneas activas con reorder_level > 0 y existencia <= reorder_level, existencia ascendente.
	ListLowStock(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error)
	// ListExpiring: líneas activas con existencia que vencen en o antes de until, vencimiento ascendente.
	ListExpiring(ctx context.Context, tenantID, branchID string, until time.Time) ([]*entity.InventoryLine, error)
}
