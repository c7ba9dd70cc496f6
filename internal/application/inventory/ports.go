package inventory

import (
	"context"

	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del almacén, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el contexto vence) se hace rollback; nada de lo escrito queda persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lineRepo repository.InventoryLineRepository,
		ledgerRepo repository.StockLedgerRepository,
		transferRepo repository.StockTransferRepository,
	) error) error
}

// StatsCache caché de lectura (read-through) para las estadísticas por sucursal.
// Es opcional: los casos de uso funcionan igual sin él.
//
// Cada sucursal lleva una versión que Invalidate incrementa. Get devuelve la versión vigente y
// Set solo guarda si sigue siendo la misma, así un cálculo que se cruzó con una mutación no
// queda en caché.
type StatsCache interface {
	Get(ctx context.Context, tenantID, branchID string) (stats *dto.BranchStatsDTO, version int64, ok bool, err error)
	Set(ctx context.Context, tenantID, branchID string, version int64, stats *dto.BranchStatsDTO) error
	Invalidate(ctx context.Context, tenantID string, branchIDs ...string) error
}
