package repository

import (
	"context"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
)

// StockLedgerRepository puerto del kardex: solo inserción y consulta, nunca actualización.
type StockLedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// ListByLine devuelve los movimientos de la línea, más recientes primero.
	ListByLine(ctx context.Context, key entity.LineKey, limit int) ([]*entity.LedgerEntry, error)
}
