package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
)

// StockTransferRepository define el puerto de persistencia de traslados (encabezado + ítems).
type StockTransferRepository interface {
	// Create guarda encabezado e ítems.
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	// GetByID devuelve el traslado con sus ítems, o nil si no existe.
	GetByID(ctx context.Context, tenantID, id string) (*entity.StockTransfer, error)
	// ListByDate lista los traslados del día UTC indicado, por número ascendente.
	ListByDate(ctx context.Context, tenantID string, day time.Time) ([]*entity.StockTransfer, error)
	// CountOnDate cuenta los traslados registrados en el día UTC indicado.
	CountOnDate(ctx context.Context, tenantID string, day time.Time) (int, error)
	// NextSequence reserva el siguiente consecutivo del día dentro de la transacción en curso.
	// Debe ser seguro ante concurrencia; el consecutivo se libera si la transacción hace rollback.
	NextSequence(ctx context.Context, tenantID string, day time.Time) (int, error)
}
