package postgres

import (
	"context"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

var _ repository.StockLedgerRepository = (*StockLedgerRepo)(nil)

// StockLedgerRepo kardex sobre PostgreSQL. Solo INSERT y SELECT.
type StockLedgerRepo struct {
	q Querier
}

// NewStockLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLedgerRepository(q Querier) *StockLedgerRepo {
	return &StockLedgerRepo{q: q}
}

// Append inserta el movimiento.
func (r *StockLedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO stock_ledger (
			id, line_id, tenant_id, branch_id, product_id, kind, quantity_delta,
			on_hand_before, on_hand_after, reserved_after, actor_id, reason, transfer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.LineID, e.TenantID, e.BranchID, e.ProductID, e.Kind, e.QuantityDelta,
		e.OnHandBefore, e.OnHandAfter, e.ReservedAfter, e.ActorID, e.Reason, e.TransferID, e.CreatedAt,
	)
	if err != nil {
		return mapError("append stock ledger", err)
	}
	return nil
}

// ListByLine movimientos de la línea, más recientes primero.
func (r *StockLedgerRepo) ListByLine(ctx context.Context, key entity.LineKey, limit int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, line_id, tenant_id, branch_id, product_id, kind, quantity_delta,
		       on_hand_before, on_hand_after, reserved_after, actor_id,
		       COALESCE(reason, ''), COALESCE(transfer_id, ''), created_at
		FROM stock_ledger
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3
		ORDER BY created_at DESC, seq DESC
		LIMIT $4`
	rows, err := r.q.Query(ctx, query, key.TenantID, key.BranchID, key.ProductID, limit)
	if err != nil {
		return nil, mapError("list stock ledger", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.LineID, &e.TenantID, &e.BranchID, &e.ProductID, &e.Kind, &e.QuantityDelta,
			&e.OnHandBefore, &e.OnHandAfter, &e.ReservedAfter, &e.ActorID,
			&e.Reason, &e.TransferID, &e.CreatedAt,
		); err != nil {
			return nil, mapError("scan stock ledger", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list stock ledger", err)
	}
	return list, nil
}
