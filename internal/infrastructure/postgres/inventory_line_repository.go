package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

var _ repository.InventoryLineRepository = (*InventoryLineRepo)(nil)

// InventoryLineRepo implementación de InventoryLineRepository sobre PostgreSQL (usable con pool o tx).
type InventoryLineRepo struct {
	q Querier
}

// NewInventoryLineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryLineRepository(q Querier) *InventoryLineRepo {
	return &InventoryLineRepo{q: q}
}

const lineColumns = `
	id, tenant_id, branch_id, product_id, quantity_on_hand, quantity_reserved, quantity_available,
	reorder_level, expiry_date, COALESCE(batch_number, ''), cost_price, status, created_at, updated_at`

func scanLine(row pgx.Row) (*entity.InventoryLine, error) {
	var l entity.InventoryLine
	err := row.Scan(
		&l.ID, &l.TenantID, &l.BranchID, &l.ProductID, &l.QuantityOnHand, &l.QuantityReserved, &l.QuantityAvailable,
		&l.ReorderLevel, &l.ExpiryDate, &l.BatchNumber, &l.CostPrice, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *InventoryLineRepo) getOne(ctx context.Context, query string, key entity.LineKey, op string) (*entity.InventoryLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, query, key.TenantID, key.BranchID, key.ProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return l, nil
}

// Get obtiene la línea o nil si no existe.
func (r *InventoryLineRepo) Get(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM inventory_lines WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3`
	return r.getOne(ctx, query, key, "get inventory line")
}

// GetForUpdate obtiene la línea y bloquea la fila (SELECT FOR UPDATE).
func (r *InventoryLineRepo) GetForUpdate(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM inventory_lines WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3
		FOR UPDATE`
	return r.getOne(ctx, query, key, "get inventory line for update")
}

// GetOrInitForUpdate inserta la línea en cero si no existe (ON CONFLICT DO NOTHING) y luego la bloquea.
// Dos transacciones que crean la misma línea a la vez terminan serializadas sobre la misma fila.
func (r *InventoryLineRepo) GetOrInitForUpdate(ctx context.Context, key entity.LineKey, now time.Time) (*entity.InventoryLine, bool, error) {
	insert := `
		INSERT INTO inventory_lines (id, tenant_id, branch_id, product_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (tenant_id, branch_id, product_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, insert, uuid.New().String(), key.TenantID, key.BranchID, key.ProductID, entity.LineStatusActive, now.UTC())
	if err != nil {
		return nil, false, mapError("init inventory line", err)
	}
	l, err := r.GetForUpdate(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if l == nil {
		return nil, false, mapError("init inventory line", pgx.ErrNoRows)
	}
	return l, tag.RowsAffected() == 1, nil
}

// Upsert inserta o actualiza la línea por (tenant, sucursal, producto).
// quantity_available es columna generada; los CHECK de la tabla rechazan cantidades inválidas.
func (r *InventoryLineRepo) Upsert(ctx context.Context, l *entity.InventoryLine) error {
	query := `
		INSERT INTO inventory_lines (
			id, tenant_id, branch_id, product_id, quantity_on_hand, quantity_reserved,
			reorder_level, expiry_date, batch_number, cost_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
		ON CONFLICT (tenant_id, branch_id, product_id) DO UPDATE SET
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			quantity_reserved = EXCLUDED.quantity_reserved,
			reorder_level = EXCLUDED.reorder_level,
			expiry_date = EXCLUDED.expiry_date,
			batch_number = EXCLUDED.batch_number,
			cost_price = EXCLUDED.cost_price,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.TenantID, l.BranchID, l.ProductID, l.QuantityOnHand, l.QuantityReserved,
		l.ReorderLevel, l.ExpiryDate, l.BatchNumber, l.CostPrice, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return mapError("upsert inventory line", err)
	}
	return nil
}

func (r *InventoryLineRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryLine, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.InventoryLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

// ListByBranch lista las líneas de la sucursal por producto.
func (r *InventoryLineRepo) ListByBranch(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM inventory_lines WHERE tenant_id = $1 AND branch_id = $2
		ORDER BY product_id`
	return r.list(ctx, "list inventory lines", query, tenantID, branchID)
}

// ListLowStock líneas activas con punto de reorden y existencia <= reorden, existencia ascendente.
func (r *InventoryLineRepo) ListLowStock(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM inventory_lines
		WHERE tenant_id = $1 AND branch_id = $2 AND status = 'active'
		  AND reorder_level > 0 AND quantity_on_hand <= reorder_level
		ORDER BY quantity_on_hand ASC, product_id ASC`
	return r.list(ctx, "list low stock", query, tenantID, branchID)
}

// ListExpiring líneas activas con existencia que vencen en o antes de until, vencimiento ascendente.
func (r *InventoryLineRepo) ListExpiring(ctx context.Context, tenantID, branchID string, until time.Time) ([]*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + `
		FROM inventory_lines
		WHERE tenant_id = $1 AND branch_id = $2 AND status = 'active'
		  AND quantity_on_hand > 0 AND expiry_date IS NOT NULL AND expiry_date <= $3
		ORDER BY expiry_date ASC, product_id ASC`
	return r.list(ctx, "list expiring", query, tenantID, branchID, until)
}
