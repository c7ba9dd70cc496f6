package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	invdomain "github.com/jhoicas/farmacia-inventario/internal/domain/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*StockTransferRepo)(nil)

// StockTransferRepo traslados (encabezado + ítems) sobre PostgreSQL.
type StockTransferRepo struct {
	q Querier
}

// NewStockTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransferRepository(q Querier) *StockTransferRepo {
	return &StockTransferRepo{q: q}
}

// Create inserta encabezado e ítems. Debe correr dentro de la transacción del traslado.
func (r *StockTransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	header := `
		INSERT INTO stock_transfers (
			id, tenant_id, transfer_number, transfer_date, source_branch_id, destination_branch_id,
			status, requested_by, approved_by, notes, transferred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)`
	_, err := r.q.Exec(ctx, header,
		t.ID, t.TenantID, t.TransferNumber, invdomain.TransferDay(t.TransferredAt), t.SourceBranchID, t.DestinationBranchID,
		t.Status, t.RequestedBy, t.ApprovedBy, t.Notes, t.TransferredAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapError("insert stock transfer", err)
	}

	item := `
		INSERT INTO stock_transfer_items (
			id, transfer_id, position, product_id, source_line_id, destination_line_id,
			quantity_requested, quantity_approved, quantity_transferred, batch_number, expiry_date, cost_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)`
	for _, it := range t.Items {
		_, err := r.q.Exec(ctx, item,
			it.ID, t.ID, it.Position, it.ProductID, it.SourceLineID, it.DestinationLineID,
			it.QuantityRequested, it.QuantityApproved, it.QuantityTransferred, it.BatchNumber, it.ExpiryDate, it.CostPrice,
		)
		if err != nil {
			return mapError("insert stock transfer item", err)
		}
	}
	return nil
}

const transferColumns = `
	id, tenant_id, transfer_number, source_branch_id, destination_branch_id, status,
	requested_by, approved_by, COALESCE(notes, ''), transferred_at, created_at, updated_at`

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	err := row.Scan(
		&t.ID, &t.TenantID, &t.TransferNumber, &t.SourceBranchID, &t.DestinationBranchID, &t.Status,
		&t.RequestedBy, &t.ApprovedBy, &t.Notes, &t.TransferredAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *StockTransferRepo) loadItems(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		SELECT id, transfer_id, position, product_id, source_line_id, destination_line_id,
		       quantity_requested, quantity_approved, quantity_transferred,
		       COALESCE(batch_number, ''), expiry_date, cost_price
		FROM stock_transfer_items WHERE transfer_id = $1
		ORDER BY position`
	rows, err := r.q.Query(ctx, query, t.ID)
	if err != nil {
		return mapError("list stock transfer items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.StockTransferItem
		if err := rows.Scan(
			&it.ID, &it.TransferID, &it.Position, &it.ProductID, &it.SourceLineID, &it.DestinationLineID,
			&it.QuantityRequested, &it.QuantityApproved, &it.QuantityTransferred,
			&it.BatchNumber, &it.ExpiryDate, &it.CostPrice,
		); err != nil {
			return mapError("scan stock transfer item", err)
		}
		t.Items = append(t.Items, it)
	}
	return rows.Err()
}

// GetByID devuelve el traslado con sus ítems, o nil si no existe.
func (r *StockTransferRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE tenant_id = $1 AND id = $2`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get stock transfer", err)
	}
	if err := r.loadItems(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListByDate traslados del día UTC, por número ascendente.
func (r *StockTransferRepo) ListByDate(ctx context.Context, tenantID string, day time.Time) ([]*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM stock_transfers WHERE tenant_id = $1 AND transfer_date = $2
		ORDER BY transfer_number`
	rows, err := r.q.Query(ctx, query, tenantID, invdomain.TransferDay(day))
	if err != nil {
		return nil, mapError("list stock transfers", err)
	}
	var list []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, mapError("scan stock transfer", err)
		}
		list = append(list, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("list stock transfers", err)
	}
	// Los ítems se cargan después de cerrar rows: la conexión no admite dos consultas abiertas.
	for _, t := range list {
		if err := r.loadItems(ctx, t); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// CountOnDate cantidad de traslados del día UTC.
func (r *StockTransferRepo) CountOnDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM stock_transfers WHERE tenant_id = $1 AND transfer_date = $2`,
		tenantID, invdomain.TransferDay(day),
	).Scan(&n)
	if err != nil {
		return 0, mapError("count stock transfers", err)
	}
	return n, nil
}

// NextSequence incrementa el contador del día con un upsert. La fila del contador queda bloqueada
// hasta el commit, así los traslados concurrentes del mismo día reciben números consecutivos;
// si la transacción hace rollback el número vuelve a estar libre.
func (r *StockTransferRepo) NextSequence(ctx context.Context, tenantID string, day time.Time) (int, error) {
	query := `
		INSERT INTO stock_transfer_sequences (tenant_id, seq_date, last_value)
		VALUES ($1, $2, (SELECT count(*) FROM stock_transfers WHERE tenant_id = $1 AND transfer_date = $2) + 1)
		ON CONFLICT (tenant_id, seq_date)
		DO UPDATE SET last_value = stock_transfer_sequences.last_value + 1
		RETURNING last_value`
	var seq int
	if err := r.q.QueryRow(ctx, query, tenantID, invdomain.TransferDay(day)).Scan(&seq); err != nil {
		return 0, mapError("next transfer sequence", err)
	}
	return seq, nil
}
