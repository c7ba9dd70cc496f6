package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	invdomain "github.com/jhoicas/farmacia-inventario/internal/domain/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

var (
	_ repository.InventoryLineRepository = (*LineRepo)(nil)
	_ repository.StockLedgerRepository   = (*LedgerRepo)(nil)
	_ repository.StockTransferRepository = (*TransferRepo)(nil)
)

// LineRepo implementación en memoria de InventoryLineRepository. Con tx nil opera sobre lo confirmado.
type LineRepo struct {
	s  *Store
	tx *tx
}

func (r *LineRepo) read(key entity.LineKey) *entity.InventoryLine {
	if r.tx != nil {
		if l, ok := r.tx.lines[key]; ok {
			return l.Clone()
		}
	}
	return r.s.committedLine(key)
}

func (r *LineRepo) lock(ctx context.Context, key entity.LineKey) error {
	if r.tx == nil || r.tx.held[key] {
		return nil
	}
	if err := r.s.lineLocks.Lock(ctx, key); err != nil {
		return err
	}
	r.tx.held[key] = true
	r.tx.heldLines = append(r.tx.heldLines, key)
	return nil
}

// Get devuelve la línea o nil.
func (r *LineRepo) Get(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.read(key), nil
}

// GetForUpdate bloquea la línea hasta el fin de la transacción. nil si no existe.
func (r *LineRepo) GetForUpdate(ctx context.Context, key entity.LineKey) (*entity.InventoryLine, error) {
	if err := r.lock(ctx, key); err != nil {
		return nil, err
	}
	return r.read(key), nil
}

// GetOrInitForUpdate bloquea la línea; si no existe la deja preparada en cero dentro de la transacción.
func (r *LineRepo) GetOrInitForUpdate(ctx context.Context, key entity.LineKey, now time.Time) (*entity.InventoryLine, bool, error) {
	if err := r.lock(ctx, key); err != nil {
		return nil, false, err
	}
	if l := r.read(key); l != nil {
		return l, false, nil
	}
	l := entity.NewInventoryLine(uuid.New().String(), key, now)
	if r.tx != nil {
		r.tx.lines[key] = l.Clone()
	}
	return l, true, nil
}

// Upsert guarda la línea (en la transacción si existe, si no directamente).
func (r *LineRepo) Upsert(ctx context.Context, line *entity.InventoryLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.s.injected(OpUpsertLine); err != nil {
		return err
	}
	if err := line.Validate(); err != nil {
		return err
	}
	if r.tx != nil {
		r.tx.lines[line.Key()] = line.Clone()
		return nil
	}
	r.s.mu.Lock()
	r.s.lines[line.Key()] = line.Clone()
	r.s.mu.Unlock()
	return nil
}

func (r *LineRepo) branch(tenantID, branchID string, keep func(*entity.InventoryLine) bool) []*entity.InventoryLine {
	r.s.mu.RLock()
	var out []*entity.InventoryLine
	for k, l := range r.s.lines {
		if k.TenantID != tenantID || k.BranchID != branchID {
			continue
		}
		if _, staged := r.stagedLine(k); staged {
			continue
		}
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, l := range r.tx.lines {
			if k.TenantID == tenantID && k.BranchID == branchID && keep(l) {
				out = append(out, l.Clone())
			}
		}
	}
	return out
}

func (r *LineRepo) stagedLine(k entity.LineKey) (*entity.InventoryLine, bool) {
	if r.tx == nil {
		return nil, false
	}
	l, ok := r.tx.lines[k]
	return l, ok
}

// ListByBranch lista todas las líneas de la sucursal por producto.
func (r *LineRepo) ListByBranch(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.branch(tenantID, branchID, func(*entity.InventoryLine) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// ListLowStock líneas activas en o bajo su punto de reorden, existencia ascendente.
func (r *LineRepo) ListLowStock(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.branch(tenantID, branchID, func(l *entity.InventoryLine) bool {
		return l.IsActive() && l.IsLowStock()
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuantityOnHand != out[j].QuantityOnHand {
			return out[i].QuantityOnHand < out[j].QuantityOnHand
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ListExpiring líneas activas con existencia que vencen en o antes de until, vencimiento ascendente.
func (r *LineRepo) ListExpiring(ctx context.Context, tenantID, branchID string, until time.Time) ([]*entity.InventoryLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.branch(tenantID, branchID, func(l *entity.InventoryLine) bool {
		return l.IsActive() && l.ExpiresBy(until)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(*out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// LedgerRepo implementación en memoria del kardex.
type LedgerRepo struct {
	s  *Store
	tx *tx
}

// Append agrega el movimiento.
func (r *LedgerRepo) Append(ctx context.Context, entry *entity.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.s.injected(OpAppendLedger); err != nil {
		return err
	}
	if r.tx != nil {
		r.tx.ledger = append(r.tx.ledger, cloneEntry(entry))
		return nil
	}
	r.s.mu.Lock()
	r.s.ledger = append(r.s.ledger, cloneEntry(entry))
	r.s.mu.Unlock()
	return nil
}

// ListByLine movimientos de la línea, más recientes primero.
func (r *LedgerRepo) ListByLine(ctx context.Context, key entity.LineKey, limit int) ([]*entity.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := func(e *entity.LedgerEntry) bool {
		return e.TenantID == key.TenantID && e.BranchID == key.BranchID && e.ProductID == key.ProductID
	}
	var out []*entity.LedgerEntry
	if r.tx != nil {
		for i := len(r.tx.ledger) - 1; i >= 0; i-- {
			if matches(r.tx.ledger[i]) {
				out = append(out, cloneEntry(r.tx.ledger[i]))
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if matches(r.s.ledger[i]) {
			out = append(out, cloneEntry(r.s.ledger[i]))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TransferRepo implementación en memoria de traslados.
type TransferRepo struct {
	s  *Store
	tx *tx
}

// Create guarda el traslado con sus ítems.
func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.s.injected(OpCreateTransfer); err != nil {
		return err
	}
	if r.tx != nil {
		r.tx.transfers = append(r.tx.transfers, cloneTransfer(t))
		return nil
	}
	r.s.mu.Lock()
	r.s.transfers = append(r.s.transfers, cloneTransfer(t))
	r.s.mu.Unlock()
	return nil
}

func (r *TransferRepo) all() []*entity.StockTransfer {
	r.s.mu.RLock()
	out := make([]*entity.StockTransfer, 0, len(r.s.transfers))
	for _, t := range r.s.transfers {
		out = append(out, cloneTransfer(t))
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, t := range r.tx.transfers {
			out = append(out, cloneTransfer(t))
		}
	}
	return out
}

// GetByID devuelve el traslado o nil.
func (r *TransferRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.StockTransfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range r.all() {
		if t.TenantID == tenantID && t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func onDay(t *entity.StockTransfer, tenantID string, day time.Time) bool {
	return t.TenantID == tenantID && invdomain.TransferDay(t.TransferredAt).Equal(invdomain.TransferDay(day))
}

// ListByDate traslados del día UTC por número ascendente.
func (r *TransferRepo) ListByDate(ctx context.Context, tenantID string, day time.Time) ([]*entity.StockTransfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.StockTransfer
	for _, t := range r.all() {
		if onDay(t, tenantID, day) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferNumber < out[j].TransferNumber })
	return out, nil
}

// CountOnDate cantidad de traslados del día UTC.
func (r *TransferRepo) CountOnDate(ctx context.Context, tenantID string, day time.Time) (int, error) {
	list, err := r.ListByDate(ctx, tenantID, day)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// NextSequence bloquea el consecutivo del día hasta el fin de la transacción y devuelve el siguiente.
// Fuera de transacción solo informa el siguiente valor sin reservarlo.
func (r *TransferRepo) NextSequence(ctx context.Context, tenantID string, day time.Time) (int, error) {
	k := seqKey{tenantID: tenantID, day: invdomain.TransferDay(day)}
	if r.tx == nil {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
		return r.s.seqs[k] + 1, nil
	}
	if v, ok := r.tx.seqs[k]; ok {
		r.tx.seqs[k] = v + 1
		return v + 1, nil
	}
	if err := r.s.seqLocks.Lock(ctx, k); err != nil {
		return 0, err
	}
	r.tx.heldSeqs = append(r.tx.heldSeqs, k)
	r.s.mu.RLock()
	next := r.s.seqs[k] + 1
	r.s.mu.RUnlock()
	r.tx.seqs[k] = next
	return next, nil
}
