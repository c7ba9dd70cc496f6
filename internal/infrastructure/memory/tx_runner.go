package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// tx escrituras pendientes y bloqueos tomados por una transacción.
type tx struct {
	lines     map[entity.LineKey]*entity.InventoryLine
	ledger    []*entity.LedgerEntry
	transfers []*entity.StockTransfer
	seqs      map[seqKey]int

	heldLines []entity.LineKey
	heldSeqs  []seqKey
	held      map[entity.LineKey]bool
}

func newTx() *tx {
	return &tx{
		lines: make(map[entity.LineKey]*entity.InventoryLine),
		seqs:  make(map[seqKey]int),
		held:  make(map[entity.LineKey]bool),
	}
}

// TxRunner ejecuta callbacks dentro de una transacción del almacén en memoria.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con repos atados a una transacción nueva. Las escrituras solo se aplican
// si fn termina sin error y el contexto sigue vigente; los bloqueos se liberan siempre.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lineRepo repository.InventoryLineRepository,
	ledgerRepo repository.StockLedgerRepository,
	transferRepo repository.StockTransferRepository,
) error) error {
	t := newTx()
	defer r.release(t)

	if err := fn(&LineRepo{s: r.s, tx: t}, &LedgerRepo{s: r.s, tx: t}, &TransferRepo{s: r.s, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	if err := r.s.injected(OpCommit); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.s.commit(t)
	return nil
}

func (r *TxRunner) release(t *tx) {
	for i := len(t.heldSeqs) - 1; i >= 0; i-- {
		r.s.seqLocks.Unlock(t.heldSeqs[i])
	}
	for i := len(t.heldLines) - 1; i >= 0; i-- {
		r.s.lineLocks.Unlock(t.heldLines[i])
	}
}
