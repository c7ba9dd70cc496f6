// Package memory implementa los repositorios de inventario en memoria, con bloqueo por línea
// y transacciones con escritura diferida. Se usa en pruebas y con INVENTORY_STORE=memory.
package memory

import (
	"sync"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
)

// Op operación del almacén en la que se puede inyectar un fallo.
type Op string

const (
	OpUpsertLine     Op = "upsert_line"
	OpAppendLedger   Op = "append_ledger"
	OpCreateTransfer Op = "create_transfer"
	OpCommit         Op = "commit"
)

type seqKey struct {
	tenantID string
	day      time.Time
}

type fault struct {
	nth   int
	calls int
	err   error
}

// Store datos confirmados del almacén en memoria. Seguro para uso concurrente.
type Store struct {
	mu        sync.RWMutex
	lines     map[entity.LineKey]*entity.InventoryLine
	ledger    []*entity.LedgerEntry
	transfers []*entity.StockTransfer
	seqs      map[seqKey]int

	lineLocks *keyedLocks[entity.LineKey]
	seqLocks  *keyedLocks[seqKey]

	faultMu sync.Mutex
	faults  map[Op]*fault
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		lines:     make(map[entity.LineKey]*entity.InventoryLine),
		seqs:      make(map[seqKey]int),
		lineLocks: newKeyedLocks[entity.LineKey](),
		seqLocks:  newKeyedLocks[seqKey](),
		faults:    make(map[Op]*fault),
	}
}

// FailOn hace que la llamada número nth (desde 1) a op devuelva err. Una sola vez.
func (s *Store) FailOn(op Op, nth int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = &fault{nth: nth, err: err}
}

func (s *Store) injected(op Op) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls == f.nth {
		delete(s.faults, op)
		return f.err
	}
	return nil
}

func (s *Store) committedLine(key entity.LineKey) *entity.InventoryLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.lines[key]; ok {
		return l.Clone()
	}
	return nil
}

// Lines devuelve una copia de todas las líneas confirmadas.
func (s *Store) Lines() []*entity.InventoryLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.InventoryLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l.Clone())
	}
	return out
}

// LedgerSize cantidad de movimientos confirmados en el kardex.
func (s *Store) LedgerSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ledger)
}

// TransferCount cantidad de traslados confirmados.
func (s *Store) TransferCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transfers)
}

// LineRepository repositorio de líneas fuera de transacción (lecturas y escrituras directas).
func (s *Store) LineRepository() *LineRepo { return &LineRepo{s: s} }

// LedgerRepository repositorio de kardex fuera de transacción.
func (s *Store) LedgerRepository() *LedgerRepo { return &LedgerRepo{s: s} }

// TransferRepository repositorio de traslados fuera de transacción.
func (s *Store) TransferRepository() *TransferRepo { return &TransferRepo{s: s} }

// commit aplica lo escrito por tx de una sola vez.
func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, l := range t.lines {
		s.lines[k] = l
	}
	s.ledger = append(s.ledger, t.ledger...)
	s.transfers = append(s.transfers, t.transfers...)
	for k, v := range t.seqs {
		s.seqs[k] = v
	}
}

func cloneTransfer(t *entity.StockTransfer) *entity.StockTransfer {
	c := *t
	c.Items = make([]entity.StockTransferItem, len(t.Items))
	copy(c.Items, t.Items)
	return &c
}

func cloneEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	return &c
}
