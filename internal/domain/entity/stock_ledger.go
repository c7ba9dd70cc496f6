package entity

import "time"

// Tipos de evento del kardex (libro de movimientos de stock).
const (
	LedgerKindAdjustment  = "adjustment"
	LedgerKindReserve     = "reserve"
	LedgerKindRelease     = "release"
	LedgerKindTransferOut = "transfer-out"
	LedgerKindTransferIn  = "transfer-in"
)

// LedgerEntry es un registro inmutable de un evento que afecta cantidades de una línea.
// QuantityDelta es con signo: existencia para ajustes y traslados, reserva para reserve/release.
type LedgerEntry struct {
	ID            string
	LineID        string
	TenantID      string
	BranchID      string
	ProductID     string
	Kind          string
	QuantityDelta int64
	OnHandBefore  int64
	OnHandAfter   int64
	ReservedAfter int64
	ActorID       string
	Reason        string
	TransferID    string
	CreatedAt     time.Time
}

// NewLedgerEntry toma la foto de la línea ya modificada.
func NewLedgerEntry(id string, line *InventoryLine, kind string, delta, onHandBefore int64, actorID, reason string, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:            id,
		LineID:        line.ID,
		TenantID:      line.TenantID,
		BranchID:      line.BranchID,
		ProductID:     line.ProductID,
		Kind:          kind,
		QuantityDelta: delta,
		OnHandBefore:  onHandBefore,
		OnHandAfter:   line.QuantityOnHand,
		ReservedAfter: line.QuantityReserved,
		ActorID:       actorID,
		Reason:        reason,
		CreatedAt:     now,
	}
}
