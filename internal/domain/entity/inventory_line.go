package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/shopspring/decimal"
)

// Estados de una línea de inventario.
const (
	LineStatusActive   = "active"
	LineStatusInactive = "inactive"
)

// LineKey identifica una línea de inventario: (tenant, sucursal, producto).
type LineKey struct {
	TenantID  string
	BranchID  string
	ProductID string
}

// String devuelve la clave en formato tenant/sucursal/producto.
func (k LineKey) String() string {
	return k.TenantID + "/" + k.BranchID + "/" + k.ProductID
}

// Less define el orden de bloqueo entre líneas (tenant, sucursal, producto ascendente).
func (k LineKey) Less(o LineKey) bool {
	if k.TenantID != o.TenantID {
		return k.TenantID < o.TenantID
	}
	if k.BranchID != o.BranchID {
		return k.BranchID < o.BranchID
	}
	return k.ProductID < o.ProductID
}

// InventoryLine representa el stock de un producto en una sucursal de la farmacia.
// QuantityAvailable es derivado (OnHand - Reserved); en PostgreSQL es columna generada.
type InventoryLine struct {
	ID                string
	TenantID          string
	BranchID          string
	ProductID         string
	QuantityOnHand    int64
	QuantityReserved  int64
	QuantityAvailable int64
	ReorderLevel      int64 // 0 = sin punto de reorden
	ExpiryDate        *time.Time
	BatchNumber       string
	CostPrice         *decimal.Decimal
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInventoryLine construye una línea activa con cantidades en cero.
func NewInventoryLine(id string, key LineKey, now time.Time) *InventoryLine {
	return &InventoryLine{
		ID:        id,
		TenantID:  key.TenantID,
		BranchID:  key.BranchID,
		ProductID: key.ProductID,
		Status:    LineStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key devuelve la identidad natural de la línea.
func (l *InventoryLine) Key() LineKey {
	return LineKey{TenantID: l.TenantID, BranchID: l.BranchID, ProductID: l.ProductID}
}

// Recompute recalcula la cantidad disponible.
func (l *InventoryLine) Recompute() {
	l.QuantityAvailable = l.QuantityOnHand - l.QuantityReserved
}

// Validate verifica 0 <= reservado <= existencia y disponible = existencia - reservado.
func (l *InventoryLine) Validate() error {
	if l.QuantityOnHand < 0 || l.QuantityReserved < 0 || l.QuantityReserved > l.QuantityOnHand {
		return fmt.Errorf("%w: línea %s existencia=%d reservado=%d",
			domain.ErrInvariantViolation, l.Key(), l.QuantityOnHand, l.QuantityReserved)
	}
	if l.QuantityAvailable != l.QuantityOnHand-l.QuantityReserved {
		return fmt.Errorf("%w: línea %s disponible=%d", domain.ErrInvariantViolation, l.Key(), l.QuantityAvailable)
	}
	return nil
}

// IsActive indica si la línea no ha sido retirada.
func (l *InventoryLine) IsActive() bool { return l.Status != LineStatusInactive }

// IsLowStock: punto de reorden habilitado y existencia en o por debajo de él.
func (l *InventoryLine) IsLowStock() bool {
	return l.ReorderLevel > 0 && l.QuantityOnHand <= l.ReorderLevel
}

// IsOutOfStock indica existencia cero.
func (l *InventoryLine) IsOutOfStock() bool { return l.QuantityOnHand == 0 }

// ExpiresBy indica si la línea tiene existencia y vence en o antes de t.
func (l *InventoryLine) ExpiresBy(t time.Time) bool {
	return l.ExpiryDate != nil && !l.ExpiryDate.After(t) && l.QuantityOnHand > 0
}

// StockValue devuelve existencia * costo; false si la línea no tiene costo.
func (l *InventoryLine) StockValue() (decimal.Decimal, bool) {
	if l.CostPrice == nil {
		return decimal.Zero, false
	}
	return l.CostPrice.Mul(decimal.NewFromInt(l.QuantityOnHand)), true
}

// SetOnHand fija la existencia (negativos quedan en cero). Si la nueva existencia queda
// por debajo de lo reservado, la reserva se recorta a la existencia.
// Devuelve true si hubo recorte a cero.
func (l *InventoryLine) SetOnHand(qty int64) (clamped bool) {
	if qty < 0 {
		qty = 0
		clamped = true
	}
	l.QuantityOnHand = qty
	if l.QuantityReserved > qty {
		l.QuantityReserved = qty
	}
	l.Recompute()
	return clamped
}

// Reserve aparta qty unidades si hay disponibilidad; sin cambios en caso contrario.
func (l *InventoryLine) Reserve(qty int64) error {
	if qty > l.QuantityAvailable {
		return fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, l.QuantityAvailable, qty)
	}
	l.QuantityReserved += qty
	l.Recompute()
	return nil
}

// Release libera qty unidades reservadas; sin cambios si supera lo reservado.
func (l *InventoryLine) Release(qty int64) error {
	if qty > l.QuantityReserved {
		return fmt.Errorf("%w: reservado %d, solicitado %d", domain.ErrOverRelease, l.QuantityReserved, qty)
	}
	l.QuantityReserved -= qty
	l.Recompute()
	return nil
}

// Debit descuenta qty de la existencia disponible (salida por traslado).
func (l *InventoryLine) Debit(qty int64) error {
	if qty > l.QuantityAvailable {
		return fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, l.QuantityAvailable, qty)
	}
	l.QuantityOnHand -= qty
	l.Recompute()
	return nil
}

// Credit suma qty a la existencia (entrada por traslado).
func (l *InventoryLine) Credit(qty int64) {
	l.QuantityOnHand += qty
	l.Recompute()
}

// Clone devuelve una copia profunda de la línea.
func (l *InventoryLine) Clone() *InventoryLine {
	c := *l
	if l.ExpiryDate != nil {
		d := *l.ExpiryDate
		c.ExpiryDate = &d
	}
	if l.CostPrice != nil {
		p := *l.CostPrice
		c.CostPrice = &p
	}
	return &c
}
