package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatusCompleted es el único estado de un traslado: se confirma al registrarse.
const TransferStatusCompleted = "completed"

// StockTransfer representa un traslado de mercancía entre dos sucursales del mismo tenant.
// Se escribe una sola vez y no se modifica después del commit.
type StockTransfer struct {
	ID                  string
	TenantID            string
	TransferNumber      string // TRF + AAAAMMDD + consecutivo de 4 dígitos
	SourceBranchID      string
	DestinationBranchID string
	Status              string
	RequestedBy         string
	ApprovedBy          string
	Notes               string
	TransferredAt       time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Items               []StockTransferItem
}

// StockTransferItem detalle de un producto trasladado, con foto de lote, vencimiento y costo del origen.
type StockTransferItem struct {
	ID                  string
	TransferID          string
	Position            int
	ProductID           string
	SourceLineID        string
	DestinationLineID   string
	QuantityRequested   int64
	QuantityApproved    int64
	QuantityTransferred int64
	BatchNumber         string
	ExpiryDate          *time.Time
	CostPrice           *decimal.Decimal
}

// TotalQuantity suma las unidades trasladadas de todos los ítems.
func (t *StockTransfer) TotalQuantity() int64 {
	var total int64
	for _, it := range t.Items {
		total += it.QuantityTransferred
	}
	return total
}
