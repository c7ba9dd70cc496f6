package dto

import (
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AdjustInventoryRequest body para PUT /api/inventory/branches/:branchID/lines/:productID.
// quantity_on_hand debe ser entero; expiry_date en formato AAAA-MM-DD.
type AdjustInventoryRequest struct {
	QuantityOnHand decimal.Decimal  `json:"quantity_on_hand"`
	Reason         string           `json:"reason,omitempty"`
	ReorderLevel   *int64           `json:"reorder_level,omitempty"`
	ExpiryDate     string           `json:"expiry_date,omitempty"`
	BatchNumber    *string          `json:"batch_number,omitempty"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
}

// QuantityRequest body para reservar o liberar unidades.
type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason,omitempty"`
}

// TransferItemRequest producto y cantidad dentro de un traslado.
type TransferItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferRequest body para POST /api/inventory/transfers.
// Para un solo producto basta product_id y quantity; items permite varios.
type TransferRequest struct {
	SourceBranchID      string                `json:"source_branch_id"`
	DestinationBranchID string                `json:"destination_branch_id"`
	ProductID           string                `json:"product_id,omitempty"`
	Quantity            decimal.Decimal       `json:"quantity"`
	Items               []TransferItemRequest `json:"items,omitempty"`
	Notes               string                `json:"notes,omitempty"`
	ApprovedBy          string                `json:"approved_by,omitempty"`
}

// InventoryLineResponse línea de inventario expuesta por la API.
type InventoryLineResponse struct {
	ID                string           `json:"id"`
	BranchID          string           `json:"branch_id"`
	ProductID         string           `json:"product_id"`
	QuantityOnHand    int64            `json:"quantity_on_hand"`
	QuantityReserved  int64            `json:"quantity_reserved"`
	QuantityAvailable int64            `json:"quantity_available"`
	ReorderLevel      int64            `json:"reorder_level"`
	ExpiryDate        *string          `json:"expiry_date,omitempty"`
	BatchNumber       string           `json:"batch_number,omitempty"`
	CostPrice         *decimal.Decimal `json:"cost_price,omitempty"`
	Status            string           `json:"status"`
	LowStock          bool             `json:"low_stock"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// DateLayout formato de fechas de vencimiento y de consulta por día.
const DateLayout = "2006-01-02"

// NewInventoryLineResponse mapea la entidad al DTO.
func NewInventoryLineResponse(l *entity.InventoryLine) InventoryLineResponse {
	r := InventoryLineResponse{
		ID:                l.ID,
		BranchID:          l.BranchID,
		ProductID:         l.ProductID,
		QuantityOnHand:    l.QuantityOnHand,
		QuantityReserved:  l.QuantityReserved,
		QuantityAvailable: l.QuantityAvailable,
		ReorderLevel:      l.ReorderLevel,
		BatchNumber:       l.BatchNumber,
		CostPrice:         l.CostPrice,
		Status:            l.Status,
		LowStock:          l.IsLowStock(),
		UpdatedAt:         l.UpdatedAt,
	}
	if l.ExpiryDate != nil {
		s := l.ExpiryDate.Format(DateLayout)
		r.ExpiryDate = &s
	}
	return r
}

// NewInventoryLineResponses mapea un listado de líneas.
func NewInventoryLineResponses(lines []*entity.InventoryLine) []InventoryLineResponse {
	out := make([]InventoryLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, NewInventoryLineResponse(l))
	}
	return out
}

// LedgerEntryResponse movimiento del kardex.
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	QuantityDelta int64     `json:"quantity_delta"`
	OnHandBefore  int64     `json:"on_hand_before"`
	OnHandAfter   int64     `json:"on_hand_after"`
	ReservedAfter int64     `json:"reserved_after"`
	ActorID       string    `json:"actor_id"`
	Reason        string    `json:"reason,omitempty"`
	TransferID    string    `json:"transfer_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewLedgerEntryResponses mapea el kardex.
func NewLedgerEntryResponses(entries []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:            e.ID,
			Kind:          e.Kind,
			QuantityDelta: e.QuantityDelta,
			OnHandBefore:  e.OnHandBefore,
			OnHandAfter:   e.OnHandAfter,
			ReservedAfter: e.ReservedAfter,
			ActorID:       e.ActorID,
			Reason:        e.Reason,
			TransferID:    e.TransferID,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

// StockTransferItemResponse ítem de un traslado.
type StockTransferItemResponse struct {
	Position            int              `json:"position"`
	ProductID           string           `json:"product_id"`
	QuantityRequested   int64            `json:"quantity_requested"`
	QuantityApproved    int64            `json:"quantity_approved"`
	QuantityTransferred int64            `json:"quantity_transferred"`
	BatchNumber         string           `json:"batch_number,omitempty"`
	ExpiryDate          *string          `json:"expiry_date,omitempty"`
	CostPrice           *decimal.Decimal `json:"cost_price,omitempty"`
}

// StockTransferResponse traslado registrado.
type StockTransferResponse struct {
	ID                  string                      `json:"id"`
	TransferNumber      string                      `json:"transfer_number"`
	SourceBranchID      string                      `json:"source_branch_id"`
	DestinationBranchID string                      `json:"destination_branch_id"`
	Status              string                      `json:"status"`
	RequestedBy         string                      `json:"requested_by"`
	ApprovedBy          string                      `json:"approved_by"`
	Notes               string                      `json:"notes,omitempty"`
	TotalQuantity       int64                       `json:"total_quantity"`
	TransferredAt       time.Time                   `json:"transferred_at"`
	Items               []StockTransferItemResponse `json:"items"`
}

// NewStockTransferResponse mapea la entidad al DTO.
func NewStockTransferResponse(t *entity.StockTransfer) StockTransferResponse {
	r := StockTransferResponse{
		ID:                  t.ID,
		TransferNumber:      t.TransferNumber,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		Status:              t.Status,
		RequestedBy:         t.RequestedBy,
		ApprovedBy:          t.ApprovedBy,
		Notes:               t.Notes,
		TotalQuantity:       t.TotalQuantity(),
		TransferredAt:       t.TransferredAt,
		Items:               make([]StockTransferItemResponse, 0, len(t.Items)),
	}
	for _, it := range t.Items {
		item := StockTransferItemResponse{
			Position:            it.Position,
			ProductID:           it.ProductID,
			QuantityRequested:   it.QuantityRequested,
			QuantityApproved:    it.QuantityApproved,
			QuantityTransferred: it.QuantityTransferred,
			BatchNumber:         it.BatchNumber,
			CostPrice:           it.CostPrice,
		}
		if it.ExpiryDate != nil {
			s := it.ExpiryDate.Format(DateLayout)
			item.ExpiryDate = &s
		}
		r.Items = append(r.Items, item)
	}
	return r
}

// BranchStatsDTO resumen de inventario de una sucursal (solo líneas activas).
type BranchStatsDTO struct {
	TenantID          string          `json:"tenant_id"`
	BranchID          string          `json:"branch_id"`
	TotalLines        int             `json:"total_lines"`
	TotalValue        decimal.Decimal `json:"total_value"`
	LowStockCount     int             `json:"low_stock_count"`
	OutOfStockCount   int             `json:"out_of_stock_count"`
	ExpiringSoonCount int             `json:"expiring_soon_count"`
	ExpiryWindowDays  int             `json:"expiry_window_days"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// ReplenishmentSuggestionDTO producto a reponer en una sucursal.
type ReplenishmentSuggestionDTO struct {
	Priority           int              `json:"priority"`
	ProductID          string           `json:"product_id"`
	CurrentStock       int64            `json:"current_stock"`
	Reserved           int64            `json:"reserved"`
	ReorderLevel       int64            `json:"reorder_level"`
	IdealStock         int64            `json:"ideal_stock"`
	SuggestedOrderQty  int64            `json:"suggested_order_qty"`
	DeficitPct         decimal.Decimal  `json:"deficit_pct"`
	UnitCost           *decimal.Decimal `json:"unit_cost,omitempty"`
	EstimatedOrderCost *decimal.Decimal `json:"estimated_order_cost,omitempty"`
}
