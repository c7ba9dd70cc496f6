package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// idealStockFactor stock objetivo = punto de reorden * 1.5.
var idealStockFactor = decimal.NewFromFloat(1.5)

// ReplenishmentUseCase genera la lista de reposición de una sucursal a partir de sus líneas en o bajo reorden.
type ReplenishmentUseCase struct {
	lineRepo repository.InventoryLineRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(lineRepo repository.InventoryLineRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{lineRepo: lineRepo}
}

// GenerateReplenishmentList devuelve los productos a reponer con la cantidad sugerida
// (hasta el stock ideal) y una prioridad: 1 = mayor déficit relativo al punto de reorden.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, tenantID, branchID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	if tenantID == "" || branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	lines, err := uc.lineRepo.ListLowStock(ctx, tenantID, branchID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(lines))
	for _, l := range lines {
		reorder := decimal.NewFromInt(l.ReorderLevel)
		ideal := reorder.Mul(idealStockFactor).Ceil().IntPart()
		qty := ideal - l.QuantityOnHand
		if qty < 0 {
			qty = 0
		}
		s := dto.ReplenishmentSuggestionDTO{
			ProductID:         l.ProductID,
			CurrentStock:      l.QuantityOnHand,
			Reserved:          l.QuantityReserved,
			ReorderLevel:      l.ReorderLevel,
			IdealStock:        ideal,
			SuggestedOrderQty: qty,
			DeficitPct:        decimal.NewFromInt(l.ReorderLevel - l.QuantityOnHand).Div(reorder).Mul(decimal.NewFromInt(100)).Round(2),
		}
		if l.CostPrice != nil {
			cost := *l.CostPrice
			s.UnitCost = &cost
			est := cost.Mul(decimal.NewFromInt(qty))
			s.EstimatedOrderCost = &est
		}
		suggestions = append(suggestions, s)
	}

	// Mayor déficit relativo primero; empate por producto.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.DeficitPct.Equal(b.DeficitPct) {
			return a.DeficitPct.GreaterThan(b.DeficitPct)
		}
		return a.ProductID < b.ProductID
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
