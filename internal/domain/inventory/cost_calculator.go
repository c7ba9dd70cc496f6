package inventory

import "github.com/shopspring/decimal"

// CostScale decimales del costo unitario (NUMERIC(18,4) en la base).
const CostScale = 4

// WeightedAverageCost costo promedio ponderado tras una entrada:
// ((existencia * costo) + (entrada * costoEntrada)) / (existencia + entrada), redondeado a CostScale.
func WeightedAverageCost(onHand int64, cost decimal.Decimal, incoming int64, incomingCost decimal.Decimal) decimal.Decimal {
	total := onHand + incoming
	if total <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(onHand).Mul(cost).Add(decimal.NewFromInt(incoming).Mul(incomingCost))
	return num.Div(decimal.NewFromInt(total)).Round(CostScale)
}

// IncomingCost costo de la línea destino al recibir incoming unidades con costo incomingCost.
// Sin costo de entrada se conserva el actual; sin costo actual o sin existencia se toma el de entrada.
func IncomingCost(onHand int64, cost *decimal.Decimal, incoming int64, incomingCost *decimal.Decimal) *decimal.Decimal {
	if incomingCost == nil {
		return cost
	}
	if cost == nil || onHand == 0 {
		c := *incomingCost
		return &c
	}
	avg := WeightedAverageCost(onHand, *cost, incoming, *incomingCost)
	return &avg
}
