package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/shopspring/decimal"
)

// ParseQuantity convierte una cantidad recibida como decimal (JSON) a entero.
// Falla con ErrInvalidQuantity si tiene parte fraccionaria o no cabe en int64; el signo lo valida cada operación.
func ParseQuantity(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s no es un entero", domain.ErrInvalidQuantity, d.String())
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s fuera de rango", domain.ErrInvalidQuantity, d.String())
	}
	return d.IntPart(), nil
}

func requirePositive(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: debe ser mayor que cero, recibido %d", domain.ErrInvalidQuantity, qty)
	}
	return nil
}

// boundedContext limita la operación al timeout configurado (0 = solo el contexto del caller).
func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
