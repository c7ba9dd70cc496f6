package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOverRelease       = errors.New("la liberación excede la cantidad reservada")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrTransferFailed    = errors.New("el traslado no pudo completarse")
)

// ErrInvariantViolation indica que una línea quedó con cantidades inconsistentes.
var ErrInvariantViolation = errors.New("invariante de inventario violada")
