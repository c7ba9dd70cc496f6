package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// isRetryable deadlock o fallo de serialización: la transacción se puede reintentar.
func isRetryable(err error) bool {
	code := pgCode(err)
	return code == codeDeadlockDetected || code == codeSerializationFailure
}

// mapError traduce errores de PostgreSQL a errores de dominio.
func mapError(op string, err error) error {
	switch {
	case isRetryable(err):
		return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
	case pgCode(err) == codeCheckViolation:
		return fmt.Errorf("%w: %s: %w", domain.ErrInvariantViolation, op, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
