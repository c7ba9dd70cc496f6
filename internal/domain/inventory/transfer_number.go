package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransferNumberPrefix prefijo de los números de traslado.
const TransferNumberPrefix = "TRF"

const transferDateLayout = "20060102"

// TransferDay trunca t al día calendario UTC; es la unidad del consecutivo de traslados.
func TransferDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatTransferNumber construye TRF + AAAAMMDD (UTC) + consecutivo con 4 dígitos.
// Consecutivos mayores a 9999 se escriben completos.
func FormatTransferNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", TransferNumberPrefix, day.UTC().Format(transferDateLayout), seq)
}

// ParseTransferNumber extrae el día y el consecutivo de un número de traslado.
func ParseTransferNumber(number string) (time.Time, int, error) {
	rest, ok := strings.CutPrefix(number, TransferNumberPrefix)
	if !ok || len(rest) < len(transferDateLayout)+4 {
		return time.Time{}, 0, fmt.Errorf("número de traslado inválido: %q", number)
	}
	day, err := time.ParseInLocation(transferDateLayout, rest[:len(transferDateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("fecha de traslado inválida en %q: %w", number, err)
	}
	seq, err := strconv.Atoi(rest[len(transferDateLayout):])
	if err != nil || seq <= 0 {
		return time.Time{}, 0, fmt.Errorf("consecutivo de traslado inválido en %q", number)
	}
	return day, seq, nil
}
