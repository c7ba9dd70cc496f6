package dto

// LimitRequest límite opcional para listados (kardex).
type LimitRequest struct {
	Limit int `query:"limit"`
}

// DefaultLimit aplica el valor por defecto si Limit es cero o excede max.
func (p *LimitRequest) DefaultLimit(def, max int) {
	if p.Limit <= 0 || p.Limit > max {
		p.Limit = def
	}
}

// ListResponse envoltorio de listados con su cantidad.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse construye el envoltorio; nunca serializa items como null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
