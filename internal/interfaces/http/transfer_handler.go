package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
)

// TransferHandler maneja los traslados entre sucursales (protegido).
type TransferHandler struct {
	uc *inventory.TransferUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *inventory.TransferUseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar traslado entre sucursales
// @Description  Descuenta en origen y suma en destino en una sola transacción. Devuelve el número TRF asignado.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "source_branch_id, destination_branch_id, product_id + quantity o items"
// @Success      201  {object}  dto.StockTransferResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK"
// @Failure      503  {object}  dto.ErrorResponse  "TRANSFER_FAILED"
// @Router       /api/inventory/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	in := inventory.TransferInput{
		TenantID:            GetTenantID(c),
		SourceBranchID:      req.SourceBranchID,
		DestinationBranchID: req.DestinationBranchID,
		Notes:               req.Notes,
		ActorID:             GetUserID(c),
		ApproverID:          req.ApprovedBy,
	}
	if len(req.Items) > 0 {
		for _, it := range req.Items {
			qty, err := inventory.ParseQuantity(it.Quantity)
			if err != nil {
				return writeError(c, err)
			}
			in.Items = append(in.Items, inventory.TransferItemInput{ProductID: it.ProductID, Quantity: qty})
		}
	} else {
		qty, err := inventory.ParseQuantity(req.Quantity)
		if err != nil {
			return writeError(c, err)
		}
		in.ProductID = req.ProductID
		in.Quantity = qty
	}

	t, err := h.uc.Transfer(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewStockTransferResponse(t))
}

// GetByID godoc
// @Summary      Consultar traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del traslado"
// @Success      200  {object}  dto.StockTransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.UserContext(), GetTenantID(c), pathParam(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewStockTransferResponse(t))
}

// ListByDate godoc
// @Summary      Traslados de un día
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        date  query  string  false  "Día UTC AAAA-MM-DD (hoy por defecto)"
// @Success      200  {object}  dto.ListResponse[dto.StockTransferResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [get]
func (h *TransferHandler) ListByDate(c *fiber.Ctx) error {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(dto.DateLayout, raw, time.UTC)
		if err != nil {
			return badRequest(c, "VALIDATION", "date debe tener formato AAAA-MM-DD")
		}
		day = d
	}
	list, err := h.uc.ListTransfers(c.UserContext(), GetTenantID(c), day)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockTransferResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.NewStockTransferResponse(t))
	}
	return c.JSON(dto.NewListResponse(out))
}
