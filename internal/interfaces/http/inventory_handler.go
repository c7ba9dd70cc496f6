package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
)

// pathParam copia el parámetro de ruta: fiber reutiliza el buffer de la petición y los ids
// terminan como claves del almacén.
func pathParam(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}

// InventoryHandler maneja las peticiones HTTP de líneas de inventario por sucursal (protegido).
type InventoryHandler struct {
	uc *inventory.InventoryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.InventoryUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// GetLine godoc
// @Summary      Consultar línea de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID   path  string  true  "Sucursal"
// @Param        productID  path  string  true  "Producto"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/branches/{branchID}/lines/{productID} [get]
func (h *InventoryHandler) GetLine(c *fiber.Ctx) error {
	line, err := h.uc.GetLine(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"), pathParam(c, "productID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryLineResponse(line))
}

// Adjust godoc
// @Summary      Ajustar existencia (conteo físico)
// @Description  Fija la existencia de la línea; la crea si no existe. Valores negativos quedan en cero.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        branchID   path  string                      true  "Sucursal"
// @Param        productID  path  string                      true  "Producto"
// @Param        body       body  dto.AdjustInventoryRequest  true  "quantity_on_hand (entero), reason, reorder_level, expiry_date, batch_number, cost_price"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/branches/{branchID}/lines/{productID} [put]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var req dto.AdjustInventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	qty, err := inventory.ParseQuantity(req.QuantityOnHand)
	if err != nil {
		return writeError(c, err)
	}
	in := inventory.AdjustInput{
		TenantID:     GetTenantID(c),
		BranchID:     pathParam(c, "branchID"),
		ProductID:    pathParam(c, "productID"),
		ActorID:      GetUserID(c),
		NewOnHand:    qty,
		Reason:       req.Reason,
		ReorderLevel: req.ReorderLevel,
		BatchNumber:  req.BatchNumber,
		CostPrice:    req.CostPrice,
	}
	if req.ExpiryDate != "" {
		d, err := time.ParseInLocation(dto.DateLayout, req.ExpiryDate, time.UTC)
		if err != nil {
			return badRequest(c, "VALIDATION", "expiry_date debe tener formato AAAA-MM-DD")
		}
		in.ExpiryDate = &d
	}
	line, err := h.uc.Adjust(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryLineResponse(line))
}

// reservationInput arma la entrada de Reserve/Release; los errores son de dominio y los traduce writeError.
func reservationInput(c *fiber.Ctx) (inventory.ReservationInput, error) {
	var req dto.QuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return inventory.ReservationInput{}, fmt.Errorf("%w: cuerpo inválido", domain.ErrInvalidInput)
	}
	qty, err := inventory.ParseQuantity(req.Quantity)
	if err != nil {
		return inventory.ReservationInput{}, err
	}
	return inventory.ReservationInput{
		TenantID:  GetTenantID(c),
		BranchID:  pathParam(c, "branchID"),
		ProductID: pathParam(c, "productID"),
		ActorID:   GetUserID(c),
		Quantity:  qty,
		Reason:    req.Reason,
	}, nil
}

// Reserve godoc
// @Summary      Reservar unidades
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        branchID   path  string               true  "Sucursal"
// @Param        productID  path  string               true  "Producto"
// @Param        body       body  dto.QuantityRequest  true  "quantity (entero > 0)"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK"
// @Router       /api/inventory/branches/{branchID}/lines/{productID}/reserve [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	in, err := reservationInput(c)
	if err != nil {
		return writeError(c, err)
	}
	line, err := h.uc.Reserve(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryLineResponse(line))
}

// Release godoc
// @Summary      Liberar unidades reservadas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        branchID   path  string               true  "Sucursal"
// @Param        productID  path  string               true  "Producto"
// @Param        body       body  dto.QuantityRequest  true  "quantity (entero > 0)"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "OVER_RELEASE"
// @Router       /api/inventory/branches/{branchID}/lines/{productID}/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	in, err := reservationInput(c)
	if err != nil {
		return writeError(c, err)
	}
	line, err := h.uc.Release(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryLineResponse(line))
}

// Deactivate godoc
// @Summary      Desactivar línea de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID   path  string  true  "Sucursal"
// @Param        productID  path  string  true  "Producto"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/branches/{branchID}/lines/{productID} [delete]
func (h *InventoryHandler) Deactivate(c *fiber.Ctx) error {
	line, err := h.uc.Deactivate(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"), pathParam(c, "productID"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryLineResponse(line))
}

// History godoc
// @Summary      Kardex de la línea
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID   path   string  true   "Sucursal"
// @Param        productID  path   string  true   "Producto"
// @Param        limit      query  int     false  "Máximo de movimientos (100 por defecto, 500 máximo)"
// @Success      200  {object}  dto.ListResponse[dto.LedgerEntryResponse]
// @Router       /api/inventory/branches/{branchID}/lines/{productID}/ledger [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	var q dto.LimitRequest
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "VALIDATION", "limit inválido")
	}
	q.DefaultLimit(100, 500)
	entries, err := h.uc.History(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"), pathParam(c, "productID"), q.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.NewLedgerEntryResponses(entries)))
}

// LowStock godoc
// @Summary      Productos en o bajo el punto de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID  path  string  true  "Sucursal"
// @Success      200  {object}  dto.ListResponse[dto.InventoryLineResponse]
// @Router       /api/inventory/branches/{branchID}/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	lines, err := h.uc.LowStock(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.NewInventoryLineResponses(lines)))
}

// Expiring godoc
// @Summary      Productos por vencer
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID  path   string  true   "Sucursal"
// @Param        days      query  int     false  "Ventana en días (30 por defecto)"
// @Success      200  {object}  dto.ListResponse[dto.InventoryLineResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/branches/{branchID}/expiring [get]
func (h *InventoryHandler) Expiring(c *fiber.Ctx) error {
	days := inventory.DefaultExpiryWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "VALIDATION", "days debe ser un entero >= 0")
		}
		days = n
	}
	lines, err := h.uc.Expiring(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.NewInventoryLineResponses(lines)))
}

// Stats godoc
// @Summary      Resumen de inventario de la sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID  path  string  true  "Sucursal"
// @Success      200  {object}  dto.BranchStatsDTO
// @Router       /api/inventory/branches/{branchID}/stats [get]
func (h *InventoryHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.uc.Stats(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}
