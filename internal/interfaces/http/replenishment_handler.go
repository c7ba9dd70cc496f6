package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
)

// ReplenishmentHandler expone la lista de reposición por sucursal (protegido).
type ReplenishmentHandler struct {
	uc *inventory.ReplenishmentUseCase
}

func NewReplenishmentHandler(uc *inventory.ReplenishmentUseCase) *ReplenishmentHandler {
	return &ReplenishmentHandler{uc: uc}
}

// List godoc
// @Summary      Lista de reposición de la sucursal
// @Description  Productos en o bajo el punto de reorden con cantidad sugerida hasta 1.5x el reorden.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchID  path  string  true  "Sucursal"
// @Success      200  {object}  dto.ListResponse[dto.ReplenishmentSuggestionDTO]
// @Router       /api/inventory/branches/{branchID}/replenishment [get]
func (h *ReplenishmentHandler) List(c *fiber.Ctx) error {
	items, err := h.uc.GenerateReplenishmentList(c.UserContext(), GetTenantID(c), pathParam(c, "branchID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(items))
}
