package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory     *inventory.InventoryUseCase
	Transfers     *inventory.TransferUseCase
	Replenishment *inventory.ReplenishmentUseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	stockRoles := RequireRole(RoleAdmin, RolePharmacist)
	counterRoles := RequireRole(RoleAdmin, RolePharmacist, RoleCashier)

	invGroup := api.Group("/inventory")

	// Líneas de inventario por sucursal
	inventoryHandler := NewInventoryHandler(deps.Inventory)
	branches := invGroup.Group("/branches/:branchID")
	branches.Get("/low-stock", inventoryHandler.LowStock)
	branches.Get("/expiring", inventoryHandler.Expiring)
	branches.Get("/stats", inventoryHandler.Stats)
	branches.Get("/replenishment", stockRoles, NewReplenishmentHandler(deps.Replenishment).List)

	lines := branches.Group("/lines/:productID")
	lines.Get("/", inventoryHandler.GetLine)
	lines.Put("/", stockRoles, inventoryHandler.Adjust)
	lines.Delete("/", RequireRole(RoleAdmin), inventoryHandler.Deactivate)
	lines.Post("/reserve", counterRoles, inventoryHandler.Reserve)
	lines.Post("/release", counterRoles, inventoryHandler.Release)
	lines.Get("/ledger", inventoryHandler.History)

	// Traslados entre sucursales
	transferHandler := NewTransferHandler(deps.Transfers)
	transfers := invGroup.Group("/transfers")
	transfers.Post("/", stockRoles, transferHandler.Create)
	transfers.Get("/", transferHandler.ListByDate)
	transfers.Get("/:id", transferHandler.GetByID)
}
