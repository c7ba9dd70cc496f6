package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/farmacia-inventario/internal/interfaces/http"
)

var apiNow = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

// newAPI arma la API completa sobre el almacén en memoria.
func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	s := memory.NewStore()
	runner := memory.NewTxRunner(s)
	cfg := inventory.Config{OperationTimeout: 5 * time.Second}
	invUC := inventory.NewInventoryUseCase(runner, s.LineRepository(), s.LedgerRepository(), cfg, zerolog.Nop())
	trUC := inventory.NewTransferUseCase(runner, s.TransferRepository(), cfg, zerolog.Nop())
	invUC.SetClock(func() time.Time { return apiNow })
	trUC.SetClock(func() time.Time { return apiNow })

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Inventory:     invUC,
		Transfers:     trUC,
		Replenishment: inventory.NewReplenishmentUseCase(s.LineRepository()),
		JWTSecret:     testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

const linePath = "/api/inventory/branches/sucursal-a/lines/amoxicilina"

func TestInventoryAPI_AdjustReserveRelease(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	cashier := tokenForRole(t, apphttp.RoleCashier)

	resp, raw := call(t, app, http.MethodPut, linePath, admin, map[string]any{
		"quantity_on_hand": 20, "reorder_level": 25, "expiry_date": "2025-04-01", "cost_price": "1500.50", "batch_number": "L1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	line := decode[dto.InventoryLineResponse](t, raw)
	assert.Equal(t, int64(20), line.QuantityOnHand)
	assert.Equal(t, int64(20), line.QuantityAvailable)
	assert.True(t, line.LowStock)
	require.NotNil(t, line.ExpiryDate)
	assert.Equal(t, "2025-04-01", *line.ExpiryDate)

	resp, raw = call(t, app, http.MethodPost, linePath+"/reserve", cashier, map[string]any{"quantity": 8})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	line = decode[dto.InventoryLineResponse](t, raw)
	assert.Equal(t, int64(8), line.QuantityReserved)
	assert.Equal(t, int64(12), line.QuantityAvailable)

	resp, raw = call(t, app, http.MethodPost, linePath+"/reserve", cashier, map[string]any{"quantity": 13})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPost, linePath+"/release", cashier, map[string]any{"quantity": 9})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "OVER_RELEASE", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPost, linePath+"/release", cashier, map[string]any{"quantity": 1.5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPost, linePath+"/release", cashier, map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodGet, linePath+"/ledger?limit=2", cashier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	ledger := decode[dto.ListResponse[dto.LedgerEntryResponse]](t, raw)
	require.Equal(t, 2, ledger.Count)
	assert.Equal(t, "reserve", ledger.Items[0].Kind)
	assert.Equal(t, "adjustment", ledger.Items[1].Kind)
}

func TestInventoryAPI_RolesAndErrors(t *testing.T) {
	app := newAPI(t)
	cashier := tokenForRole(t, apphttp.RoleCashier)
	pharmacist := tokenForRole(t, apphttp.RolePharmacist)

	resp, _ := call(t, app, http.MethodPut, linePath, cashier, map[string]any{"quantity_on_hand": 5})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "el cajero no ajusta existencias")

	resp, _ = call(t, app, http.MethodGet, linePath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := call(t, app, http.MethodGet, linePath, cashier, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPut, linePath, pharmacist, map[string]any{"quantity_on_hand": 5, "expiry_date": "01/04/2025"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, raw).Code)

	resp, _ = call(t, app, http.MethodPut, linePath, pharmacist, map[string]any{"quantity_on_hand": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, app, http.MethodDelete, linePath, pharmacist, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo admin desactiva líneas")

	resp, raw = call(t, app, http.MethodDelete, linePath, tokenForRole(t, apphttp.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "inactive", decode[dto.InventoryLineResponse](t, raw).Status)

	// otro tenant no ve la línea
	resp, _ = call(t, app, http.MethodGet, linePath, tokenFor(t, "otro-tenant", apphttp.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryAPI_Reports(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	base := "/api/inventory/branches/sucursal-a"

	for product, body := range map[string]map[string]any{
		"p1": {"quantity_on_hand": 3, "reorder_level": 5, "cost_price": "10", "expiry_date": "2025-03-20"},
		"p2": {"quantity_on_hand": 50, "reorder_level": 5, "cost_price": "2", "expiry_date": "2025-12-31"},
		"p3": {"quantity_on_hand": 0, "reorder_level": 1},
	} {
		resp, raw := call(t, app, http.MethodPut, base+"/lines/"+product, admin, body)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	}

	resp, raw := call(t, app, http.MethodGet, base+"/low-stock", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[dto.ListResponse[dto.InventoryLineResponse]](t, raw)
	require.Equal(t, 2, low.Count)
	assert.Equal(t, "p3", low.Items[0].ProductID)
	assert.Equal(t, "p1", low.Items[1].ProductID)

	resp, raw = call(t, app, http.MethodGet, base+"/expiring?days=10", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	exp := decode[dto.ListResponse[dto.InventoryLineResponse]](t, raw)
	require.Equal(t, 1, exp.Count)
	assert.Equal(t, "p1", exp.Items[0].ProductID)

	resp, _ = call(t, app, http.MethodGet, base+"/expiring?days=-1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = call(t, app, http.MethodGet, base+"/stats", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[dto.BranchStatsDTO](t, raw)
	assert.Equal(t, 3, stats.TotalLines)
	assert.Equal(t, "130", stats.TotalValue.String())
	assert.Equal(t, 2, stats.LowStockCount)
	assert.Equal(t, 1, stats.OutOfStockCount)
	assert.Equal(t, 1, stats.ExpiringSoonCount)

	resp, raw = call(t, app, http.MethodGet, base+"/replenishment", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	rep := decode[dto.ListResponse[dto.ReplenishmentSuggestionDTO]](t, raw)
	require.Equal(t, 2, rep.Count)
	assert.Equal(t, "p3", rep.Items[0].ProductID)
	assert.Equal(t, int64(2), rep.Items[0].SuggestedOrderQty)
	assert.Equal(t, "p1", rep.Items[1].ProductID)
	assert.Equal(t, int64(5), rep.Items[1].SuggestedOrderQty)
	require.NotNil(t, rep.Items[1].EstimatedOrderCost)
	assert.Equal(t, "50", rep.Items[1].EstimatedOrderCost.String())

	resp, _ = call(t, app, http.MethodGet, base+"/replenishment", tokenForRole(t, apphttp.RoleCashier), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryAPI_IdsSobrevivenPeticionesPosteriores(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)

	products := []string{"p1", "acetaminofen-500", "p3", "ibuprofeno"}
	for i, product := range products {
		path := "/api/inventory/branches/sucursal-a/lines/" + product
		resp, raw := call(t, app, http.MethodPut, path, admin, map[string]any{"quantity_on_hand": i, "reorder_level": 10})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	}
	// otra sucursal con rutas de distinto largo para pisar el buffer
	resp, raw := call(t, app, http.MethodPut, "/api/inventory/branches/sucursal-centro-norte/lines/zz", admin, map[string]any{"quantity_on_hand": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/branches/sucursal-a/low-stock", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[dto.ListResponse[dto.InventoryLineResponse]](t, raw)
	require.Equal(t, len(products), low.Count)
	for i, item := range low.Items {
		assert.Equal(t, products[i], item.ProductID, "orden por existencia ascendente")
		assert.Equal(t, "sucursal-a", item.BranchID)
	}

	for i, product := range products {
		resp, raw := call(t, app, http.MethodGet, "/api/inventory/branches/sucursal-a/lines/"+product, admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		line := decode[dto.InventoryLineResponse](t, raw)
		assert.Equal(t, product, line.ProductID)
		assert.Equal(t, int64(i), line.QuantityOnHand)
	}
}

func TestTransferAPI(t *testing.T) {
	app := newAPI(t)
	pharmacist := tokenForRole(t, apphttp.RolePharmacist)

	resp, raw := call(t, app, http.MethodPut, linePath, pharmacist, map[string]any{"quantity_on_hand": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", pharmacist, map[string]any{
		"source_branch_id": "sucursal-a", "destination_branch_id": "sucursal-b", "product_id": "amoxicilina", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	tr := decode[dto.StockTransferResponse](t, raw)
	assert.Equal(t, "TRF202503140001", tr.TransferNumber)
	assert.Equal(t, int64(10), tr.TotalQuantity)
	assert.Equal(t, testUserID, tr.RequestedBy)

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/branches/sucursal-b/lines/amoxicilina", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(10), decode[dto.InventoryLineResponse](t, raw).QuantityOnHand)

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/transfers/"+tr.ID, pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, tr.TransferNumber, decode[dto.StockTransferResponse](t, raw).TransferNumber)

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/transfers?date=2025-03-14", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[dto.ListResponse[dto.StockTransferResponse]](t, raw).Count)

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/transfers?date=2025-03-13", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[dto.ListResponse[dto.StockTransferResponse]](t, raw).Count)

	resp, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", pharmacist, map[string]any{
		"source_branch_id": "sucursal-a", "destination_branch_id": "sucursal-b", "product_id": "amoxicilina", "quantity": 11,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)

	resp, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", pharmacist, map[string]any{
		"source_branch_id": "sucursal-a", "destination_branch_id": "sucursal-a", "product_id": "amoxicilina", "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, raw).Code)

	resp, _ = call(t, app, http.MethodPost, "/api/inventory/transfers", tokenForRole(t, apphttp.RoleCashier), map[string]any{
		"source_branch_id": "sucursal-a", "destination_branch_id": "sucursal-b", "product_id": "amoxicilina", "quantity": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = call(t, app, http.MethodGet, "/api/inventory/transfers/no-existe", pharmacist, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, raw).Code)
}
