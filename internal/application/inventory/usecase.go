package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-inventario/internal/application/dto"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultExpiryWindowDays ventana de "por vencer" usada en Stats.
const DefaultExpiryWindowDays = 30

// Config parámetros del motor de inventario.
type Config struct {
	OperationTimeout time.Duration // límite de cada operación contra el almacén (0 = sin límite propio)
	ExpiryWindowDays int           // ventana de Stats; 0 = DefaultExpiryWindowDays
}

func (c Config) expiryWindow() int {
	if c.ExpiryWindowDays <= 0 {
		return DefaultExpiryWindowDays
	}
	return c.ExpiryWindowDays
}

// InventoryUseCase motor contable de inventario por sucursal: ajustes, reservas, liberaciones y reportes.
// Toda mutación bloquea la línea (SELECT FOR UPDATE o equivalente) y escribe línea + kardex en una sola transacción.
type InventoryUseCase struct {
	txRunner   TxRunner
	lineRepo   repository.InventoryLineRepository
	ledgerRepo repository.StockLedgerRepository
	cache      StatsCache
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time
}

// NewInventoryUseCase construye el caso de uso. lineRepo y ledgerRepo se usan solo para lecturas.
func NewInventoryUseCase(
	txRunner TxRunner,
	lineRepo repository.InventoryLineRepository,
	ledgerRepo repository.StockLedgerRepository,
	cfg Config,
	log zerolog.Logger,
) *InventoryUseCase {
	return &InventoryUseCase{
		txRunner:   txRunner,
		lineRepo:   lineRepo,
		ledgerRepo: ledgerRepo,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// WithStatsCache habilita la caché de estadísticas.
func (uc *InventoryUseCase) WithStatsCache(cache StatsCache) *InventoryUseCase {
	uc.cache = cache
	return uc
}

// SetClock reemplaza el reloj (pruebas).
func (uc *InventoryUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// AdjustInput entrada de Adjust. Los campos puntero solo se aplican si vienen informados.
type AdjustInput struct {
	TenantID     string
	BranchID     string
	ProductID    string
	ActorID      string
	NewOnHand    int64 // negativos se recortan a cero
	Reason       string
	ReorderLevel *int64
	ExpiryDate   *time.Time
	BatchNumber  *string
	CostPrice    *decimal.Decimal
}

// ReservationInput entrada de Reserve y Release.
type ReservationInput struct {
	TenantID  string
	BranchID  string
	ProductID string
	ActorID   string
	Quantity  int64
	Reason    string
}

func lineKey(tenantID, branchID, productID string) (entity.LineKey, error) {
	if tenantID == "" || branchID == "" || productID == "" {
		return entity.LineKey{}, fmt.Errorf("%w: tenant, sucursal y producto son requeridos", domain.ErrInvalidInput)
	}
	return entity.LineKey{TenantID: tenantID, BranchID: branchID, ProductID: productID}, nil
}

// GetLine devuelve la línea de inventario o ErrNotFound.
func (uc *InventoryUseCase) GetLine(ctx context.Context, tenantID, branchID, productID string) (*entity.InventoryLine, error) {
	key, err := lineKey(tenantID, branchID, productID)
	if err != nil {
		return nil, err
	}
	line, err := uc.lineRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrNotFound
	}
	return line, nil
}

// Adjust fija la existencia física de la línea (conteo, corrección). Crea la línea si no existe.
// Una existencia negativa se recorta a cero y se registra en el log como advertencia.
func (uc *InventoryUseCase) Adjust(ctx context.Context, in AdjustInput) (*entity.InventoryLine, error) {
	key, err := lineKey(in.TenantID, in.BranchID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return nil, fmt.Errorf("%w: punto de reorden negativo", domain.ErrInvalidQuantity)
	}
	if in.CostPrice != nil && in.CostPrice.IsNegative() {
		return nil, fmt.Errorf("%w: costo negativo", domain.ErrInvalidInput)
	}

	ctx, cancel := boundedContext(ctx, uc.cfg.OperationTimeout)
	defer cancel()

	now := uc.now()
	var (
		result  *entity.InventoryLine
		before  int64
		created bool
		clamped bool
	)
	err = uc.txRunner.Run(ctx, func(
		lineRepo repository.InventoryLineRepository,
		ledgerRepo repository.StockLedgerRepository,
		_ repository.StockTransferRepository,
	) error {
		line, isNew, err := lineRepo.GetOrInitForUpdate(ctx, key, now)
		if err != nil {
			return err
		}
		created = isNew
		before = line.QuantityOnHand
		clamped = line.SetOnHand(in.NewOnHand)
		if in.ReorderLevel != nil {
			line.ReorderLevel = *in.ReorderLevel
		}
		if in.ExpiryDate != nil {
			d := *in.ExpiryDate
			line.ExpiryDate = &d
		}
		if in.BatchNumber != nil {
			line.BatchNumber = *in.BatchNumber
		}
		if in.CostPrice != nil {
			p := *in.CostPrice
			line.CostPrice = &p
		}
		line.UpdatedAt = now
		if err := line.Validate(); err != nil {
			return err
		}
		if err := lineRepo.Upsert(ctx, line); err != nil {
			return err
		}
		entry := entity.NewLedgerEntry(uuid.New().String(), line, entity.LedgerKindAdjustment, line.QuantityOnHand-before, before, in.ActorID, in.Reason, now)
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		uc.log.Error().Err(err).
			Str("tenant_id", in.TenantID).Str("branch_id", in.BranchID).Str("product_id", in.ProductID).
			Int64("quantity", in.NewOnHand).Str("actor_id", in.ActorID).
			Msg("ajuste de inventario fallido")
		return nil, err
	}

	if clamped {
		// TODO: decidir con producto si una existencia negativa debe rechazarse en lugar de recortarse.
		uc.log.Warn().
			Str("tenant_id", in.TenantID).Str("branch_id", in.BranchID).Str("product_id", in.ProductID).
			Int64("requested", in.NewOnHand).Str("actor_id", in.ActorID).
			Msg("ajuste con existencia negativa recortado a cero")
	}
	uc.log.Info().
		Str("tenant_id", in.TenantID).Str("branch_id", in.BranchID).Str("product_id", in.ProductID).
		Int64("on_hand_before", before).Int64("on_hand", result.QuantityOnHand).
		Int64("reserved", result.QuantityReserved).Bool("created", created).
		Str("actor_id", in.ActorID).Str("reason", in.Reason).
		Msg("inventario ajustado")
	uc.invalidateStats(ctx, in.TenantID, in.BranchID)
	return result, nil
}

// Reserve aparta unidades disponibles. La verificación y el incremento ocurren con la línea bloqueada,
// así dos reservas concurrentes nunca superan juntas lo disponible.
func (uc *InventoryUseCase) Reserve(ctx context.Context, in ReservationInput) (*entity.InventoryLine, error) {
	return uc.mutateReservation(ctx, in, entity.LedgerKindReserve)
}

// Release libera unidades reservadas. Falla con ErrOverRelease si supera lo reservado.
func (uc *InventoryUseCase) Release(ctx context.Context, in ReservationInput) (*entity.InventoryLine, error) {
	return uc.mutateReservation(ctx, in, entity.LedgerKindRelease)
}

func (uc *InventoryUseCase) mutateReservation(ctx context.Context, in ReservationInput, kind string) (*entity.InventoryLine, error) {
	key, err := lineKey(in.TenantID, in.BranchID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := requirePositive(in.Quantity); err != nil {
		return nil, err
	}

	ctx, cancel := boundedContext(ctx, uc.cfg.OperationTimeout)
	defer cancel()

	now := uc.now()
	var result *entity.InventoryLine
	err = uc.txRunner.Run(ctx, func(
		lineRepo repository.InventoryLineRepository,
		ledgerRepo repository.StockLedgerRepository,
		_ repository.StockTransferRepository,
	) error {
		line, err := lineRepo.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, key)
		}
		delta := in.Quantity
		if kind == entity.LedgerKindReserve {
			if !line.IsActive() {
				return fmt.Errorf("%w: línea %s inactiva", domain.ErrNotFound, key)
			}
			err = line.Reserve(in.Quantity)
		} else {
			delta = -in.Quantity
			err = line.Release(in.Quantity)
		}
		if err != nil {
			return err
		}
		line.UpdatedAt = now
		if err := line.Validate(); err != nil {
			return err
		}
		if err := lineRepo.Upsert(ctx, line); err != nil {
			return err
		}
		entry := entity.NewLedgerEntry(uuid.New().String(), line, kind, delta, line.QuantityOnHand, in.ActorID, in.Reason, now)
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		ev := uc.log.Error()
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrOverRelease) || errors.Is(err, domain.ErrNotFound) {
			ev = uc.log.Warn()
		}
		ev.Err(err).
			Str("tenant_id", in.TenantID).Str("branch_id", in.BranchID).Str("product_id", in.ProductID).
			Int64("quantity", in.Quantity).Str("actor_id", in.ActorID).Str("kind", kind).
			Msg("operación de reserva rechazada")
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", in.TenantID).Str("branch_id", in.BranchID).Str("product_id", in.ProductID).
		Int64("quantity", in.Quantity).Int64("reserved", result.QuantityReserved).
		Int64("available", result.QuantityAvailable).Str("actor_id", in.ActorID).Str("kind", kind).
		Msg("reserva actualizada")
	uc.invalidateStats(ctx, in.TenantID, in.BranchID)
	return result, nil
}

// Deactivate retira la línea (status inactive). Nunca se borra; sale de reportes y no admite reservas.
func (uc *InventoryUseCase) Deactivate(ctx context.Context, tenantID, branchID, productID, actorID string) (*entity.InventoryLine, error) {
	key, err := lineKey(tenantID, branchID, productID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := boundedContext(ctx, uc.cfg.OperationTimeout)
	defer cancel()

	var result *entity.InventoryLine
	err = uc.txRunner.Run(ctx, func(
		lineRepo repository.InventoryLineRepository,
		_ repository.StockLedgerRepository,
		_ repository.StockTransferRepository,
	) error {
		line, err := lineRepo.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, key)
		}
		line.Status = entity.LineStatusInactive
		line.UpdatedAt = uc.now()
		if err := lineRepo.Upsert(ctx, line); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("tenant_id", tenantID).Str("branch_id", branchID).Str("product_id", productID).
		Int64("on_hand", result.QuantityOnHand).Str("actor_id", actorID).
		Msg("línea de inventario desactivada")
	uc.invalidateStats(ctx, tenantID, branchID)
	return result, nil
}

// History devuelve el kardex de la línea, más reciente primero.
func (uc *InventoryUseCase) History(ctx context.Context, tenantID, branchID, productID string, limit int) ([]*entity.LedgerEntry, error) {
	key, err := lineKey(tenantID, branchID, productID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.ledgerRepo.ListByLine(ctx, key, limit)
}

// LowStock líneas con punto de reorden habilitado y existencia <= reorden; las más críticas primero.
func (uc *InventoryUseCase) LowStock(ctx context.Context, tenantID, branchID string) ([]*entity.InventoryLine, error) {
	if tenantID == "" || branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.lineRepo.ListLowStock(ctx, tenantID, branchID)
}

// Expiring líneas con existencia que vencen dentro de days días (incluye vencidas), por fecha ascendente.
func (uc *InventoryUseCase) Expiring(ctx context.Context, tenantID, branchID string, days int) ([]*entity.InventoryLine, error) {
	if tenantID == "" || branchID == "" || days < 0 {
		return nil, domain.ErrInvalidInput
	}
	until := uc.now().AddDate(0, 0, days)
	return uc.lineRepo.ListExpiring(ctx, tenantID, branchID, until)
}

// Stats resumen de la sucursal calculado al momento de la llamada (o desde la caché si está habilitada).
func (uc *InventoryUseCase) Stats(ctx context.Context, tenantID, branchID string) (*dto.BranchStatsDTO, error) {
	if tenantID == "" || branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	var (
		version  int64
		storable bool
	)
	if uc.cache != nil {
		cached, v, ok, err := uc.cache.Get(ctx, tenantID, branchID)
		switch {
		case err != nil:
			uc.log.Warn().Err(err).Str("tenant_id", tenantID).Str("branch_id", branchID).Msg("lectura de caché de estadísticas")
		case ok:
			return cached, nil
		default:
			version, storable = v, true
		}
	}

	lines, err := uc.lineRepo.ListByBranch(ctx, tenantID, branchID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	window := uc.cfg.expiryWindow()
	until := now.AddDate(0, 0, window)
	stats := &dto.BranchStatsDTO{
		TenantID:         tenantID,
		BranchID:         branchID,
		TotalValue:       decimal.Zero,
		ExpiryWindowDays: window,
		GeneratedAt:      now,
	}
	for _, l := range lines {
		if !l.IsActive() {
			continue
		}
		stats.TotalLines++
		if v, ok := l.StockValue(); ok {
			stats.TotalValue = stats.TotalValue.Add(v)
		}
		if l.IsLowStock() {
			stats.LowStockCount++
		}
		if l.IsOutOfStock() {
			stats.OutOfStockCount++
		}
		if l.ExpiresBy(until) {
			stats.ExpiringSoonCount++
		}
	}

	if storable {
		if err := uc.cache.Set(ctx, tenantID, branchID, version, stats); err != nil {
			uc.log.Warn().Err(err).Str("tenant_id", tenantID).Str("branch_id", branchID).Msg("escritura de caché de estadísticas")
		}
	}
	return stats, nil
}

func (uc *InventoryUseCase) invalidateStats(ctx context.Context, tenantID string, branchIDs ...string) {
	invalidateStats(ctx, uc.cache, uc.log, tenantID, branchIDs...)
}

// invalidateStats se llama después del commit; un fallo de caché no revierte la operación.
func invalidateStats(ctx context.Context, cache StatsCache, log zerolog.Logger, tenantID string, branchIDs ...string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(context.WithoutCancel(ctx), tenantID, branchIDs...); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Strs("branch_ids", branchIDs).Msg("invalidación de caché de estadísticas")
	}
}
