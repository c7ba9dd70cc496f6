package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-inventario/internal/domain"
	"github.com/jhoicas/farmacia-inventario/internal/domain/entity"
	invdomain "github.com/jhoicas/farmacia-inventario/internal/domain/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
	"github.com/rs/zerolog"
)

// TransferUseCase coordina traslados atómicos entre sucursales: descuenta en origen, suma en destino,
// numera el traslado y deja encabezado, ítems y kardex en la misma transacción.
type TransferUseCase struct {
	txRunner     TxRunner
	transferRepo repository.StockTransferRepository
	cache        StatsCache
	cfg          Config
	log          zerolog.Logger
	now          func() time.Time
}

// NewTransferUseCase construye el caso de uso. transferRepo se usa solo para consultas.
func NewTransferUseCase(
	txRunner TxRunner,
	transferRepo repository.StockTransferRepository,
	cfg Config,
	log zerolog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		txRunner:     txRunner,
		transferRepo: transferRepo,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

// WithStatsCache habilita la invalidación de la caché de estadísticas tras cada traslado.
func (uc *TransferUseCase) WithStatsCache(cache StatsCache) *TransferUseCase {
	uc.cache = cache
	return uc
}

// SetClock reemplaza el reloj (pruebas).
func (uc *TransferUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// TransferItemInput producto y cantidad a trasladar.
type TransferItemInput struct {
	ProductID string
	Quantity  int64
}

// TransferInput entrada de Transfer. Para un solo producto basta ProductID y Quantity;
// si Items viene informado, tiene prioridad.
type TransferInput struct {
	TenantID            string
	SourceBranchID      string
	DestinationBranchID string
	ProductID           string
	Quantity            int64
	Items               []TransferItemInput
	Notes               string
	ActorID             string
	ApproverID          string // vacío = el mismo solicitante
}

func (in TransferInput) items() []TransferItemInput {
	if len(in.Items) > 0 {
		return in.Items
	}
	return []TransferItemInput{{ProductID: in.ProductID, Quantity: in.Quantity}}
}

func (in TransferInput) productIDs() []string {
	items := in.items()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func validateTransfer(in TransferInput) ([]TransferItemInput, error) {
	if in.TenantID == "" || in.SourceBranchID == "" || in.DestinationBranchID == "" {
		return nil, fmt.Errorf("%w: tenant, sucursal origen y destino son requeridos", domain.ErrInvalidInput)
	}
	if in.SourceBranchID == in.DestinationBranchID {
		return nil, fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
	}
	items := in.items()
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, fmt.Errorf("%w: producto requerido", domain.ErrInvalidInput)
		}
		if _, dup := seen[it.ProductID]; dup {
			return nil, fmt.Errorf("%w: producto %s repetido", domain.ErrInvalidInput, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		if err := requirePositive(it.Quantity); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// lockRequest una línea a bloquear; las de destino se crean en cero si no existen.
type lockRequest struct {
	key         entity.LineKey
	destination bool
}

// lockTransferLines bloquea todas las líneas del traslado en orden ascendente de clave,
// de modo que dos traslados en sentidos opuestos entre las mismas sucursales no se bloqueen mutuamente.
func lockTransferLines(ctx context.Context, lineRepo repository.InventoryLineRepository, reqs []lockRequest, now time.Time) (map[entity.LineKey]*entity.InventoryLine, map[entity.LineKey]bool, error) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].key.Less(reqs[j].key) })
	lines := make(map[entity.LineKey]*entity.InventoryLine, len(reqs))
	created := make(map[entity.LineKey]bool)
	for _, r := range reqs {
		if !r.destination {
			line, err := lineRepo.GetForUpdate(ctx, r.key)
			if err != nil {
				return nil, nil, err
			}
			if line == nil || !line.IsActive() {
				return nil, nil, fmt.Errorf("%w: no hay existencia de %s", domain.ErrInsufficientStock, r.key)
			}
			lines[r.key] = line
			continue
		}
		line, isNew, err := lineRepo.GetOrInitForUpdate(ctx, r.key, now)
		if err != nil {
			return nil, nil, err
		}
		lines[r.key] = line
		created[r.key] = isNew
	}
	return lines, created, nil
}

// Transfer traslada stock de una sucursal a otra en una sola unidad de trabajo.
// Errores de negocio (ErrInsufficientStock, ErrInvalidInput, ErrInvalidQuantity) se devuelven tal cual;
// cualquier otro fallo se reporta como ErrTransferFailed después del rollback.
func (uc *TransferUseCase) Transfer(ctx context.Context, in TransferInput) (*entity.StockTransfer, error) {
	items, err := validateTransfer(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := boundedContext(ctx, uc.cfg.OperationTimeout)
	defer cancel()

	now := uc.now()
	day := invdomain.TransferDay(now)
	approver := in.ApproverID
	if approver == "" {
		approver = in.ActorID
	}

	var transfer *entity.StockTransfer
	err = uc.txRunner.Run(ctx, func(
		lineRepo repository.InventoryLineRepository,
		ledgerRepo repository.StockLedgerRepository,
		transferRepo repository.StockTransferRepository,
	) error {
		reqs := make([]lockRequest, 0, 2*len(items))
		for _, it := range items {
			reqs = append(reqs,
				lockRequest{key: entity.LineKey{TenantID: in.TenantID, BranchID: in.SourceBranchID, ProductID: it.ProductID}},
				lockRequest{key: entity.LineKey{TenantID: in.TenantID, BranchID: in.DestinationBranchID, ProductID: it.ProductID}, destination: true},
			)
		}
		lines, created, err := lockTransferLines(ctx, lineRepo, reqs, now)
		if err != nil {
			return err
		}

		t := &entity.StockTransfer{
			ID:                  uuid.New().String(),
			TenantID:            in.TenantID,
			SourceBranchID:      in.SourceBranchID,
			DestinationBranchID: in.DestinationBranchID,
			Status:              entity.TransferStatusCompleted,
			RequestedBy:         in.ActorID,
			ApprovedBy:          approver,
			Notes:               in.Notes,
			TransferredAt:       now,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		type movement struct {
			src       *entity.InventoryLine
			dst       *entity.InventoryLine
			srcBefore int64
			dstBefore int64
			qt        int64
		}
		movements := make([]movement, 0, len(items))

		for i, it := range items {
			src := lines[entity.LineKey{TenantID: in.TenantID, BranchID: in.SourceBranchID, ProductID: it.ProductID}]
			dstKey := entity.LineKey{TenantID: in.TenantID, BranchID: in.DestinationBranchID, ProductID: it.ProductID}
			dst := lines[dstKey]

			item := entity.StockTransferItem{
				ID:                  uuid.New().String(),
				TransferID:          t.ID,
				Position:            i + 1,
				ProductID:           it.ProductID,
				SourceLineID:        src.ID,
				DestinationLineID:   dst.ID,
				QuantityRequested:   it.Quantity,
				QuantityApproved:    it.Quantity,
				QuantityTransferred: it.Quantity,
			}
			snap := src.Clone()
			item.BatchNumber = snap.BatchNumber
			item.ExpiryDate = snap.ExpiryDate
			item.CostPrice = snap.CostPrice

			m := movement{src: src, dst: dst, srcBefore: src.QuantityOnHand, dstBefore: dst.QuantityOnHand, qt: it.Quantity}
			if err := src.Debit(it.Quantity); err != nil {
				return err
			}
			src.UpdatedAt = now
			if err := src.Validate(); err != nil {
				return err
			}
			if err := lineRepo.Upsert(ctx, src); err != nil {
				return err
			}

			if created[dstKey] {
				dst.BatchNumber = snap.BatchNumber
				dst.ExpiryDate = snap.ExpiryDate
			}
			dst.CostPrice = invdomain.IncomingCost(dst.QuantityOnHand, dst.CostPrice, it.Quantity, snap.CostPrice)
			dst.Status = entity.LineStatusActive
			dst.Credit(it.Quantity)
			dst.UpdatedAt = now
			if err := dst.Validate(); err != nil {
				return err
			}
			if err := lineRepo.Upsert(ctx, dst); err != nil {
				return err
			}

			t.Items = append(t.Items, item)
			movements = append(movements, m)
		}

		seq, err := transferRepo.NextSequence(ctx, in.TenantID, day)
		if err != nil {
			return fmt.Errorf("next transfer sequence: %w", err)
		}
		t.TransferNumber = invdomain.FormatTransferNumber(day, seq)
		if err := transferRepo.Create(ctx, t); err != nil {
			return err
		}

		for _, m := range movements {
			out := entity.NewLedgerEntry(uuid.New().String(), m.src, entity.LedgerKindTransferOut, -m.qt, m.srcBefore, in.ActorID, t.TransferNumber, now)
			out.TransferID = t.ID
			if err := ledgerRepo.Append(ctx, out); err != nil {
				return err
			}
			inEntry := entity.NewLedgerEntry(uuid.New().String(), m.dst, entity.LedgerKindTransferIn, m.qt, m.dstBefore, in.ActorID, t.TransferNumber, now)
			inEntry.TransferID = t.ID
			if err := ledgerRepo.Append(ctx, inEntry); err != nil {
				return err
			}
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, uc.transferError(in, err)
	}

	uc.log.Info().
		Str("tenant_id", in.TenantID).
		Str("source_branch_id", in.SourceBranchID).Str("destination_branch_id", in.DestinationBranchID).
		Strs("product_ids", in.productIDs()).Int64("quantity", transfer.TotalQuantity()).
		Str("transfer_number", transfer.TransferNumber).Str("transfer_id", transfer.ID).
		Str("actor_id", in.ActorID).
		Msg("traslado registrado")
	invalidateStats(ctx, uc.cache, uc.log, in.TenantID, in.SourceBranchID, in.DestinationBranchID)
	return transfer, nil
}

func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrNotFound)
}

// transferError registra el intento fallido y clasifica el error.
func (uc *TransferUseCase) transferError(in TransferInput, err error) error {
	var total int64
	for _, it := range in.items() {
		total += it.Quantity
	}
	business := isBusinessError(err)
	ev := uc.log.Error()
	if business {
		ev = uc.log.Warn()
	}
	ev.Err(err).
		Str("tenant_id", in.TenantID).
		Str("source_branch_id", in.SourceBranchID).Str("destination_branch_id", in.DestinationBranchID).
		Strs("product_ids", in.productIDs()).Int64("quantity", total).
		Str("actor_id", in.ActorID).
		Msg("traslado fallido")
	if business {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
}

// GetTransfer devuelve un traslado con sus ítems o ErrNotFound.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, tenantID, id string) (*entity.StockTransfer, error) {
	if tenantID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	t, err := uc.transferRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// ListTransfers lista los traslados del día UTC de day, por número ascendente.
func (uc *TransferUseCase) ListTransfers(ctx context.Context, tenantID string, day time.Time) ([]*entity.StockTransfer, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.transferRepo.ListByDate(ctx, tenantID, invdomain.TransferDay(day))
}
