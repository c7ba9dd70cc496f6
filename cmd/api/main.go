package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/farmacia-inventario/internal/application/inventory"
	"github.com/jhoicas/farmacia-inventario/internal/domain/repository"
	"github.com/jhoicas/farmacia-inventario/internal/infrastructure/memory"
	"github.com/jhoicas/farmacia-inventario/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/farmacia-inventario/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/farmacia-inventario/internal/interfaces/http"
	"github.com/jhoicas/farmacia-inventario/pkg/config"
	"github.com/jhoicas/farmacia-inventario/pkg/logger"
)

// store repositorios de lectura y runner transaccional del almacén elegido.
type store struct {
	txRunner     inventory.TxRunner
	lineRepo     repository.InventoryLineRepository
	ledgerRepo   repository.StockLedgerRepository
	transferRepo repository.StockTransferRepository
	ping         func(ctx context.Context) error
	close        func()
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store, error) {
	if cfg.Inventory.StoreDriver == config.StoreMemory {
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &store{
			txRunner:     memory.NewTxRunner(s),
			lineRepo:     s.LineRepository(),
			ledgerRepo:   s.LedgerRepository(),
			transferRepo: s.TransferRepository(),
			ping:         func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &store{
		txRunner:     postgres.NewTxRunner(pool),
		lineRepo:     postgres.NewInventoryLineRepository(pool),
		ledgerRepo:   postgres.NewStockLedgerRepository(pool),
		transferRepo: postgres.NewStockTransferRepository(pool),
		ping:         pool.Ping,
		close:        pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Inventory.StoreDriver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("apertura del almacén de inventario")
	}
	defer st.close()

	invCfg := inventory.Config{
		OperationTimeout: cfg.Inventory.OperationTimeout,
		ExpiryWindowDays: cfg.Inventory.ExpiryWindowDays,
	}
	inventoryUC := inventory.NewInventoryUseCase(st.txRunner, st.lineRepo, st.ledgerRepo, invCfg, log.Component("inventory"))
	transferUC := inventory.NewTransferUseCase(st.txRunner, st.transferRepo, invCfg, log.Component("transfers"))

	// Caché de estadísticas: opcional, solo con REDIS_ADDR.
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, estadísticas sin caché")
		} else {
			defer client.Close()
			cache := infraredis.NewStatsCache(client, cfg.Redis.StatsTTL)
			inventoryUC.WithStatsCache(cache)
			transferUC.WithStatsCache(cache)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Farmacia Inventario API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := st.ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory:     inventoryUC,
		Transfers:     transferUC,
		Replenishment: inventory.NewReplenishmentUseCase(st.lineRepo),
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
