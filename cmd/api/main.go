package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civicgrid/grievance-engine/internal/api/http"
	"github.com/civicgrid/grievance-engine/internal/api/http/handlers"
	"github.com/civicgrid/grievance-engine/internal/auth"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/observability"
	"github.com/civicgrid/grievance-engine/internal/persistence"
	"github.com/civicgrid/grievance-engine/internal/reporting"
	"github.com/civicgrid/grievance-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required for the reporting API")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	ticketStore := store.NewPostgresStore(pool)
	reports := reporting.NewService(reporting.NewCache(ticketStore, cfg.Reporting.CacheTTL(), logger))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	adminHash, err := auth.HashPassword(cfg.Auth.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash admin password", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth.AdminUsername, adminHash),
		Reports:        handlers.NewReportsHandler(reports),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, cfg.Auth.AdminUsername),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
