package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/directory"
	"github.com/civicgrid/grievance-engine/internal/events"
	"github.com/civicgrid/grievance-engine/internal/gate"
	"github.com/civicgrid/grievance-engine/internal/geocode"
	"github.com/civicgrid/grievance-engine/internal/intake"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/observability"
	"github.com/civicgrid/grievance-engine/internal/persistence"
	"github.com/civicgrid/grievance-engine/internal/store"
	"github.com/civicgrid/grievance-engine/internal/transport"
	"github.com/civicgrid/grievance-engine/internal/triage"
	"github.com/civicgrid/grievance-engine/internal/worker"
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
		logger.Fatal("POSTGRES_DSN is required for the intake engine")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	ticketStore := store.NewPostgresStore(pool)

	var limiter gate.RateLimiter
	var duplicates gate.DuplicateDetector
	if cfg.Intake.UseRedisGates {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		limiter = gate.NewRedisRateLimiter(redis.Client, cfg.Intake.RateLimitWindow(), cfg.Intake.RateLimitMax)
		duplicates = gate.NewRedisDuplicateDetector(redis.Client)
	} else {
		limiter = gate.NewMemoryRateLimiter(cfg.Intake.RateLimitWindow(), cfg.Intake.RateLimitMax)
		duplicates = gate.NewMemoryDuplicateDetector()
	}

	telegram, err := transport.NewTelegram(cfg.Telegram, logger)
	if err != nil {
		logger.Fatal("failed to init telegram transport", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	runner := worker.NewRunner(logger, 30*time.Second)

	dispatcher := events.NewInMemoryDispatcher()
	events.NewAuditTrail(dispatcher, logger).RegisterHandlers()

	engine := intake.NewEngine(intake.Dependencies{
		Limiter:    limiter,
		Duplicates: duplicates,
		Triage:     triage.NewGate(triage.NewGeminiClient(cfg.Gemini)),
		Lifecycle: lifecycle.New(lifecycle.Dependencies{
			Store:          ticketStore,
			Directory:      directory.New(ticketStore, cfg.Intake.DirectoryTTL(), logger),
			Geocoder:       geocode.NewNominatimGeocoder(cfg.Geocode),
			Runner:         runner,
			Dispatcher:     dispatcher,
			Messenger:      telegram,
			Metrics:        metrics,
			Logger:         logger,
			OfficerChatID:  cfg.Telegram.OfficerChatID,
			GeocodeTimeout: cfg.Geocode.Timeout(),
		}),
		Messenger: telegram,
		Validator: intake.LocationValidator{ThresholdMeters: cfg.Intake.AccuracyThresholdM},
		Metrics:   metrics,
		Logger:    logger,
	})

	go telegram.Run(ctx, engine)
	logger.Info("intake engine started")

	waitForShutdown(logger)
	cancel()
	runner.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
