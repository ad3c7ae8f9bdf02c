package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/application/service"
	"github.com/corporatepay/approval-engine/internal/config"
	"github.com/corporatepay/approval-engine/internal/domain/policy"
	"github.com/corporatepay/approval-engine/internal/infrastructure/external/inapp"
	"github.com/corporatepay/approval-engine/internal/infrastructure/external/lark"
	"github.com/corporatepay/approval-engine/internal/infrastructure/persistence/repository"
	"github.com/corporatepay/approval-engine/internal/infrastructure/persistence/sqlite"
	"github.com/corporatepay/approval-engine/internal/infrastructure/worker"
	httpserver "github.com/corporatepay/approval-engine/internal/interfaces/http"
	"github.com/corporatepay/approval-engine/internal/report"
	"github.com/corporatepay/approval-engine/pkg/database"
	"github.com/corporatepay/approval-engine/pkg/utils"
)

func main() {
	// Optional .env for local development; ignored when absent
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval lifecycle engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Organization policy
	policyConfig, err := policy.LoadConfig(cfg.Policy.Path)
	if err != nil {
		logger.Fatal("Failed to load policy config", zap.Error(err))
	}
	evaluator := policy.NewEvaluator(policyConfig)

	// Persistence
	txManager := sqlite.NewDB(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	timelineRepo := repository.NewTimelineRepository(db.DB, logger)
	reminderRepo := repository.NewReminderRepository(db.DB, logger)

	clock := service.SystemClock{}
	serviceLogger := utils.NewSugarAdapter(logger)

	requestService := service.NewRequestService(
		requestRepo,
		timelineRepo,
		txManager,
		evaluator,
		clock,
		cfg.SLA.ExpiryGrace,
		serviceLogger,
	)

	// Reminder channels
	providers := []port.NotificationProvider{inapp.NewProvider()}
	if cfg.Lark.AppID != "" {
		larkClient := lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			ReceiveID: cfg.Lark.ReceiveID,
		}, logger)
		providers = append(providers, lark.NewProvider(larkClient, logger))
	} else {
		logger.Warn("Lark credentials not configured, lark reminder channel disabled")
	}

	reminderService := service.NewReminderService(
		requestRepo,
		reminderRepo,
		policyConfig,
		providers,
		clock,
		serviceLogger,
	)

	// Background workers
	workers := worker.NewManager(logger)
	workers.Register(worker.NewExpiryWorker(requestService, clock, cfg.SLA.SweepInterval, logger))
	workers.Register(worker.NewDeliveryWorker(reminderService, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start background workers", zap.Error(err))
	}

	// HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		requestService,
		reminderService,
		report.NewExporter(logger),
		serviceLogger,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server gracefully", zap.Error(err))
	}
	if err := workers.StopAll(); err != nil {
		logger.Error("Failed to stop background workers", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
