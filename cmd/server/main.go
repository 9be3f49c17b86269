package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/promptlib/promptlib/internal/api"
	"github.com/promptlib/promptlib/internal/auth"
	"github.com/promptlib/promptlib/internal/config"
	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/inference"
	"github.com/promptlib/promptlib/internal/llm"
	"github.com/promptlib/promptlib/internal/logging"
	"github.com/promptlib/promptlib/internal/metrics"
	"github.com/promptlib/promptlib/internal/optimizer"
	"github.com/promptlib/promptlib/internal/pricing"
	"github.com/promptlib/promptlib/internal/server"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting promptlib")

	if cfg.Auth.InsecureJWTSecret() {
		logger.Warn("JWT_SECRET not set, using insecure placeholder secret")
	}

	ctx := context.Background()

	dsn, err := database.BuildURL(cfg.Database)
	if err != nil {
		return fmt.Errorf("database configuration: %w", err)
	}
	logger.Info("connecting to database", "dsn", database.Redact(dsn))

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	if _, err := database.RunMigrations(ctx, db, database.Migrations(), logger); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	table, err := loadPriceTable(cfg.Pricing)
	if err != nil {
		return err
	}
	logger.Info("price table loaded", "models", len(table.Models()), "override_file", cfg.Pricing.File)

	httpMetrics, err := metrics.NewHTTPCollector()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	llmMetrics, err := metrics.NewLLMCollector(httpMetrics.Registry())
	if err != nil {
		return fmt.Errorf("init llm metrics: %w", err)
	}

	users := database.NewUserRepository(db)
	prompts := database.NewPromptRepository(db)
	history := database.NewOptimizationRepository(db)
	usageLogs := database.NewUsageLogRepository(db)

	recorder := inference.NewLogger(usageLogs, pricing.NewCalculator(table, logger), llmMetrics, logger)
	vendorA, vendorB := llm.NewVendors(cfg.LLM, logger)
	orchestrator := optimizer.NewOrchestrator(vendorA, vendorB, prompts, history, recorder, optimizer.Config{
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Timeout:         cfg.LLM.Timeout,
	}, logger)

	logger.Info("optimization vendors configured",
		"vendor_a", vendorA.Provider(), "model_a", vendorA.Model(),
		"vendor_b", vendorB.Provider(), "model_b", vendorB.Model())

	mux := http.NewServeMux()
	api.SetupRoutes(mux, api.Dependencies{
		Users:     users,
		Prompts:   prompts,
		History:   history,
		UsageLogs: usageLogs,
		Optimizer: orchestrator,
		Auth: auth.Config{
			JWTSecret:     cfg.Auth.JWTSecret,
			TokenDuration: cfg.Auth.TokenTTL,
		},
		Health:    healthCheck(db),
		PoolStats: func() map[string]interface{} { return database.Stats(db) },
		Metrics:   httpMetrics.Handler(),
		Logger:    logger,
	})

	handler := httpMetrics.InstrumentHandler(api.CORSMiddleware(mux))
	srv := server.New(cfg.Server, logger, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("promptlib started", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func loadPriceTable(cfg config.PricingConfig) (*pricing.Table, error) {
	table := pricing.Default()
	if cfg.File == "" {
		return table, nil
	}
	overrides, err := pricing.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load price table: %w", err)
	}
	return table.Merge(overrides), nil
}

func healthCheck(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}
}
