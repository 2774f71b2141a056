package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/migrations"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/config"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/database"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/handlers"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/llm"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/logging"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/middleware"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/retry"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("billing_configured", cfg.Stripe.IsConfigured()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrateDatabase(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	client, err := llm.New(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	scanRepo := repositories.NewScanRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	usageRepo := repositories.NewUsageRepository(db)

	// Auth
	issuer := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	authMiddleware := auth.NewMiddleware(issuer, logger)

	// Services
	var billingService services.BillingService
	var syncer services.SubscriptionSyncer
	if cfg.Stripe.IsConfigured() {
		stripe.Key = cfg.Stripe.SecretKey
		billingService = services.NewBillingService(&cfg.Stripe, subscriptionRepo, accountRepo, logger)
		syncer = billingService
	} else {
		logger.Warn("Stripe is not configured; billing endpoints disabled")
	}

	subscriptionService := services.NewSubscriptionService(
		subscriptionRepo, usageRepo, syncer, cfg.Subscription.RefreshCooldown, logger)
	gate := services.NewUsageGate(usageRepo, cfg.Quota.FreeScanLimit, cfg.Quota.AnonymousScanLimit, logger)
	scanService := services.NewScanService(
		client, scanRepo, subscriptionService, gate, cfg.LLM.Temperature, cfg.LLM.RequestTimeout, logger)
	coachService := services.NewCoachService(
		client, chatRepo, scanRepo, subscriptionService, cfg.LLM.Temperature, cfg.LLM.RequestTimeout, logger)
	accountService := services.NewAccountService(accountRepo, issuer, logger)

	// Handlers
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(accountService, cfg.Env != "local", cfg.Auth.TokenTTL, logger).
		RegisterRoutes(mux, authMiddleware)
	handlers.NewScanHandler(scanService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSubscriptionHandler(subscriptionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewCoachHandler(coachService, logger).RegisterRoutes(mux, authMiddleware)
	if billingService != nil {
		handlers.NewBillingHandler(billingService, logger).RegisterRoutes(mux, authMiddleware)
	}

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting scanmatch-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// connectDatabase opens the pgx pool, retrying transient startup failures
// such as the database container still coming up.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	return retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		db, err := database.NewConnection(ctx, &database.Config{
			URL:             cfg.Database.ConnectionString(),
			MaxConnections:  cfg.Database.MaxConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			logger.Warn("Database connection attempt failed", zap.Error(err))
		}
		return db, err
	})
}

// migrateDatabase applies pending schema migrations over a database/sql
// connection, which the migration tooling requires.
func migrateDatabase(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, migrations.Files, logger)
}
