package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/juju/clock"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/payments"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/seed"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also batched into system_logs
	pgLogHandler := logging.NewPGHandler(database.DB, 5*time.Second)
	logging.SetupWithStore(pgLogHandler)

	cleanupDone := make(chan struct{})
	cleanupFinished := logging.StartCleanup(database.DB, clock.WallClock,
		time.Duration(cfg.LogRetentionDays)*24*time.Hour, cleanupDone)

	if cfg.SeedCatalog {
		catalog, err := seed.Default()
		if err == nil {
			err = seed.Apply(database.DB, catalog)
		}
		if err != nil {
			slog.Error("catalog seed failed", "error", err)
			os.Exit(1)
		}
	}

	// Integrations
	mailer := mail.New(cfg.ResendAPIKey, cfg.MailFrom)
	if cfg.ResendAPIKey == "" {
		slog.Warn("RESEND_API_KEY not set; emails are logged instead of sent")
	}
	gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if cfg.StripeSecretKey == "" {
		slog.Warn("STRIPE_SECRET_KEY not set; payment endpoints will fail")
	}

	collector := metrics.NewCollector()
	registry := metrics.NewRegistry(collector)

	// Services
	clk := clock.WallClock
	popularity := services.NewPopularityRecommender(database.DB)
	var primary, fallback services.Recommender = popularity, nil
	if cfg.Recommender == "llm" {
		primary = services.NewLLMRecommender(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel, cfg.AITimeout)
		fallback = popularity
	}

	deps := routes.Deps{
		Config:          cfg,
		Auth:            services.NewAuthService(database.DB, cfg, mailer, clk, collector),
		Catalog:         services.NewCatalogService(database.DB),
		Lists:           services.NewListService(database.DB),
		Orders:          services.NewOrderService(database.DB, clk, collector),
		Payments:        services.NewPaymentService(database.DB, cfg, gateway, mailer, collector),
		Messages:        services.NewMessageService(database.DB, clk),
		Recommendations: services.NewRecommendationService(database.DB, primary, fallback, collector),
		Ping:            database.Ping,
		Metrics:         collector,
		Registry:        registry,
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := routes.NewApp(deps)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	<-cleanupFinished
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}
