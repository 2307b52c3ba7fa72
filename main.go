package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shiftwatch/shift-backend/bot"
	"github.com/shiftwatch/shift-backend/config"
	"github.com/shiftwatch/shift-backend/database"
	"github.com/shiftwatch/shift-backend/handlers"
	"github.com/shiftwatch/shift-backend/jobs"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/shiftwatch/shift-backend/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	if cfg.DiscordToken == "" {
		configErr := shared.NewConfigurationError("main", "DISCORD_TOKEN is required")
		configErr.LogError()
		logrus.Fatal(configErr)
	}

	// Database is optional; without it codes live in memory only and
	// subscriptions and usage stats are disabled
	var codeService *services.CodeService
	if cfg.DatabaseURL != "" {
		if err := database.Connect(cfg.DatabaseURL); err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.Migrate("database/schema.sql"); err != nil {
			logrus.Warnf("Migration warning: %v", err)
		}
		if err := database.ValidateSchema(); err != nil {
			logrus.Warnf("Schema validation warning: %v", err)
		}

		codeService = services.NewCodeService(database.DB)
	} else {
		logrus.Warn("DATABASE_URL not set, running without persistence")
	}

	// Initialize services
	scraperService := services.NewShiftCodeScraperService(config.DefaultScraperConfig())

	cacheConfig := config.DefaultCacheConfig()
	cacheConfig.DefaultTTL = cfg.GetCacheTTL()
	cacheService := services.NewCacheServiceWithConfig(cacheConfig.DefaultTTL, cacheConfig.MaxSize)

	var store services.CodeStore
	if codeService != nil {
		store = codeService
	}
	aggregator := services.NewCodeAggregatorService(scraperService, cacheService, store, cacheConfig.DefaultTTL)

	logrus.Info("SHiFT code backend services initialized:")
	logrus.Infof("  - Scraper (rate limit: %v, timeout: %v)", config.DefaultScraperConfig().RequestRateLimit, config.DefaultScraperConfig().HTTPRequestTimeout)
	logrus.Infof("  - Cache (TTL: %v, max size: %d)", cacheConfig.DefaultTTL, cacheConfig.MaxSize)
	logrus.Infof("  - Persistence enabled: %v", codeService != nil)

	// Start the Discord bot
	codeBot, err := bot.NewBot(cfg.DiscordToken, aggregator, codeService, scraperService.Metrics(), cfg.TestGuildID)
	if err != nil {
		logrus.Fatalf("Failed to create Discord bot: %v", err)
	}
	if err := codeBot.Start(); err != nil {
		logrus.Fatalf("Failed to start Discord bot: %v", err)
	}
	defer codeBot.Stop()

	// Start background jobs
	refreshJob := jobs.NewCodeRefreshJob(aggregator, codeBot)
	refreshJob.Start(cfg.GetRefreshInterval())

	if codeService != nil {
		expiryJob := jobs.NewExpirySweepJob(codeService)
		expiryJob.Start(12 * time.Hour)
	}

	// Setup Fiber
	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New())

	codeHandler := handlers.NewCodeHandler(aggregator, codeService, scraperService.Metrics(), cfg.AdminToken)
	codeHandler.RegisterRoutes(app)

	go func() {
		logrus.Infof("Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Run until interrupted so deferred shutdown hooks fire
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down...")
	if err := app.Shutdown(); err != nil {
		logrus.Warnf("Server shutdown error: %v", err)
	}
}
