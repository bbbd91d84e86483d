// cmd/server/main.go - API server with change feed bridge
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"taskdeck/internal/config"
	"taskdeck/internal/database"
	"taskdeck/internal/feed"
	"taskdeck/internal/handlers"
	"taskdeck/internal/middleware"
	"taskdeck/internal/repository"
	"taskdeck/internal/service"
	"taskdeck/pkg/auth"
	"taskdeck/pkg/logger"
	"taskdeck/pkg/response"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logg := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})

	// Connect to database
	logg.Info("Connecting to PostgreSQL...")
	db, err := database.Connect(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logg.Error("Failed to close database connection", "error", err)
		}
	}()

	// Run auto migration
	logg.Info("🔄 Running auto migration...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run auto migration: %v", err)
	}
	logg.Info("✅ Auto migration completed")

	// Install the task change trigger, then start the feed pipeline
	if err := installFeedTrigger(cfg); err != nil {
		log.Fatalf("Failed to install feed trigger: %v", err)
	}
	feedListener, err := feed.NewListener(cfg.Database.DSN(), cfg.Feed, logg)
	if err != nil {
		log.Fatalf("Failed to start feed listener: %v", err)
	}

	// Connect to NATS and bridge feed events onto per-owner subjects
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.NATS.ClientName))
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	bridge := feed.NewBridge(feedListener.Events(), nc, cfg.NATS.SubjectPrefix, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := feedListener.Run(ctx); err != nil {
			logg.Error("Feed listener stopped", "error", err)
		}
	}()
	go func() {
		if err := bridge.Run(ctx); err != nil {
			logg.Error("Feed bridge stopped", "error", err)
		}
	}()

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
	)

	// Initialize repositories and services
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	securityLogger := service.NewSecurityLogger(logg)
	authService := service.NewAuthService(userRepo, tokenManager, securityLogger, cfg.Security, logg)
	taskService := service.NewTaskService(taskRepo, logg)

	// Create HTTP server
	app := fiber.New(fiber.Config{
		AppName:               "TaskDeck",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          response.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(logg))

	h := handlers.NewHandlers(authService, taskService, logg)
	handlers.SetupRoutes(app, h, tokenManager)

	// Start background cleanup job
	scheduler := startCleanupJob(authService, cfg.Security.CleanupInterval, logg)

	// Start server in goroutine
	go func() {
		logg.Info("🚀 TaskDeck API listening", "port", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("📴 Shutting down server...")
	cancel()
	scheduler.Stop()
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logg.Error("Forced shutdown", "error", err)
	}
	if err := feedListener.Close(); err != nil {
		logg.Error("Failed to close feed listener", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Error("Failed to drain NATS connection", "error", err)
	}
	logg.Info("✅ Server shutdown complete")
}

// installFeedTrigger creates the NOTIFY trigger on the tasks table over a
// short-lived connection separate from the listener's own.
func installFeedTrigger(cfg *config.Config) error {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect for trigger install: %w", err)
	}
	defer db.Close()
	return feed.InstallTrigger(db, cfg.Feed.Channel)
}

// startCleanupJob schedules the periodic security sweep that clears expired
// refresh tokens and releases stale account lockouts.
func startCleanupJob(authService *service.AuthService, interval time.Duration, logg *slog.Logger) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).Do(func() {
		if err := authService.CleanupExpired(context.Background()); err != nil {
			logg.Error("Security cleanup failed", "error", err)
		}
	})
	if err != nil {
		logg.Error("Failed to schedule cleanup job", "error", err)
		return scheduler
	}
	scheduler.StartAsync()
	logg.Info("🧹 Background cleanup job started", "interval", interval)
	return scheduler
}
