package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	httpapi "github.com/nivalis/snow-data-service/internal/api/http"
	"github.com/nivalis/snow-data-service/internal/config"
	"github.com/nivalis/snow-data-service/internal/scheduler"
	"github.com/nivalis/snow-data-service/internal/snow"
	"github.com/nivalis/snow-data-service/internal/snow/providers"
	"github.com/nivalis/snow-data-service/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var zapLogger *zap.Logger
	if cfg.Debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	// The geocoding endpoint shares the elevation credential.
	geocoder.ApiKey = cfg.GoogleAPIKey

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Upstream clients.
	timeline := providers.NewMountainHubProvider(httpClient, cfg.MountainHubBaseURL, sugar)
	elevation := providers.NewElevationProvider(httpClient, cfg.ElevationBaseURL, cfg.GoogleAPIKey, sugar)

	// Core service orchestrating providers and store.
	service := snow.NewService(memStore, timeline, elevation, sugar)

	// Scheduler that periodically fetches and stores region snapshots.
	sched := scheduler.New(cfg.Regions, cfg.FetchInterval, cfg.FetchLimit, service, sugar)
	if err := sched.Start(); err != nil {
		sugar.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "snow-data-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "snow-data-service",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			sugar.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorf("error during shutdown: %v", err)
	}
}
