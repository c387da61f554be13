package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/service"
)

// NewApp builds the fiber app with middleware and routes
func NewApp(cfg config.ServerConfig, assets *service.AssetService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "HydroMap API v" + Version,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	allowOrigins := cfg.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	SetupRoutes(app, assets)
	return app
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, assets *service.AssetService) {
	handler := NewHandler(assets)

	// Health check
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	{
		api.Get("/existingH2Plants", handler.ListExistingPlants)
		api.Get("/existingH2Plants/:id", handler.GetExistingPlant)
		api.Get("/renewables", handler.ListRenewables)

		// non-strict routing also serves the trailing slash form
		api.Get("/site-recommendations", handler.ListSiteRecommendations)
	}
}
