package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/hydromap/backend/internal/cache"
	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/delivery/http"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/repository"
	"github.com/hydromap/backend/internal/service"
)

func main() {
	os.Exit(run())
}

// run wires the server and blocks until shutdown. Deferred cleanup always
// runs before the exit code is returned.
func run() int {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Error().Err(err).Msg("invalid configuration")
		return domain.ExitCode(err)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if envErr != nil {
		logging.Info().Msg("no .env file found, using system environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Dependency Injection: Store
	store, closeStore, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		logging.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
		return domain.ExitCode(err)
	}
	defer closeStore()
	logging.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	// Redis is optional; reads go to the store when it is down
	apiCache, err := cache.New(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
	if err != nil {
		logging.Warn().Err(err).Msg("cache disabled")
		apiCache = nil
	}
	defer apiCache.Close()

	// Dependency Injection: Services
	assets := service.NewAssetService(store, apiCache, cfg.Pipeline.Table)

	app := http.NewApp(cfg.Server, assets)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	logging.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server starting")
	if err := serve(app, ":"+cfg.Server.Port, quit); err != nil {
		logging.Error().Err(err).Msg("server error")
		return domain.ExitFailure
	}
	logging.Info().Msg("server exited gracefully")
	return domain.ExitOK
}

// serve listens on addr until quit fires or the listener fails. A listener
// failure is returned; a signal triggers graceful shutdown.
func serve(app *fiber.App, addr string, quit <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-quit:
		logging.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logging.Error().Err(err).Msg("server forced to shutdown")
		}
		return nil
	}
}
