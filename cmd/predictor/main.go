package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, using system environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		logging.Error().Err(err).Int("exit_code", domain.ExitCode(err)).Msg("predictor failed")
		os.Exit(domain.ExitCode(err))
	}
}
