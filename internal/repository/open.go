// Package repository selects the domain.Store implementation for the
// configured driver.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/repository/memory"
	"github.com/hydromap/backend/internal/repository/postgres"
	"github.com/hydromap/backend/internal/repository/supabase"
)

// Open returns the store for cfg.Driver and a func releasing its resources
func Open(ctx context.Context, cfg config.StoreConfig) (domain.Store, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Driver {
	case config.DriverSupabase:
		return supabase.NewClient(cfg.URL, cfg.Key), func() {}, nil

	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if err := pool.Ping(connectCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewRepository(pool), pool.Close, nil

	case config.DriverMemory:
		return memory.NewStore(), func() {}, nil

	default:
		return nil, nil, &domain.ConfigurationError{Key: "STORE_DRIVER", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}
