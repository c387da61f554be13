package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/repository/memory"
	"github.com/hydromap/backend/internal/repository/supabase"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := Open(ctx, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memory.Store{}, store)

	store, _, err = Open(ctx, config.StoreConfig{Driver: config.DriverSupabase, URL: "https://example.supabase.co", Key: "k"})
	require.NoError(t, err)
	assert.IsType(t, &supabase.Client{}, store)
}

func TestOpenMissingCredentials(t *testing.T) {
	tests := []config.StoreConfig{
		{Driver: config.DriverSupabase, Key: "k"},
		{Driver: config.DriverSupabase, URL: "https://example.supabase.co"},
		{Driver: config.DriverPostgres},
		{Driver: "sqlite"},
	}
	for _, cfg := range tests {
		_, _, err := Open(context.Background(), cfg)
		assert.ErrorIs(t, err, domain.ErrConfiguration, "driver %q", cfg.Driver)
	}
}
