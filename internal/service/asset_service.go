package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hydromap/backend/internal/cache"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
)

// AssetService serves the three map layers: existing hydrogen plants,
// renewable stations and site recommendations
type AssetService struct {
	store                Store
	cache                *cache.Cache
	recommendationsTable string
}

// NewAssetService creates the service. c may be nil to disable caching.
func NewAssetService(store Store, c *cache.Cache, recommendationsTable string) *AssetService {
	if recommendationsTable == "" {
		recommendationsTable = domain.TableSiteRecommendations
	}
	return &AssetService{store: store, cache: c, recommendationsTable: recommendationsTable}
}

// ListPlants returns the map projection of every existing hydrogen plant
func (s *AssetService) ListPlants(ctx context.Context) ([]domain.Row, error) {
	return s.list(ctx, domain.TableExistingPlants, domain.PlantListColumns)
}

// GetPlant returns every column of one plant, or domain.ErrNotFound
func (s *AssetService) GetPlant(ctx context.Context, id string) (domain.Row, error) {
	key := cache.Key(domain.TableExistingPlants, "id", id)

	var row domain.Row
	if s.lookup(ctx, key, &row) {
		return row, nil
	}

	row, err := s.store.SelectOne(ctx, domain.TableExistingPlants, nil, domain.Filter{Column: "id", Value: id})
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, row)
	return row, nil
}

// ListRenewables returns the map projection of every renewable station
func (s *AssetService) ListRenewables(ctx context.Context) ([]domain.Row, error) {
	return s.list(ctx, domain.TableRenewables, domain.RenewableListColumns)
}

// ListSiteRecommendations returns every stored recommendation with all columns
func (s *AssetService) ListSiteRecommendations(ctx context.Context) ([]domain.Row, error) {
	return s.list(ctx, s.recommendationsTable, nil)
}

// Health checks the backing store
func (s *AssetService) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *AssetService) list(ctx context.Context, table string, columns []string) ([]domain.Row, error) {
	key := cache.Key(table, "list")

	var rows []domain.Row
	if s.lookup(ctx, key, &rows) {
		return rows, nil
	}

	rows, err := s.store.Select(ctx, table, columns, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	s.remember(ctx, key, rows)
	return rows, nil
}

// lookup reports a cache hit. Cache failures degrade to a store read.
func (s *AssetService) lookup(ctx context.Context, key string, dest any) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		logging.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	return false
}

func (s *AssetService) remember(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
