// Package service holds the read side of the API: list and fetch queries
// against the remote store, fronted by an optional Redis cache.
package service

import (
	"github.com/hydromap/backend/internal/domain"
)

// Store is re-exported from domain for convenience
type Store = domain.Store
