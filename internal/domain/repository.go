package domain

import (
	"context"
)

// Row is one record as exchanged with the remote store: column name to scalar value
type Row map[string]any

// Filter restricts a select to rows where Column equals Value
type Filter struct {
	Column string
	Value  any
}

// BatchInsertResult is the outcome of one successful batch insert
type BatchInsertResult struct {
	Table string   `json:"table"`
	IDs   []string `json:"ids"`
}

// Count returns the number of rows the store reported as inserted
func (r BatchInsertResult) Count() int {
	return len(r.IDs)
}

// Inserter is the write half of the store, all the pipeline needs
type Inserter interface {
	// Insert submits all rows as a single batch. Either every row is
	// committed or the whole call fails.
	Insert(ctx context.Context, table string, rows []Row) (BatchInsertResult, error)
}

// Store defines the interface for the remote data store.
// The domain defines it; repository packages implement it.
type Store interface {
	Inserter

	// Select returns the given columns of every row matching filter.
	// Empty columns selects all columns; nil filter selects all rows.
	Select(ctx context.Context, table string, columns []string, filter *Filter) ([]Row, error)

	// SelectOne returns exactly one row or ErrNotFound
	SelectOne(ctx context.Context, table string, columns []string, filter Filter) (Row, error)

	// Health checks store connectivity
	Health(ctx context.Context) error
}
