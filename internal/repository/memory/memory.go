package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hydromap/backend/internal/domain"
)

// Store implements domain.Store in process, for tests and local runs
type Store struct {
	mu        sync.RWMutex
	tables    map[string][]domain.Row
	nextID    int
	insertErr error
	inserts   int
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{tables: make(map[string][]domain.Row)}
}

// Seed appends rows to a table as-is
func (s *Store) Seed(table string, rows ...domain.Row) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], copyRow(r))
	}
	return s
}

// WithInsertError makes every Insert fail with err
func (s *Store) WithInsertError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr = err
	return s
}

// Rows returns a copy of a table's rows
func (s *Store) Rows(table string) []domain.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// InsertCalls returns how many times Insert was called
func (s *Store) InsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}

// Select returns the projected rows matching filter
func (s *Store) Select(ctx context.Context, table string, columns []string, filter *domain.Filter) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Row{}
	for _, r := range s.tables[table] {
		if filter != nil && !matches(r, *filter) {
			continue
		}
		out = append(out, project(r, columns))
	}
	return out, nil
}

// SelectOne returns the single row matching filter
func (s *Store) SelectOne(ctx context.Context, table string, columns []string, filter domain.Filter) (domain.Row, error) {
	rows, err := s.Select(ctx, table, columns, &filter)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("memory: %d rows match %s=%v, expected one", len(rows), filter.Column, filter.Value)
	}
}

// Insert appends all rows or none, assigning sequential ids
func (s *Store) Insert(ctx context.Context, table string, rows []domain.Row) (domain.BatchInsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++

	if err := ctx.Err(); err != nil {
		return domain.BatchInsertResult{}, err
	}
	if s.insertErr != nil {
		return domain.BatchInsertResult{}, s.insertErr
	}

	result := domain.BatchInsertResult{Table: table, IDs: make([]string, 0, len(rows))}
	for _, r := range rows {
		s.nextID++
		row := copyRow(r)
		row["id"] = s.nextID
		s.tables[table] = append(s.tables[table], row)
		result.IDs = append(result.IDs, strconv.Itoa(s.nextID))
	}
	return result, nil
}

// Health always succeeds
func (s *Store) Health(ctx context.Context) error {
	return nil
}

func matches(r domain.Row, f domain.Filter) bool {
	v, ok := r[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(f.Value)
}

func project(r domain.Row, columns []string) domain.Row {
	if len(columns) == 0 {
		return copyRow(r)
	}
	out := make(domain.Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func copyRow(r domain.Row) domain.Row {
	out := make(domain.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
