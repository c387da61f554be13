package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydromap/backend/internal/domain"
)

// maxParams is the PostgreSQL bind parameter limit per statement
const maxParams = 65535

// Repository implements domain.Store over a pgx pool
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Select returns the given columns of rows matching filter
func (r *Repository) Select(ctx context.Context, table string, columns []string, filter *domain.Filter) ([]domain.Row, error) {
	query, args := buildSelect(table, columns, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query %s: %w", table, err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan %s rows: %w", table, err)
	}

	results := make([]domain.Row, 0, len(maps))
	for _, m := range maps {
		results = append(results, normalizeRow(m))
	}
	return results, nil
}

// SelectOne returns the single row matching filter
func (r *Repository) SelectOne(ctx context.Context, table string, columns []string, filter domain.Filter) (domain.Row, error) {
	query, args := buildSelect(table, columns, &filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query %s: %w", table, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch %s row: %w", table, err)
	}
	return normalizeRow(m), nil
}

// Insert writes every row in one transaction, so the batch commits or fails as a whole
func (r *Repository) Insert(ctx context.Context, table string, rows []domain.Row) (domain.BatchInsertResult, error) {
	result := domain.BatchInsertResult{Table: table, IDs: make([]string, 0, len(rows))}
	if len(rows) == 0 {
		return result, nil
	}

	stmts, err := buildInsert(table, rows)
	if err != nil {
		return domain.BatchInsertResult{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.BatchInsertResult{}, fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, stmt := range stmts {
		ids, err := r.execInsert(ctx, tx, stmt)
		if err != nil {
			return domain.BatchInsertResult{}, err
		}
		result.IDs = append(result.IDs, ids...)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BatchInsertResult{}, fmt.Errorf("postgres: failed to commit insert into %s: %w", table, err)
	}
	return result, nil
}

func (r *Repository) execInsert(ctx context.Context, tx pgx.Tx, stmt insertStatement) ([]string, error) {
	rows, err := tx.Query(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return nil, describe(err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id any
		if err := row.Scan(&id); err != nil {
			return "", err
		}
		return fmt.Sprint(normalizeValue(id)), nil
	})
	if err != nil {
		return nil, describe(err)
	}
	return ids, nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func buildSelect(table string, columns []string, filter *domain.Filter) (string, []any) {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pgx.Identifier{c}.Sanitize()
		}
		cols = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", cols, pgx.Identifier{table}.Sanitize())
	if filter == nil {
		return query, nil
	}
	return query + fmt.Sprintf(" WHERE %s = $1", pgx.Identifier{filter.Column}.Sanitize()), []any{filter.Value}
}

type insertStatement struct {
	sql  string
	args []any
}

// buildInsert renders multi-row INSERT statements, split to stay under the
// bind parameter limit. Every row must carry the same columns.
func buildInsert(table string, rows []domain.Row) ([]insertStatement, error) {
	columns := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		return nil, fmt.Errorf("postgres: insert into %s: rows have no columns", table)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "))

	perStmt := maxParams / len(columns)
	var stmts []insertStatement
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if len(row) != len(columns) {
				return nil, fmt.Errorf("postgres: insert into %s: row %d has %d columns, expected %d", table, start+i, len(row), len(columns))
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, c := range columns {
				v, ok := row[c]
				if !ok {
					return nil, fmt.Errorf("postgres: insert into %s: row %d lacks column %q", table, start+i, c)
				}
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, v)
				fmt.Fprintf(&sb, "$%d", len(args))
			}
			sb.WriteByte(')')
		}
		sb.WriteString(` RETURNING "id"`)
		stmts = append(stmts, insertStatement{sql: sb.String(), args: args})
	}
	return stmts, nil
}

// describe surfaces the server's message for rejected statements
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres: %s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("postgres: failed to insert: %w", err)
}

func normalizeRow(m map[string]any) domain.Row {
	row := make(domain.Row, len(m))
	for k, v := range m {
		row[k] = normalizeValue(v)
	}
	return row
}

// normalizeValue turns driver types that do not encode cleanly to JSON into scalars
func normalizeValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}
