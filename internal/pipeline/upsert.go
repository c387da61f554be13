package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hydromap/backend/internal/domain"
)

// statusCoder is implemented by store errors that carry an HTTP status
type statusCoder interface {
	StatusCode() int
}

// describer is implemented by store errors that carry the store's own message
type describer interface {
	Description() string
}

// Upserter merges predictions into candidate rows and submits them as one batch.
//
// Rows are always inserted, never matched against existing records, so running
// the same inputs twice stores the batch twice.
type Upserter struct {
	store   domain.Inserter
	table   string
	timeout time.Duration
}

// NewUpserter creates an upserter writing to table. Each insert is bounded by timeout.
func NewUpserter(store domain.Inserter, table string, timeout time.Duration) *Upserter {
	return &Upserter{store: store, table: table, timeout: timeout}
}

// Merge builds one output row per candidate: every input column as read plus
// the two prediction columns. Rows and pairs are aligned by position.
func Merge(t *domain.Table, preds domain.Predictions) ([]domain.Row, error) {
	if t.Len() != len(preds.Pairs) {
		return nil, fmt.Errorf("pipeline: %d candidate rows but %d predictions", t.Len(), len(preds.Pairs))
	}

	rows := make([]domain.Row, t.Len())
	for i, values := range t.Rows {
		row := make(domain.Row, len(t.Header)+len(domain.TargetColumns))
		for j, col := range t.Header {
			if t.Kinds[j] == domain.KindText {
				row[col] = values[j].Text
			} else {
				row[col] = values[j].Number
			}
		}
		row[domain.ColumnFeasibilityScore] = preds.Pairs[i].FeasibilityScore
		row[domain.ColumnHydrogenProduction] = preds.Pairs[i].HydrogenProduction
		rows[i] = row
	}
	return rows, nil
}

// Upsert merges predictions into the candidate table and writes the result.
// The merged rows are returned even when the write fails.
func (u *Upserter) Upsert(ctx context.Context, t *domain.Table, preds domain.Predictions) ([]domain.Row, domain.BatchInsertResult, error) {
	rows, err := Merge(t, preds)
	if err != nil {
		return nil, domain.BatchInsertResult{}, err
	}
	result, err := u.Write(ctx, rows)
	return rows, result, err
}

// Write inserts rows as a single batch. A deadline yields RemoteTimeoutError;
// any other store failure yields RemoteWriteError with the store's message.
func (u *Upserter) Write(ctx context.Context, rows []domain.Row) (domain.BatchInsertResult, error) {
	if len(rows) == 0 {
		return domain.BatchInsertResult{Table: u.table, IDs: []string{}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	result, err := u.store.Insert(ctx, u.table, rows)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.BatchInsertResult{}, &domain.RemoteTimeoutError{
			Op:      "insert into " + u.table,
			Timeout: u.timeout.String(),
			Err:     err,
		}
	}

	writeErr := &domain.RemoteWriteError{Table: u.table, Message: err.Error(), Err: err}
	var sc statusCoder
	if errors.As(err, &sc) {
		writeErr.Status = sc.StatusCode()
	}
	var d describer
	if errors.As(err, &d) {
		writeErr.Message = d.Description()
	}
	return domain.BatchInsertResult{}, writeErr
}
