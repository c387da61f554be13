package pipeline

import (
	"github.com/hydromap/backend/internal/domain"
)

// Dataset names used in schema errors
const (
	DatasetTraining   = "training data"
	DatasetCandidates = "candidate data"
)

// Extractor enforces the configured column contract and builds matrices.
// Feature order is the configured order, never the file order, so training
// and candidate matrices always line up.
type Extractor struct {
	features    []string
	passthrough map[string]bool
}

// NewExtractor creates an extractor. passthrough names text columns that are
// carried to the output but are not features.
func NewExtractor(features, passthrough []string) *Extractor {
	pt := make(map[string]bool, len(passthrough))
	for _, c := range passthrough {
		pt[c] = true
	}
	return &Extractor{features: append([]string(nil), features...), passthrough: pt}
}

// Features returns the configured feature columns in order
func (e *Extractor) Features() []string {
	return append([]string(nil), e.features...)
}

// Training splits the labeled table into features and targets
func (e *Extractor) Training(t *domain.Table) (domain.FeatureMatrix, domain.TargetMatrix, error) {
	expected := append(e.Features(), domain.TargetColumns...)
	if err := e.check(DatasetTraining, t, expected); err != nil {
		return domain.FeatureMatrix{}, domain.TargetMatrix{}, err
	}

	return matrix(t, e.features), domain.TargetMatrix(matrix(t, domain.TargetColumns)), nil
}

// Candidates builds the feature matrix for unlabeled sites
func (e *Extractor) Candidates(t *domain.Table) (domain.FeatureMatrix, error) {
	if err := e.check(DatasetCandidates, t, e.features); err != nil {
		return domain.FeatureMatrix{}, err
	}
	return matrix(t, e.features), nil
}

// check compares the table's columns with the expected numeric set. Text
// columns must be configured passthrough columns; anything else is drift.
func (e *Extractor) check(dataset string, t *domain.Table, expected []string) error {
	want := make(map[string]bool, len(expected))
	for _, c := range expected {
		want[c] = true
	}

	mismatch := &domain.SchemaMismatchError{Dataset: dataset}
	have := make(map[string]bool, len(t.Header))
	for i, c := range t.Header {
		have[c] = true
		switch {
		case want[c] && t.Kinds[i] == domain.KindNumber:
		case e.passthrough[c] && !want[c]:
		default:
			mismatch.Unexpected = append(mismatch.Unexpected, c)
		}
	}
	for _, c := range expected {
		if !have[c] {
			mismatch.Missing = append(mismatch.Missing, c)
		}
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unexpected) > 0 {
		return mismatch
	}
	return nil
}

// matrix copies the named numeric columns, in the given order, out of t
func matrix(t *domain.Table, columns []string) domain.FeatureMatrix {
	idx := make([]int, len(columns))
	for j, c := range columns {
		idx[j], _ = t.Index(c)
	}

	m := domain.FeatureMatrix{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]float64, t.Len()),
	}
	for i, row := range t.Rows {
		values := make([]float64, len(columns))
		for j, k := range idx {
			values[j] = row[k].Number
		}
		m.Rows[i] = values
	}
	return m
}
