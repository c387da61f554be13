package domain

// Target column names. They are excluded from the feature set and appended
// to candidate rows once predicted.
const (
	ColumnFeasibilityScore   = "feasibility_score"
	ColumnHydrogenProduction = "hydrogen_production"
)

// TargetColumns lists the labeled outputs in matrix order
var TargetColumns = []string{ColumnFeasibilityScore, ColumnHydrogenProduction}

// Kind tells how a column's cells are typed
type Kind int

const (
	KindNumber Kind = iota
	KindText
)

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "number"
}

// Value is a single typed cell. Only the field matching the column kind is set.
type Value struct {
	Number float64
	Text   string
}

// Table is a typed in-memory dataset with named, ordered columns
type Table struct {
	Source string
	Header []string
	Kinds  []Kind
	Rows   [][]Value
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of a column in the header
func (t *Table) Index(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// FeatureMatrix holds predictor values: rows are records, columns are the
// configured feature columns in configured order.
type FeatureMatrix struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows
func (m FeatureMatrix) Len() int {
	return len(m.Rows)
}

// TargetMatrix holds labeled outputs in TargetColumns order
type TargetMatrix struct {
	Columns []string
	Rows    [][]float64
}

// PredictionPair is the engine output for one candidate row
type PredictionPair struct {
	FeasibilityScore   float64 `json:"feasibility_score"`
	HydrogenProduction float64 `json:"hydrogen_production"`
}

// Predictions is the positionally aligned engine output for a FeatureMatrix
type Predictions struct {
	Pairs        []PredictionPair `json:"pairs"`
	IsFallback   bool             `json:"is_fallback"`
	ModelVersion string           `json:"model_version"`
}
