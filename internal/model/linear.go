package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hydromap/backend/internal/domain"
)

// Linear is a multi-output ridge regression over standardized features.
// Weights has one row per feature plus a trailing intercept row, and one
// column per target.
type Linear struct {
	Features []string
	Targets  []string
	Mean     []float64
	Scale    []float64
	Weights  [][]float64
}

// Fit trains a Linear model. lambda is the ridge penalty on feature weights;
// the intercept is not penalized.
func Fit(x domain.FeatureMatrix, y domain.TargetMatrix, lambda float64) (*Linear, error) {
	n, p, k := x.Len(), len(x.Columns), len(y.Columns)
	if n == 0 {
		return nil, errors.New("model: no training rows")
	}
	if len(y.Rows) != n {
		return nil, fmt.Errorf("model: %d feature rows but %d target rows", n, len(y.Rows))
	}
	if p == 0 || k == 0 {
		return nil, errors.New("model: empty feature or target set")
	}
	if lambda == 0 && n < p+1 {
		return nil, fmt.Errorf("model: %d rows cannot determine %d coefficients without a ridge penalty", n, p+1)
	}

	mean, scale := standardization(x)

	// Ridge as ordinary least squares on [X 1; sqrt(lambda)I 0] against [Y; 0]
	rows := n
	if lambda > 0 {
		rows += p
	}
	a := mat.NewDense(rows, p+1, nil)
	b := mat.NewDense(rows, k, nil)
	for i, row := range x.Rows {
		for j, v := range row {
			a.Set(i, j, (v-mean[j])/scale[j])
		}
		a.Set(i, p, 1)
		for j, v := range y.Rows[i] {
			b.Set(i, j, v)
		}
	}
	if lambda > 0 {
		penalty := math.Sqrt(lambda)
		for j := 0; j < p; j++ {
			a.Set(n+j, j, penalty)
		}
	}

	var w mat.Dense
	if err := w.Solve(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("model: failed to solve least squares: %w", err)
		}
		// ill-conditioned but solved; the result is still usable
	}

	weights := make([][]float64, p+1)
	for i := range weights {
		weights[i] = mat.Row(nil, i, &w)
	}

	return &Linear{
		Features: append([]string(nil), x.Columns...),
		Targets:  append([]string(nil), y.Columns...),
		Mean:     mean,
		Scale:    scale,
		Weights:  weights,
	}, nil
}

// standardization returns per-column mean and standard deviation. Constant
// columns get scale 1 so they only shift the intercept.
func standardization(x domain.FeatureMatrix) ([]float64, []float64) {
	p := len(x.Columns)
	n := float64(x.Len())
	mean := make([]float64, p)
	scale := make([]float64, p)
	for _, row := range x.Rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range x.Rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] < 1e-12 {
			scale[j] = 1
		}
	}
	return mean, scale
}

// Predict applies the model to one feature row, returning one value per target
func (m *Linear) Predict(row []float64) ([]float64, error) {
	p := len(m.Features)
	if len(row) != p {
		return nil, fmt.Errorf("model: expected %d features, got %d", p, len(row))
	}
	out := make([]float64, len(m.Targets))
	for t := range out {
		v := m.Weights[p][t]
		for j, x := range row {
			v += (x - m.Mean[j]) / m.Scale[j] * m.Weights[j][t]
		}
		out[t] = v
	}
	return out, nil
}

// Validate checks the internal dimensions of a decoded model
func (m *Linear) Validate() error {
	p, k := len(m.Features), len(m.Targets)
	if p == 0 || k == 0 {
		return errors.New("model: empty feature or target set")
	}
	if len(m.Mean) != p || len(m.Scale) != p || len(m.Weights) != p+1 {
		return errors.New("model: dimension mismatch")
	}
	for _, w := range m.Weights {
		if len(w) != k {
			return errors.New("model: dimension mismatch")
		}
	}
	return nil
}
