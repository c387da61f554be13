package model

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromap/backend/internal/domain"
)

// linearData builds rows where feasibility = 0.1a + 0.05b and production = 10a + 20b + 5
func linearData() (domain.FeatureMatrix, domain.TargetMatrix) {
	x := domain.FeatureMatrix{Columns: []string{"a", "b"}}
	y := domain.TargetMatrix{Columns: domain.TargetColumns}
	for a := 0.0; a < 4; a++ {
		for b := 0.0; b < 3; b++ {
			x.Rows = append(x.Rows, []float64{a, b})
			y.Rows = append(y.Rows, []float64{0.1*a + 0.05*b, 10*a + 20*b + 5})
		}
	}
	return x, y
}

func TestFitRecoversLinearRelation(t *testing.T) {
	x, y := linearData()
	m, err := Fit(x, y, 0)
	require.NoError(t, err)

	got, err := m.Predict([]float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got[0], 1e-9)
	assert.InDelta(t, 45.0, got[1], 1e-9)

	// extrapolation follows the same plane
	got, err = m.Predict([]float64{10, 10})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got[0], 1e-8)
	assert.InDelta(t, 305.0, got[1], 1e-7)
}

func TestFitRidgeShrinksTowardsMean(t *testing.T) {
	x, y := linearData()
	exact, err := Fit(x, y, 0)
	require.NoError(t, err)
	ridge, err := Fit(x, y, 100)
	require.NoError(t, err)

	e, _ := exact.Predict([]float64{10, 10})
	r, _ := ridge.Predict([]float64{10, 10})
	assert.Less(t, r[1], e[1])
}

func TestFitUnderdetermined(t *testing.T) {
	x := domain.FeatureMatrix{Columns: []string{"a", "b"}, Rows: [][]float64{{1, 2}}}
	y := domain.TargetMatrix{Columns: domain.TargetColumns, Rows: [][]float64{{0.5, 100}}}

	_, err := Fit(x, y, 0)
	assert.Error(t, err)

	// a ridge penalty makes a single row solvable
	m, err := Fit(x, y, 0.1)
	require.NoError(t, err)
	got, err := m.Predict([]float64{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got[0], 1e-9)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(domain.FeatureMatrix{Columns: []string{"a"}}, domain.TargetMatrix{Columns: domain.TargetColumns}, 0)
	assert.Error(t, err)

	x := domain.FeatureMatrix{Columns: []string{"a"}, Rows: [][]float64{{1}, {2}}}
	y := domain.TargetMatrix{Columns: domain.TargetColumns, Rows: [][]float64{{1, 1}}}
	_, err = Fit(x, y, 0)
	assert.Error(t, err)
}

func TestPredictWrongWidth(t *testing.T) {
	x, y := linearData()
	m, err := Fit(x, y, 0)
	require.NoError(t, err)
	_, err = m.Predict([]float64{1})
	assert.Error(t, err)
}

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	x, y := linearData()
	m, err := Fit(x, y, 0.001)
	require.NoError(t, err)

	store := NewStore(t.TempDir())
	meta, err := store.Save(ctx, "v1", m, Metadata{RowCount: x.Len(), Lambda: 0.001, TrainedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "v1", meta.Version)
	assert.Equal(t, []string{"a", "b"}, meta.Features)
	assert.NotEmpty(t, meta.Checksum)
	assert.Positive(t, meta.SizeBytes)

	loaded, loadedMeta, err := store.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, meta.Checksum, loadedMeta.Checksum)
	assert.Equal(t, x.Len(), loadedMeta.RowCount)

	want, _ := m.Predict([]float64{3, 2})
	got, err := loaded.Predict([]float64{3, 2})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreLoadFailures(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	_, _, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = store.Load(ctx, "../etc/passwd")
	assert.ErrorContains(t, err, "invalid model version")

	require.NoError(t, os.WriteFile(store.Path("corrupt"), []byte("not a model"), 0o600))
	_, _, err = store.Load(ctx, "corrupt")
	assert.ErrorContains(t, err, "read model file")
}

func TestStoreRejectsInvalidVersion(t *testing.T) {
	x, y := linearData()
	m, err := Fit(x, y, 0)
	require.NoError(t, err)
	_, err = NewStore(t.TempDir()).Save(context.Background(), "v 1/..", m, Metadata{})
	assert.Error(t, err)
}
