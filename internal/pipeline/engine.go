package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/model"
	"github.com/hydromap/backend/pkg/utils"
)

// Placeholder output of the fallback engine
const (
	FallbackFeasibility  = 0.85
	FallbackProduction   = 1200.0
	FallbackModelVersion = "fallback"
)

// Engine scores a feature matrix. Implementations return exactly one pair
// per input row, in input order.
type Engine interface {
	Name() string
	Predict(ctx context.Context, features domain.FeatureMatrix) (domain.Predictions, error)
}

// FallbackEngine is the placeholder used when no trained model is wanted or
// available. Its output is flagged IsFallback.
type FallbackEngine struct{}

func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{}
}

func (e *FallbackEngine) Name() string { return config.EngineFallback }

// Predict returns the constant pair for every row
func (e *FallbackEngine) Predict(ctx context.Context, features domain.FeatureMatrix) (domain.Predictions, error) {
	pairs := make([]domain.PredictionPair, features.Len())
	for i := range pairs {
		pairs[i] = domain.PredictionPair{
			FeasibilityScore:   FallbackFeasibility,
			HydrogenProduction: FallbackProduction,
		}
	}
	return domain.Predictions{Pairs: pairs, IsFallback: true, ModelVersion: FallbackModelVersion}, nil
}

// TrainedEngine applies a loaded regression model
type TrainedEngine struct {
	model   *model.Linear
	version string
}

// NewTrainedEngine wraps an already loaded model
func NewTrainedEngine(m *model.Linear, version string) *TrainedEngine {
	return &TrainedEngine{model: m, version: version}
}

// LoadTrainedEngine loads version from store
func LoadTrainedEngine(ctx context.Context, store *model.Store, version string) (*TrainedEngine, error) {
	m, _, err := store.Load(ctx, version)
	if err != nil {
		return nil, &domain.EngineUnavailableError{Version: version, Err: err}
	}
	return NewTrainedEngine(m, version), nil
}

func (e *TrainedEngine) Name() string { return config.EngineTrained }

// Predict scores every row and clamps the outputs: feasibility to [0,1],
// production to >= 0. Out-of-range model output is expected, not an error.
func (e *TrainedEngine) Predict(ctx context.Context, features domain.FeatureMatrix) (domain.Predictions, error) {
	if err := checkModelColumns(e.model.Features, features.Columns); err != nil {
		return domain.Predictions{}, err
	}

	pairs := make([]domain.PredictionPair, features.Len())
	for i, row := range features.Rows {
		if err := ctx.Err(); err != nil {
			return domain.Predictions{}, err
		}
		out, err := e.model.Predict(row)
		if err != nil {
			return domain.Predictions{}, fmt.Errorf("pipeline: failed to score row %d: %w", i, err)
		}
		pairs[i] = domain.PredictionPair{
			FeasibilityScore:   clampFinite(out[0], 0, 1),
			HydrogenProduction: clampFinite(out[1], 0, math.MaxFloat64),
		}
	}
	return domain.Predictions{Pairs: pairs, ModelVersion: e.version}, nil
}

// checkModelColumns requires the matrix to carry the model's features in the model's order
func checkModelColumns(modelCols, matrixCols []string) error {
	same := len(modelCols) == len(matrixCols)
	for i := 0; same && i < len(modelCols); i++ {
		same = modelCols[i] == matrixCols[i]
	}
	if same {
		return nil
	}

	mismatch := &domain.SchemaMismatchError{Dataset: "model features"}
	inMatrix := make(map[string]bool, len(matrixCols))
	for _, c := range matrixCols {
		inMatrix[c] = true
	}
	inModel := make(map[string]bool, len(modelCols))
	for _, c := range modelCols {
		inModel[c] = true
		if !inMatrix[c] {
			mismatch.Missing = append(mismatch.Missing, c)
		}
	}
	for _, c := range matrixCols {
		if !inModel[c] {
			mismatch.Unexpected = append(mismatch.Unexpected, c)
		}
	}
	if len(mismatch.Missing) == 0 && len(mismatch.Unexpected) == 0 {
		// same set, different order
		mismatch.Unexpected = append(mismatch.Unexpected, matrixCols...)
	}
	return mismatch
}

// clampFinite clamps v into [lo, hi]; NaN maps to lo
func clampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return utils.Clamp(v, lo, hi)
}

// NewEngine selects the engine variant from configuration. A trained model
// that cannot be loaded is an error unless cfg.AllowFallback is set, in which
// case the substitution is logged and visible through IsFallback.
func NewEngine(ctx context.Context, cfg config.EngineConfig, store *model.Store) (Engine, error) {
	switch cfg.Kind {
	case config.EngineFallback:
		return NewFallbackEngine(), nil
	case config.EngineTrained:
		engine, err := LoadTrainedEngine(ctx, store, cfg.ModelVersion)
		if err == nil {
			return engine, nil
		}
		if !cfg.AllowFallback {
			return nil, err
		}
		logging.Warn().Err(err).Str("model_version", cfg.ModelVersion).
			Msg("trained model unavailable, using fallback engine as configured")
		return NewFallbackEngine(), nil
	default:
		return nil, &domain.ConfigurationError{Key: "ENGINE", Reason: fmt.Sprintf("unknown engine %q", cfg.Kind)}
	}
}
