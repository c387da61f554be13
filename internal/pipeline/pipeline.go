// Package pipeline runs the batch prediction flow: read the training and
// candidate datasets, extract the configured feature columns, score the
// candidates and insert the enriched rows into the recommendations table.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hydromap/backend/internal/cache"
	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/dataset"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/metrics"
)

// Stage names used in logs and the stage duration histogram
const (
	StageRead    = "read"
	StageExtract = "extract"
	StagePredict = "predict"
	StageUpsert  = "upsert"
)

// RunResult summarizes one pipeline run
type RunResult struct {
	RunID         string
	TrainingRows  int
	CandidateRows int
	Predictions   domain.Predictions
	Rows          []domain.Row
	Insert        domain.BatchInsertResult
	DryRun        bool
}

// Pipeline wires the stages together. Stages run strictly in order and any
// failure stops the run before later stages execute.
type Pipeline struct {
	cfg       config.PipelineConfig
	reader    *dataset.Reader
	extractor *Extractor
	engine    Engine
	upserter  *Upserter
	cache     *cache.Cache
	dryRun    bool
}

// New creates a pipeline. c may be nil; when set, cached API reads of the
// destination table are dropped after a successful insert.
func New(cfg config.PipelineConfig, engine Engine, store domain.Inserter, c *cache.Cache) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		reader:    dataset.NewReader(cfg.Passthrough, cfg.CandidateSheet),
		extractor: NewExtractor(cfg.Features, cfg.Passthrough),
		engine:    engine,
		upserter:  NewUpserter(store, cfg.Table, cfg.WriteTimeout),
		cache:     c,
	}
}

// WithDryRun makes Run stop after prediction without writing anything
func (p *Pipeline) WithDryRun(dryRun bool) *Pipeline {
	p.dryRun = dryRun
	return p
}

// Run executes one batch. The returned error carries the failure class of
// the stage that failed; see domain.ExitCode.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), DryRun: p.dryRun}
	log := logging.With().Str("run_id", res.RunID).Logger()

	log.Info().
		Str("engine", p.engine.Name()).
		Str("training", p.cfg.TrainingPath).
		Str("candidates", p.cfg.CandidatePath).
		Str("table", p.cfg.Table).
		Bool("dry_run", p.dryRun).
		Msg("pipeline started")

	err := p.run(ctx, res)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Error().Err(err).Int("exit_code", domain.ExitCode(err)).Msg("pipeline failed")
		return res, err
	}

	outcome := metrics.OutcomeSuccess
	if p.dryRun {
		outcome = metrics.OutcomeDryRun
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	log.Info().
		Int("candidates", res.CandidateRows).
		Int("inserted", res.Insert.Count()).
		Bool("is_fallback", res.Predictions.IsFallback).
		Str("model_version", res.Predictions.ModelVersion).
		Msg("pipeline finished")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *RunResult) error {
	var training, candidates *domain.Table
	err := stage(StageRead, func() error {
		var err error
		if training, err = p.reader.ReadTraining(p.cfg.TrainingPath); err != nil {
			return err
		}
		candidates, err = p.reader.ReadCandidates(p.cfg.CandidatePath)
		return err
	})
	if err != nil {
		return err
	}
	res.TrainingRows = training.Len()
	res.CandidateRows = candidates.Len()

	var features domain.FeatureMatrix
	err = stage(StageExtract, func() error {
		if _, _, err := p.extractor.Training(training); err != nil {
			return err
		}
		var err error
		features, err = p.extractor.Candidates(candidates)
		return err
	})
	if err != nil {
		return err
	}

	err = stage(StagePredict, func() error {
		var err error
		res.Predictions, err = p.engine.Predict(ctx, features)
		return err
	})
	if err != nil {
		return err
	}
	metrics.RowsPredicted.WithLabelValues(p.engine.Name()).Add(float64(len(res.Predictions.Pairs)))
	if res.Predictions.IsFallback {
		logging.Warn().Int("rows", len(res.Predictions.Pairs)).Msg("predictions are placeholder values from the fallback engine")
	}

	if p.dryRun {
		res.Rows, err = Merge(candidates, res.Predictions)
		return err
	}

	err = stage(StageUpsert, func() error {
		var err error
		res.Rows, res.Insert, err = p.upserter.Upsert(ctx, candidates, res.Predictions)
		return err
	})
	if err != nil {
		return err
	}
	metrics.RowsInserted.Add(float64(res.Insert.Count()))

	if err := p.cache.Invalidate(ctx, p.cfg.Table); err != nil {
		logging.Warn().Err(err).Str("table", p.cfg.Table).Msg("failed to invalidate cached reads")
	}
	return nil
}

// stage times fn into the stage duration histogram
func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	logging.Debug().Str("stage", name).Dur("took", time.Since(start)).Err(err).Msg("stage done")
	return err
}
