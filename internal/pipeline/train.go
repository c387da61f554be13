package pipeline

import (
	"context"
	"time"

	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/dataset"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/model"
)

// Train fits the regression on the labeled dataset and saves it under version
func Train(ctx context.Context, cfg config.PipelineConfig, lambda float64, store *model.Store, version string) (*model.Metadata, error) {
	reader := dataset.NewReader(cfg.Passthrough, cfg.CandidateSheet)
	training, err := reader.ReadTraining(cfg.TrainingPath)
	if err != nil {
		return nil, err
	}

	x, y, err := NewExtractor(cfg.Features, cfg.Passthrough).Training(training)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := model.Fit(x, y, lambda)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)

	meta, err := store.Save(ctx, version, m, model.Metadata{
		Version:    version,
		Features:   x.Columns,
		Targets:    domain.TargetColumns,
		RowCount:   x.Len(),
		Lambda:     lambda,
		TrainedAt:  start,
		DurationMS: took.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("model_version", version).
		Int("rows", meta.RowCount).
		Strs("features", meta.Features).
		Str("checksum", meta.Checksum).
		Str("path", store.Path(version)).
		Msg("model trained")
	return meta, nil
}
