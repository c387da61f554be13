package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hydromap/backend/internal/cache"
	"github.com/hydromap/backend/internal/config"
	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/metrics"
	"github.com/hydromap/backend/internal/model"
	"github.com/hydromap/backend/internal/pipeline"
	"github.com/hydromap/backend/internal/repository"
)

const pushJob = "hydromap_predictor"

type options struct {
	training     string
	candidates   string
	engine       string
	modelVersion string
	lambda       float64
	lambdaSet    bool
	dryRun       bool
}

// summary is printed to stdout after a run
type summary struct {
	RunID         string       `json:"run_id"`
	CandidateRows int          `json:"candidate_rows"`
	Inserted      int          `json:"inserted"`
	IDs           []string     `json:"ids,omitempty"`
	IsFallback    bool         `json:"is_fallback"`
	ModelVersion  string       `json:"model_version"`
	DryRun        bool         `json:"dry_run"`
	Rows          []domain.Row `json:"rows,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "predictor",
		Short:         "Score candidate sites and store the recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &domain.ConfigurationError{Key: "flags", Reason: err.Error()}
	})

	root.PersistentFlags().StringVar(&opts.training, "training", "", "labeled training dataset (overrides TRAINING_DATA_PATH)")

	f := root.Flags()
	f.StringVar(&opts.candidates, "candidates", "", "candidate sites file, .xlsx or .csv (overrides CANDIDATE_DATA_PATH)")
	f.StringVar(&opts.engine, "engine", "", "prediction engine: fallback or trained (overrides ENGINE)")
	f.StringVar(&opts.modelVersion, "model-version", "", "trained model version to load (overrides MODEL_VERSION)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "predict and print the rows without writing them")

	root.AddCommand(newTrainCmd(opts))
	return root
}

func newTrainCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the regression on the training dataset and save it as a model version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.modelVersion, "model-version", "", "version id to save the model under")
	cmd.Flags().Float64Var(&opts.lambda, "lambda", 0, "ridge penalty (overrides RIDGE_LAMBDA)")
	return cmd
}

// loadConfig reads the environment, applies flag overrides and starts logging
func loadConfig(opts *options, needStore bool) (*config.Config, error) {
	load := config.Parse
	if needStore {
		load = config.LoadConfig
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if opts.training != "" {
		cfg.Pipeline.TrainingPath = opts.training
	}
	if opts.candidates != "" {
		cfg.Pipeline.CandidatePath = opts.candidates
	}
	if opts.engine != "" {
		cfg.Engine.Kind = opts.engine
	}
	if opts.modelVersion != "" {
		cfg.Engine.ModelVersion = opts.modelVersion
	}
	if opts.lambdaSet {
		cfg.Engine.RidgeLambda = opts.lambda
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPredict(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts, !opts.dryRun)
	if err != nil {
		return err
	}
	defer pushMetrics(cfg.Metrics.PushgatewayURL)
	ctx := cmd.Context()

	engine, err := pipeline.NewEngine(ctx, cfg.Engine, model.NewStore(cfg.Engine.ModelDir))
	if err != nil {
		return err
	}

	var store domain.Inserter
	var apiCache *cache.Cache
	if !opts.dryRun {
		s, closeStore, err := repository.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s

		apiCache = openCache(ctx, cfg.Cache)
		defer apiCache.Close()
	}

	res, err := pipeline.New(cfg.Pipeline, engine, store, apiCache).
		WithDryRun(opts.dryRun).
		Run(ctx)
	if err != nil {
		return err
	}

	out := summary{
		RunID:         res.RunID,
		CandidateRows: res.CandidateRows,
		Inserted:      res.Insert.Count(),
		IDs:           res.Insert.IDs,
		IsFallback:    res.Predictions.IsFallback,
		ModelVersion:  res.Predictions.ModelVersion,
		DryRun:        res.DryRun,
	}
	if res.DryRun {
		out.Rows = res.Rows
	}
	return writeJSON(cmd, out)
}

func runTrain(cmd *cobra.Command, opts *options) error {
	if opts.modelVersion == "" {
		return &domain.ConfigurationError{Key: "--model-version", Reason: "required for train"}
	}
	opts.lambdaSet = cmd.Flags().Changed("lambda")

	cfg, err := loadConfig(opts, false)
	if err != nil {
		return err
	}
	defer pushMetrics(cfg.Metrics.PushgatewayURL)

	meta, err := pipeline.Train(cmd.Context(), cfg.Pipeline, cfg.Engine.RidgeLambda, model.NewStore(cfg.Engine.ModelDir), opts.modelVersion)
	if err != nil {
		return err
	}
	return writeJSON(cmd, meta)
}

// openCache connects to Redis when configured. The predictor only uses it to
// drop stale API reads, so a failure is logged and ignored.
func openCache(ctx context.Context, cfg config.CacheConfig) *cache.Cache {
	c, err := cache.New(ctx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		logging.Warn().Err(err).Msg("cache unavailable, API reads may be stale until TTL expiry")
		return nil
	}
	return c
}

func pushMetrics(url string) {
	if url == "" {
		return
	}
	if err := metrics.Push(url, pushJob); err != nil {
		logging.Warn().Err(err).Str("url", url).Msg("failed to push metrics")
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
