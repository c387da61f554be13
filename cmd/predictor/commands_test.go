package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromap/backend/internal/domain"
)

type fixture struct {
	training   string
	candidates string
}

func setup(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		training:   filepath.Join(dir, "training.csv"),
		candidates: filepath.Join(dir, "candidates.csv"),
	}
	require.NoError(t, os.WriteFile(fx.training, []byte("a,b,feasibility_score,hydrogen_production\n1,2,0.5,100\n2,3,0.6,200\n3,5,0.7,300\n4,4,0.8,350\n"), 0o600))
	require.NoError(t, os.WriteFile(fx.candidates, []byte("Site,a,b\nNorth,4,6\nSouth,5,7\n"), 0o600))

	env := map[string]string{
		"STORE_DRIVER":          "memory",
		"FEATURE_COLUMNS":       "a,b",
		"PASSTHROUGH_COLUMNS":   "Site",
		"TRAINING_DATA_PATH":    fx.training,
		"CANDIDATE_DATA_PATH":   fx.candidates,
		"MODEL_DIR":             filepath.Join(dir, "models"),
		"ENGINE":                "",
		"MODEL_VERSION":         "",
		"ENGINE_ALLOW_FALLBACK": "",
		"RIDGE_LAMBDA":          "",
		"REDIS_URL":             "",
		"PUSHGATEWAY_URL":       "",
		"LOG_LEVEL":             "disabled",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return fx
}

func execute(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return &out, cmd.ExecuteContext(context.Background())
}

func TestPredictFallback(t *testing.T) {
	setup(t)

	out, err := execute(t)
	require.NoError(t, err)

	var s summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, 2, s.CandidateRows)
	assert.Equal(t, 2, s.Inserted)
	assert.Len(t, s.IDs, 2)
	assert.True(t, s.IsFallback)
	assert.Empty(t, s.Rows)
}

func TestPredictDryRun(t *testing.T) {
	setup(t)
	t.Setenv("STORE_DRIVER", "supabase")

	out, err := execute(t, "--dry-run")
	require.NoError(t, err)

	var s summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.True(t, s.DryRun)
	assert.Equal(t, 0, s.Inserted)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, "North", s.Rows[0]["Site"])
	assert.Equal(t, 0.85, s.Rows[0][domain.ColumnFeasibilityScore])
}

func TestTrainThenPredict(t *testing.T) {
	setup(t)

	out, err := execute(t, "train", "--model-version", "v1")
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &meta))
	assert.Equal(t, "v1", meta["version"])

	out, err = execute(t, "--engine", "trained", "--model-version", "v1", "--dry-run")
	require.NoError(t, err)
	var s summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.False(t, s.IsFallback)
	assert.Equal(t, "v1", s.ModelVersion)
	for _, row := range s.Rows {
		score := row[domain.ColumnFeasibilityScore].(float64)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.GreaterOrEqual(t, row[domain.ColumnHydrogenProduction].(float64), 0.0)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want int
	}{
		{"train without version", nil, []string{"train"}, domain.ExitConfiguration},
		{"unknown flag", nil, []string{"--bogus"}, domain.ExitConfiguration},
		{"no feature columns", map[string]string{"FEATURE_COLUMNS": ""}, nil, domain.ExitConfiguration},
		{"missing store credentials", map[string]string{"STORE_DRIVER": "supabase", "SUPABASE_URL": "", "SUPABASE_KEY": "", "SUPABASE_ANON_KEY": ""}, nil, domain.ExitConfiguration},
		{"missing model", nil, []string{"--engine", "trained", "--model-version", "nope"}, domain.ExitEngine},
		{"missing candidates", nil, []string{"--candidates", "/nonexistent/sites.xlsx"}, domain.ExitDataLoad},
		{"schema drift", map[string]string{"FEATURE_COLUMNS": "a,b,c"}, nil, domain.ExitSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.ExitCode(err))
		})
	}
}

func TestPredictFallbackWhenAllowed(t *testing.T) {
	setup(t)
	t.Setenv("ENGINE_ALLOW_FALLBACK", "true")

	out, err := execute(t, "--engine", "trained", "--model-version", "missing", "--dry-run")
	require.NoError(t, err)
	var s summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.True(t, s.IsFallback)
}
