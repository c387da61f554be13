package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromap/backend/internal/domain"
)

// clearEnv blanks every key LoadConfig reads so host settings cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORE_DRIVER", "SUPABASE_URL", "SUPABASE_KEY", "SUPABASE_ANON_KEY", "DATABASE_URL",
		"PORT", "CORS_ALLOW_ORIGINS", "GO_ENV", "REDIS_URL", "CACHE_TTL_SEC",
		"TRAINING_DATA_PATH", "CANDIDATE_DATA_PATH", "CANDIDATE_SHEET", "FEATURE_COLUMNS",
		"PASSTHROUGH_COLUMNS", "RECOMMENDATIONS_TABLE", "WRITE_TIMEOUT_SEC",
		"ENGINE", "MODEL_DIR", "MODEL_VERSION", "ENGINE_ALLOW_FALLBACK", "RIDGE_LAMBDA",
		"LOG_LEVEL", "LOG_FORMAT", "PUSHGATEWAY_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSupabase, cfg.Store.Driver)
	assert.Equal(t, "https://example.supabase.co", cfg.Store.URL)
	assert.Equal(t, "anon", cfg.Store.Key)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.WriteTimeout)
	assert.Equal(t, domain.TableSiteRecommendations, cfg.Pipeline.Table)
	assert.Equal(t, EngineFallback, cfg.Engine.Kind)
	assert.False(t, cfg.Engine.AllowFallback)
	assert.InDelta(t, 0.001, cfg.Engine.RidgeLambda, 1e-12)
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{"no supabase url", map[string]string{"SUPABASE_KEY": "k"}, "SUPABASE_URL"},
		{"no supabase key", map[string]string{"SUPABASE_URL": "https://x"}, "SUPABASE_KEY"},
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)

			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestParseSkipsStoreCredentials(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, DriverSupabase, cfg.Store.Driver)
	assert.ErrorIs(t, cfg.Store.Validate(), domain.ErrConfiguration)
}

func TestLoadConfigMalformedValues(t *testing.T) {
	for key, value := range map[string]string{
		"CACHE_TTL_SEC":         "soon",
		"WRITE_TIMEOUT_SEC":     "1.5",
		"ENGINE_ALLOW_FALLBACK": "maybe",
		"RIDGE_LAMBDA":          "tiny",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("STORE_DRIVER", DriverMemory)
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLoadConfigLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", DriverMemory)
	t.Setenv("FEATURE_COLUMNS", " capacity_mw, irradiance ,,wind_speed ")
	t.Setenv("PASSTHROUGH_COLUMNS", "Station")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"capacity_mw", "irradiance", "wind_speed"}, cfg.Pipeline.Features)
	assert.Equal(t, []string{"Station"}, cfg.Pipeline.Passthrough)
	assert.NoError(t, cfg.Pipeline.Validate())
}

func TestPipelineValidate(t *testing.T) {
	base := PipelineConfig{Features: []string{"a", "b"}, Table: "t", WriteTimeout: time.Second}
	assert.NoError(t, base.Validate())

	noFeatures := base
	noFeatures.Features = nil
	assert.ErrorIs(t, noFeatures.Validate(), domain.ErrConfiguration)

	dup := base
	dup.Passthrough = []string{"a"}
	assert.ErrorIs(t, dup.Validate(), domain.ErrConfiguration)

	target := base
	target.Features = []string{"a", domain.ColumnFeasibilityScore}
	assert.ErrorIs(t, target.Validate(), domain.ErrConfiguration)

	noTimeout := base
	noTimeout.WriteTimeout = 0
	assert.ErrorIs(t, noTimeout.Validate(), domain.ErrConfiguration)
}

func TestEngineValidate(t *testing.T) {
	assert.NoError(t, EngineConfig{Kind: EngineFallback}.Validate())
	assert.ErrorIs(t, EngineConfig{Kind: EngineTrained}.Validate(), domain.ErrConfiguration)
	assert.NoError(t, EngineConfig{Kind: EngineTrained, ModelVersion: "v1"}.Validate())
	assert.ErrorIs(t, EngineConfig{Kind: "neural"}.Validate(), domain.ErrConfiguration)
	assert.ErrorIs(t, EngineConfig{Kind: EngineFallback, RidgeLambda: -1}.Validate(), domain.ErrConfiguration)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_CONFIG_VAR", "")
	assert.Equal(t, "default", getEnv("TEST_CONFIG_VAR", "default"))

	t.Setenv("TEST_CONFIG_VAR", "custom")
	assert.Equal(t, "custom", getEnv("TEST_CONFIG_VAR", "default"))
}
