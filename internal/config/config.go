package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydromap/backend/internal/domain"
)

// Store drivers
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Engine kinds
const (
	EngineFallback = "fallback"
	EngineTrained  = "trained"
)

type Config struct {
	Store    StoreConfig
	Server   ServerConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
	Engine   EngineConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type StoreConfig struct {
	Driver      string
	URL         string
	Key         string
	DatabaseURL string
}

type ServerConfig struct {
	Port         string
	AllowOrigins string
	Env          string
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

type PipelineConfig struct {
	TrainingPath   string
	CandidatePath  string
	CandidateSheet string
	Features       []string
	Passthrough    []string
	Table          string
	WriteTimeout   time.Duration
}

type EngineConfig struct {
	Kind          string
	ModelDir      string
	ModelVersion  string
	AllowFallback bool
	RidgeLambda   float64
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	PushgatewayURL string
}

// LoadConfig reads the environment. It fails fast on malformed values and on
// missing store credentials for the selected driver.
func LoadConfig() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without checking store credentials, for
// commands that never reach the store.
func Parse() (*Config, error) {
	cacheTTL, err := getIntEnv("CACHE_TTL_SEC", 60)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getIntEnv("WRITE_TIMEOUT_SEC", 30)
	if err != nil {
		return nil, err
	}
	allowFallback, err := getBoolEnv("ENGINE_ALLOW_FALLBACK", false)
	if err != nil {
		return nil, err
	}
	lambda, err := getFloatEnv("RIDGE_LAMBDA", 0.001)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverSupabase)),
			URL:         strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			Key:         getEnv("SUPABASE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			Env:          getEnv("GO_ENV", "development"),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      time.Duration(cacheTTL) * time.Second,
		},
		Pipeline: PipelineConfig{
			TrainingPath:   getEnv("TRAINING_DATA_PATH", "../hydrogen_power_plants.csv"),
			CandidatePath:  getEnv("CANDIDATE_DATA_PATH", "../data_solar_wind.xlsx"),
			CandidateSheet: getEnv("CANDIDATE_SHEET", ""),
			Features:       getListEnv("FEATURE_COLUMNS"),
			Passthrough:    getListEnv("PASSTHROUGH_COLUMNS"),
			Table:          getEnv("RECOMMENDATIONS_TABLE", domain.TableSiteRecommendations),
			WriteTimeout:   time.Duration(writeTimeout) * time.Second,
		},
		Engine: EngineConfig{
			Kind:          strings.ToLower(getEnv("ENGINE", EngineFallback)),
			ModelDir:      getEnv("MODEL_DIR", "./models"),
			ModelVersion:  getEnv("MODEL_VERSION", ""),
			AllowFallback: allowFallback,
			RidgeLambda:   lambda,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		},
	}

	return cfg, nil
}

// Validate checks that the selected driver has its credentials
func (s StoreConfig) Validate() error {
	switch s.Driver {
	case DriverSupabase:
		if s.URL == "" {
			return &domain.ConfigurationError{Key: "SUPABASE_URL", Reason: "must be set"}
		}
		if s.Key == "" {
			return &domain.ConfigurationError{Key: "SUPABASE_KEY", Reason: "must be set (or SUPABASE_ANON_KEY)"}
		}
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return &domain.ConfigurationError{Key: "DATABASE_URL", Reason: "must be set"}
		}
	case DriverMemory:
	default:
		return &domain.ConfigurationError{Key: "STORE_DRIVER", Reason: "unknown driver " + strconv.Quote(s.Driver)}
	}
	return nil
}

// Validate checks the settings the batch pipeline needs beyond the store
func (p PipelineConfig) Validate() error {
	if len(p.Features) == 0 {
		return &domain.ConfigurationError{Key: "FEATURE_COLUMNS", Reason: "must list the feature columns"}
	}
	seen := make(map[string]bool, len(p.Features)+len(p.Passthrough))
	for _, c := range append(append([]string{}, p.Features...), p.Passthrough...) {
		if seen[c] {
			return &domain.ConfigurationError{Key: "FEATURE_COLUMNS", Reason: "column " + strconv.Quote(c) + " listed twice"}
		}
		if c == domain.ColumnFeasibilityScore || c == domain.ColumnHydrogenProduction {
			return &domain.ConfigurationError{Key: "FEATURE_COLUMNS", Reason: "target column " + strconv.Quote(c) + " cannot be a feature"}
		}
		seen[c] = true
	}
	if p.Table == "" {
		return &domain.ConfigurationError{Key: "RECOMMENDATIONS_TABLE", Reason: "must not be empty"}
	}
	if p.WriteTimeout <= 0 {
		return &domain.ConfigurationError{Key: "WRITE_TIMEOUT_SEC", Reason: "must be positive"}
	}
	return nil
}

// Validate checks the engine selection
func (e EngineConfig) Validate() error {
	switch e.Kind {
	case EngineFallback:
	case EngineTrained:
		if e.ModelVersion == "" {
			return &domain.ConfigurationError{Key: "MODEL_VERSION", Reason: "required when ENGINE=trained"}
		}
	default:
		return &domain.ConfigurationError{Key: "ENGINE", Reason: "unknown engine " + strconv.Quote(e.Kind)}
	}
	if e.RidgeLambda < 0 {
		return &domain.ConfigurationError{Key: "RIDGE_LAMBDA", Reason: "must not be negative"}
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, &domain.ConfigurationError{Key: key, Reason: "not an integer: " + strconv.Quote(value)}
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &domain.ConfigurationError{Key: key, Reason: "not a number: " + strconv.Quote(value)}
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, &domain.ConfigurationError{Key: key, Reason: "not a boolean: " + strconv.Quote(value)}
	}
	return parsed, nil
}

// getListEnv splits a comma separated list, dropping blanks
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
