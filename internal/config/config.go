// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package config provides layered configuration for the RentLens pipeline.
//
// Configuration is loaded with Koanf v2 from three layers, in increasing
// priority: built-in defaults, an optional YAML config file, and environment
// variables. Components receive their sections by value at construction time;
// there is no global configuration state.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rentlens/config.yaml",
	"/etc/rentlens/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "RENTLENS_CONFIG"

// EnvPrefix is the prefix for RentLens environment variables.
// RENTLENS_FRAUD__FLAG_THRESHOLD maps to fraud.flag_threshold: a double
// underscore separates nesting levels so field names may contain underscores.
const EnvPrefix = "RENTLENS_"

// Config is the root configuration for the RentLens pipeline.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Database  DatabaseConfig  `koanf:"database"`
	Models    ModelsConfig    `koanf:"models"`
	Fraud     FraudConfig     `koanf:"fraud"`
	Recommend RecommendConfig `koanf:"recommend"`
	Pricing   PricingConfig   `koanf:"pricing"`
	Training  TrainingConfig  `koanf:"training"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file/line in log output.
	Caller bool `koanf:"caller"`
}

// DatasetConfig configures dataset loading and processing.
type DatasetConfig struct {
	// Path is the source CSV of raw listings. If empty or unreadable the
	// pipeline degrades to the synthetic generator.
	Path string `koanf:"path"`

	// SyntheticRows is the size of the generated fallback dataset.
	SyntheticRows int `koanf:"synthetic_rows"`

	// Seed drives the synthetic generator for reproducible runs.
	Seed int64 `koanf:"seed"`

	// MaxPrice is the sanity ceiling for price_per_month; rows at or above
	// it are dropped during cleaning.
	MaxPrice float64 `koanf:"max_price"`

	// ScaleColumns is the numeric column subset standardized by the scaler.
	ScaleColumns []string `koanf:"scale_columns"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" opens an ephemeral database.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = use runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ModelsConfig configures trained-model persistence.
type ModelsConfig struct {
	// Dir is the directory holding serialized model artifacts.
	Dir string `koanf:"dir"`

	// RetainVersions is how many versions to keep per model family.
	RetainVersions int `koanf:"retain_versions"`
}

// FraudConfig configures fraud score blending policy.
//
// The blend weights are product policy, not derived constants; they are
// exposed here pending confirmation from the product owner.
type FraudConfig struct {
	// HeuristicWeight is the rule-layer share of the blended score when a
	// trained classifier is available.
	HeuristicWeight float64 `koanf:"heuristic_weight"`

	// MLWeight is the classifier share of the blended score.
	MLWeight float64 `koanf:"ml_weight"`

	// FlagThreshold is the score above which a listing is flagged fraudulent.
	FlagThreshold float64 `koanf:"flag_threshold"`

	// KeywordRisk is the risk contribution per suspicious keyword match.
	KeywordRisk float64 `koanf:"keyword_risk"`

	// KeywordRiskCap caps the total keyword contribution.
	KeywordRiskCap float64 `koanf:"keyword_risk_cap"`

	// MaxLandlordListings is the posting volume above which the
	// posting-frequency risk applies.
	MaxLandlordListings int `koanf:"max_landlord_listings"`
}

// RecommendConfig configures the hybrid recommender.
type RecommendConfig struct {
	// ContentWeight is the content-model share of the hybrid score.
	ContentWeight float64 `koanf:"content_weight"`

	// CollaborativeWeight is the matrix-factorization share.
	CollaborativeWeight float64 `koanf:"collaborative_weight"`

	// Factors is the latent factor rank for matrix factorization.
	Factors int `koanf:"factors"`

	// Iterations is the SGD epoch count.
	Iterations int `koanf:"iterations"`

	// LearningRate is the SGD step size.
	LearningRate float64 `koanf:"learning_rate"`

	// Regularization is the L2 penalty for matrix factorization.
	Regularization float64 `koanf:"regularization"`

	// DefaultLimit is the default number of recommendations returned.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit is the maximum allowed recommendation count.
	MaxLimit int `koanf:"max_limit"`
}

// PricingConfig configures the price estimator.
type PricingConfig struct {
	// RangePercent is the half-width of the returned price range.
	RangePercent float64 `koanf:"range_percent"`

	// DefaultPriceMin/DefaultPriceMax bound the default price band used when
	// a preference or market query has no data to go on.
	DefaultPriceMin float64 `koanf:"default_price_min"`
	DefaultPriceMax float64 `koanf:"default_price_max"`
}

// TrainingConfig configures the batch training orchestrators.
type TrainingConfig struct {
	// MinFraudSamples is the minimum labelled sample count; below it the
	// fraud trainer augments with synthetic examples.
	MinFraudSamples int `koanf:"min_fraud_samples"`

	// MinInteractions is the minimum interaction count for recommender training.
	MinInteractions int `koanf:"min_interactions"`

	// SyntheticInteractions is the size of the generated interaction log
	// used when real interactions are insufficient.
	SyntheticInteractions int `koanf:"synthetic_interactions"`

	// HoldoutFraction is the evaluation split held out from training.
	HoldoutFraction float64 `koanf:"holdout_fraction"`

	// Seed drives train/holdout splitting and synthetic augmentation.
	Seed int64 `koanf:"seed"`
}

// defaultConfig returns a Config with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Dataset: DatasetConfig{
			Path:          "data/listings.csv",
			SyntheticRows: 10000,
			Seed:          42,
			MaxPrice:      20000,
			ScaleColumns: []string{
				"bedrooms", "bathrooms", "price_per_month",
				"price_per_bedroom", "amenity_score", "latitude", "longitude",
			},
		},
		Database: DatabaseConfig{
			Path:      "data/rentlens.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Models: ModelsConfig{
			Dir:            "data/models",
			RetainVersions: 3,
		},
		Fraud: FraudConfig{
			HeuristicWeight:     0.4,
			MLWeight:            0.6,
			FlagThreshold:       0.6,
			KeywordRisk:         0.05,
			KeywordRiskCap:      0.4,
			MaxLandlordListings: 20,
		},
		Recommend: RecommendConfig{
			ContentWeight:       0.6,
			CollaborativeWeight: 0.4,
			Factors:             10,
			Iterations:          80,
			LearningRate:        0.005,
			Regularization:      0.02,
			DefaultLimit:        10,
			MaxLimit:            50,
		},
		Pricing: PricingConfig{
			RangePercent:    0.15,
			DefaultPriceMin: 800,
			DefaultPriceMax: 2500,
		},
		Training: TrainingConfig{
			MinFraudSamples:       200,
			MinInteractions:       100,
			SyntheticInteractions: 5000,
			HoldoutFraction:       0.2,
			Seed:                  42,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// RENTLENS_FRAUD__FLAG_THRESHOLD -> fraud.flag_threshold
	envProvider := env.Provider(EnvPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps an environment variable name to a koanf path.
// The EnvPrefix is stripped, double underscores become nesting separators,
// and the result is lower-cased.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when supplied via environment variables.
var sliceConfigPaths = []string{
	"dataset.scale_columns",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		str, ok := val.(string)
		if !ok {
			continue
		}

		parts := strings.Split(str, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}

		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}

	return nil
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Dataset.SyntheticRows < 1 {
		return fmt.Errorf("dataset.synthetic_rows must be positive, got %d", c.Dataset.SyntheticRows)
	}
	if c.Dataset.MaxPrice <= 0 {
		return fmt.Errorf("dataset.max_price must be positive, got %f", c.Dataset.MaxPrice)
	}

	if c.Fraud.HeuristicWeight < 0 || c.Fraud.HeuristicWeight > 1 {
		return fmt.Errorf("fraud.heuristic_weight must be in [0, 1], got %f", c.Fraud.HeuristicWeight)
	}
	if c.Fraud.MLWeight < 0 || c.Fraud.MLWeight > 1 {
		return fmt.Errorf("fraud.ml_weight must be in [0, 1], got %f", c.Fraud.MLWeight)
	}
	if c.Fraud.FlagThreshold <= 0 || c.Fraud.FlagThreshold >= 1 {
		return fmt.Errorf("fraud.flag_threshold must be in (0, 1), got %f", c.Fraud.FlagThreshold)
	}

	if c.Recommend.ContentWeight < 0 || c.Recommend.CollaborativeWeight < 0 {
		return fmt.Errorf("recommend weights must be non-negative, got %f/%f",
			c.Recommend.ContentWeight, c.Recommend.CollaborativeWeight)
	}
	if c.Recommend.Factors < 1 {
		return fmt.Errorf("recommend.factors must be positive, got %d", c.Recommend.Factors)
	}
	if c.Recommend.Iterations < 1 {
		return fmt.Errorf("recommend.iterations must be positive, got %d", c.Recommend.Iterations)
	}
	if c.Recommend.LearningRate <= 0 {
		return fmt.Errorf("recommend.learning_rate must be positive, got %f", c.Recommend.LearningRate)
	}
	if c.Recommend.Regularization < 0 {
		return fmt.Errorf("recommend.regularization must be non-negative, got %f", c.Recommend.Regularization)
	}
	if c.Recommend.DefaultLimit < 1 {
		return fmt.Errorf("recommend.default_limit must be positive, got %d", c.Recommend.DefaultLimit)
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("recommend.max_limit must be >= recommend.default_limit, got %d < %d",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}

	if c.Pricing.RangePercent <= 0 || c.Pricing.RangePercent >= 1 {
		return fmt.Errorf("pricing.range_percent must be in (0, 1), got %f", c.Pricing.RangePercent)
	}
	if c.Pricing.DefaultPriceMax <= c.Pricing.DefaultPriceMin {
		return fmt.Errorf("pricing.default_price_max must exceed default_price_min, got %f <= %f",
			c.Pricing.DefaultPriceMax, c.Pricing.DefaultPriceMin)
	}

	if c.Training.HoldoutFraction <= 0 || c.Training.HoldoutFraction >= 1 {
		return fmt.Errorf("training.holdout_fraction must be in (0, 1), got %f", c.Training.HoldoutFraction)
	}

	return nil
}
