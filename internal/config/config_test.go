// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	// Ensure no config file is picked up from the working directory.
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load without config file should succeed: %v", err)
	}

	if cfg.Dataset.SyntheticRows != 10000 {
		t.Errorf("expected default synthetic_rows 10000, got %d", cfg.Dataset.SyntheticRows)
	}
	if cfg.Fraud.FlagThreshold != 0.6 {
		t.Errorf("expected default flag_threshold 0.6, got %f", cfg.Fraud.FlagThreshold)
	}
	if cfg.Recommend.ContentWeight != 0.6 || cfg.Recommend.CollaborativeWeight != 0.4 {
		t.Errorf("expected default hybrid weights 0.6/0.4, got %f/%f",
			cfg.Recommend.ContentWeight, cfg.Recommend.CollaborativeWeight)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("recommend:\n  factors: 20\nfraud:\n  flag_threshold: 0.7\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with config file failed: %v", err)
	}

	if cfg.Recommend.Factors != 20 {
		t.Errorf("yaml override should set factors=20, got %d", cfg.Recommend.Factors)
	}
	if cfg.Fraud.FlagThreshold != 0.7 {
		t.Errorf("yaml override should set flag_threshold=0.7, got %f", cfg.Fraud.FlagThreshold)
	}
	// Untouched sections keep defaults.
	if cfg.Recommend.Iterations != 80 {
		t.Errorf("unset fields should keep defaults, got iterations=%d", cfg.Recommend.Iterations)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RENTLENS_RECOMMEND__CONTENT_WEIGHT", "0.8")
	t.Setenv("RENTLENS_RECOMMEND__COLLABORATIVE_WEIGHT", "0.2")
	t.Setenv("RENTLENS_DATASET__SCALE_COLUMNS", "bedrooms, price_per_month")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with env overrides failed: %v", err)
	}

	if cfg.Recommend.ContentWeight != 0.8 {
		t.Errorf("env override should set content_weight=0.8, got %f", cfg.Recommend.ContentWeight)
	}
	if cfg.Recommend.CollaborativeWeight != 0.2 {
		t.Errorf("env override should set collaborative_weight=0.2, got %f", cfg.Recommend.CollaborativeWeight)
	}
	if len(cfg.Dataset.ScaleColumns) != 2 || cfg.Dataset.ScaleColumns[0] != "bedrooms" {
		t.Errorf("comma-separated env slice should parse, got %v", cfg.Dataset.ScaleColumns)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"RENTLENS_FRAUD__FLAG_THRESHOLD", "fraud.flag_threshold"},
		{"RENTLENS_LOGGING__LEVEL", "logging.level"},
		{"RENTLENS_DATASET__SYNTHETIC_ROWS", "dataset.synthetic_rows"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative synthetic rows", func(c *Config) { c.Dataset.SyntheticRows = 0 }},
		{"threshold out of range", func(c *Config) { c.Fraud.FlagThreshold = 1.5 }},
		{"zero factors", func(c *Config) { c.Recommend.Factors = 0 }},
		{"negative learning rate", func(c *Config) { c.Recommend.LearningRate = -1 }},
		{"max limit below default", func(c *Config) { c.Recommend.MaxLimit = 1 }},
		{"inverted price band", func(c *Config) { c.Pricing.DefaultPriceMax = 100 }},
		{"holdout out of range", func(c *Config) { c.Training.HoldoutFraction = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
