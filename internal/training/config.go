// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package training orchestrates model training runs: assembling labeled
// data, augmenting thin datasets with synthetic samples, fitting, holdout
// evaluation and versioned persistence. Each run carries a UUID and records
// its evaluation metrics in the saved model's metadata.
package training

import "fmt"

// Config tunes both trainers.
type Config struct {
	// MinFraudSamples is the labeled-sample floor below which the fraud
	// trainer augments with synthetic scam/clean listings.
	MinFraudSamples int `json:"min_fraud_samples"`

	// ScamFraction is the share of synthetic samples given scam mutations.
	ScamFraction float64 `json:"scam_fraction"`

	// MinInteractions is the interaction floor below which the recommender
	// trainer synthesizes user behavior; SyntheticInteractions is how many
	// it generates.
	MinInteractions       int `json:"min_interactions"`
	SyntheticInteractions int `json:"synthetic_interactions"`

	// HoldoutFraction reserves a slice of the data for evaluation.
	HoldoutFraction float64 `json:"holdout_fraction"`

	// RetainVersions bounds saved model versions per model name.
	RetainVersions int `json:"retain_versions"`

	Seed int64 `json:"seed"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinFraudSamples:       200,
		ScamFraction:          0.15,
		MinInteractions:       100,
		SyntheticInteractions: 5000,
		HoldoutFraction:       0.2,
		RetainVersions:        3,
		Seed:                  42,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinFraudSamples < 10 {
		return fmt.Errorf("min fraud samples must be at least 10, got %d", c.MinFraudSamples)
	}
	if c.ScamFraction <= 0 || c.ScamFraction >= 1 {
		return fmt.Errorf("scam fraction must be in (0, 1), got %v", c.ScamFraction)
	}
	if c.MinInteractions < 1 || c.SyntheticInteractions < c.MinInteractions {
		return fmt.Errorf("invalid interaction floors: min %d, synthetic %d", c.MinInteractions, c.SyntheticInteractions)
	}
	if c.HoldoutFraction <= 0 || c.HoldoutFraction >= 0.5 {
		return fmt.Errorf("holdout fraction must be in (0, 0.5), got %v", c.HoldoutFraction)
	}
	if c.RetainVersions < 1 {
		return fmt.Errorf("retain versions must be at least 1, got %d", c.RetainVersions)
	}
	return nil
}

// Result summarizes one training run.
type Result struct {
	RunID   string             `json:"run_id"`
	Model   string             `json:"model"`
	Version int                `json:"version"`
	Samples int                `json:"samples"`
	Metrics map[string]float64 `json:"metrics"`

	// Augmented reports whether synthetic data was mixed in.
	Augmented bool `json:"augmented"`
}
