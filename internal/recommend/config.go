// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package recommend

import "fmt"

// Config tunes the hybrid engine and the matrix factorization trainer.
type Config struct {
	// ContentWeight and CollaborativeWeight blend the two algorithms'
	// normalized scores. They should sum to 1.
	ContentWeight       float64 `json:"content_weight"`
	CollaborativeWeight float64 `json:"collaborative_weight"`

	// Matrix factorization hyperparameters.
	Factors        int     `json:"factors"`
	Iterations     int     `json:"iterations"`
	LearningRate   float64 `json:"learning_rate"`
	Regularization float64 `json:"regularization"`

	// DefaultLimit applies when a request omits Limit; MaxLimit caps it.
	DefaultLimit int `json:"default_limit"`
	MaxLimit     int `json:"max_limit"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ContentWeight:       0.6,
		CollaborativeWeight: 0.4,
		Factors:             10,
		Iterations:          80,
		LearningRate:        0.005,
		Regularization:      0.02,
		DefaultLimit:        10,
		MaxLimit:            50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ContentWeight < 0 || c.CollaborativeWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative")
	}
	if c.ContentWeight+c.CollaborativeWeight <= 0 {
		return fmt.Errorf("at least one blend weight must be positive")
	}
	if c.Factors < 1 {
		return fmt.Errorf("factors must be at least 1, got %d", c.Factors)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	if c.Regularization < 0 {
		return fmt.Errorf("regularization must be non-negative, got %v", c.Regularization)
	}
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("invalid limits: default %d, max %d", c.DefaultLimit, c.MaxLimit)
	}
	return nil
}
