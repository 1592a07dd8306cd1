// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package fraud

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rentlens/rentlens/internal/dataset"
)

// FeatureCount is the fixed width of the classifier's input vector. The
// order is part of the persisted model contract; changing it invalidates
// saved weights.
const FeatureCount = 8

// Features builds the classifier input vector for a listing: bedrooms,
// bathrooms, price, price z-score against the listing's market slice,
// suspicious-keyword count, sentiment, image count and landlord listing
// count. The same builder runs at training and inference time so the two
// can never drift.
func Features(in Input, stats dataset.MarketStats) []float64 {
	text := in.Title + " " + in.Description
	std := stats.StdDevPrice
	if std < 1 {
		std = 1
	}

	return []float64{
		in.Bedrooms,
		in.Bathrooms,
		in.PricePerMonth,
		math.Abs(in.PricePerMonth-stats.AveragePrice) / std,
		float64(len(MatchKeywords(text))),
		SentimentScore(text),
		float64(in.ImageCount),
		float64(in.LandlordListingCount),
	}
}

// Classifier is a logistic regression fraud model trained with SGD.
// Zero-valued classifiers report Trained=false and must not be used for
// prediction; callers fall back to the heuristic-only path.
type Classifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Trained bool      `json:"trained"`

	// Normalization parameters fitted over the training matrix.
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// TrainOptions tunes the SGD loop.
type TrainOptions struct {
	Epochs         int
	LearningRate   float64
	Regularization float64
	Seed           int64
}

// DefaultTrainOptions returns the production hyperparameters.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:         50,
		LearningRate:   0.05,
		Regularization: 0.001,
		Seed:           42,
	}
}

// Fit trains the classifier on a feature matrix and binary labels.
func (c *Classifier) Fit(features [][]float64, labels []float64, opts TrainOptions) error {
	if len(features) == 0 {
		return fmt.Errorf("no training samples")
	}
	if len(features) != len(labels) {
		return fmt.Errorf("feature/label length mismatch: %d vs %d", len(features), len(labels))
	}
	for i, row := range features {
		if len(row) != FeatureCount {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), FeatureCount)
		}
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}

	c.fitNormalization(features)
	normalized := make([][]float64, len(features))
	for i, row := range features {
		normalized[i] = c.normalize(row)
	}

	c.Weights = make([]float64, FeatureCount)
	c.Bias = 0

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // deterministic shuffling, not cryptography
	order := rng.Perm(len(normalized))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, idx := range order {
			row := normalized[idx]
			pred := sigmoid(c.logit(row))
			grad := pred - labels[idx]

			for f := 0; f < FeatureCount; f++ {
				c.Weights[f] -= opts.LearningRate * (grad*row[f] + opts.Regularization*c.Weights[f])
			}
			c.Bias -= opts.LearningRate * grad
		}
	}

	c.Trained = true
	return nil
}

// Predict returns the fraud probability for a feature vector in [0, 1].
func (c *Classifier) Predict(features []float64) (float64, error) {
	if !c.Trained {
		return 0, fmt.Errorf("classifier not trained")
	}
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("got %d features, want %d", len(features), FeatureCount)
	}
	return sigmoid(c.logit(c.normalize(features))), nil
}

// fitNormalization captures per-feature mean and std over the training set.
func (c *Classifier) fitNormalization(features [][]float64) {
	c.Means = make([]float64, FeatureCount)
	c.Stds = make([]float64, FeatureCount)

	n := float64(len(features))
	for f := 0; f < FeatureCount; f++ {
		var sum float64
		for _, row := range features {
			sum += row[f]
		}
		c.Means[f] = sum / n

		var sqSum float64
		for _, row := range features {
			d := row[f] - c.Means[f]
			sqSum += d * d
		}
		c.Stds[f] = math.Sqrt(sqSum / n)
		if c.Stds[f] < 1e-9 {
			c.Stds[f] = 1
		}
	}
}

// normalize standardizes a vector with the fitted parameters.
func (c *Classifier) normalize(features []float64) []float64 {
	if len(c.Means) != FeatureCount {
		return features
	}
	out := make([]float64, FeatureCount)
	for f := 0; f < FeatureCount; f++ {
		out[f] = (features[f] - c.Means[f]) / c.Stds[f]
	}
	return out
}

// logit computes the linear score for a normalized vector.
func (c *Classifier) logit(features []float64) float64 {
	z := c.Bias
	for f := 0; f < FeatureCount && f < len(c.Weights); f++ {
		z += c.Weights[f] * features[f]
	}
	return z
}

// sigmoid maps a logit onto (0, 1).
func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
