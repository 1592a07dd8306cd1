// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package training

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/fraud"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
	"github.com/rentlens/rentlens/internal/recommend/storage"
)

// FraudModelName is the persisted classifier's model name.
const FraudModelName = "fraud_classifier"

// scamMutations are the templates applied when synthesizing positive
// training samples from clean listings.
var scamMutations = []string{
	"Urgent! Must go this week, cash only.",
	"No viewing possible, landlord is an overseas landlord. Pay upfront to secure.",
	"Send deposit by wire transfer today, keys by post.",
	"First come first served, western union accepted, act fast.",
}

// FraudTrainer assembles labeled samples, fits the logistic regression
// classifier and persists the result.
type FraudTrainer struct {
	cfg    Config
	store  *storage.Store
	logger zerolog.Logger
}

// NewFraudTrainer creates a trainer persisting into the given model store.
func NewFraudTrainer(cfg Config, store *storage.Store) *FraudTrainer {
	return &FraudTrainer{
		cfg:    cfg,
		store:  store,
		logger: logging.With().Str("component", "training").Str("model", FraudModelName).Logger(),
	}
}

// labeledSample pairs a feature vector with its fraud label.
type labeledSample struct {
	features []float64
	label    float64
}

// Train builds the training set from processed listings, fits and evaluates
// the classifier, and saves a new model version. The returned classifier is
// ready for scoring.
func (t *FraudTrainer) Train(ctx context.Context, listings []dataset.Listing, landlordCounts map[string]int, market fraud.MarketProvider) (*fraud.Classifier, *Result, error) {
	done := metrics.ObserveTraining(FraudModelName)
	defer done()

	samples, augmented := t.buildSamples(listings, landlordCounts, market)
	if len(samples) == 0 {
		metrics.TrainingRuns.WithLabelValues(FraudModelName, "failed").Inc()
		return nil, nil, fmt.Errorf("no fraud training samples could be built")
	}

	rng := rand.New(rand.NewSource(t.cfg.Seed)) //nolint:gosec // deterministic split, not cryptography
	rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

	holdout := int(float64(len(samples)) * t.cfg.HoldoutFraction)
	if holdout < 1 {
		holdout = 1
	}
	test, train := samples[:holdout], samples[holdout:]

	features := make([][]float64, len(train))
	labels := make([]float64, len(train))
	for i, s := range train {
		features[i] = s.features
		labels[i] = s.label
	}

	classifier := &fraud.Classifier{}
	opts := fraud.DefaultTrainOptions()
	opts.Seed = t.cfg.Seed
	if err := classifier.Fit(features, labels, opts); err != nil {
		metrics.TrainingRuns.WithLabelValues(FraudModelName, "failed").Inc()
		return nil, nil, fmt.Errorf("failed to fit fraud classifier: %w", err)
	}

	evalMetrics := evaluateClassifier(classifier, test)

	runID := uuid.NewString()
	version, err := t.store.Save(ctx, FraudModelName, classifier, storage.ModelMetadata{
		RunID:   runID,
		Samples: len(samples),
		Metrics: evalMetrics,
	})
	if err != nil {
		metrics.TrainingRuns.WithLabelValues(FraudModelName, "failed").Inc()
		return nil, nil, fmt.Errorf("failed to save fraud classifier: %w", err)
	}
	if err := t.store.Prune(ctx, FraudModelName, t.cfg.RetainVersions); err != nil {
		t.logger.Warn().Err(err).Msg("failed to prune old model versions")
	}

	metrics.TrainingRuns.WithLabelValues(FraudModelName, "success").Inc()
	metrics.ModelVersion.WithLabelValues(FraudModelName).Set(float64(version))

	t.logger.Info().
		Str("run_id", runID).
		Int("version", version).
		Int("samples", len(samples)).
		Bool("augmented", augmented).
		Float64("accuracy", evalMetrics["accuracy"]).
		Float64("auc", evalMetrics["auc"]).
		Msg("fraud classifier trained")

	return classifier, &Result{
		RunID:     runID,
		Model:     FraudModelName,
		Version:   version,
		Samples:   len(samples),
		Metrics:   evalMetrics,
		Augmented: augmented,
	}, nil
}

// buildSamples labels real listings as clean and synthesizes scam variants.
// Below the sample floor the whole set is cloned with mutations until the
// floor is met.
func (t *FraudTrainer) buildSamples(listings []dataset.Listing, landlordCounts map[string]int, market fraud.MarketProvider) ([]labeledSample, bool) {
	rng := rand.New(rand.NewSource(t.cfg.Seed + 1)) //nolint:gosec // deterministic generation, not cryptography

	var samples []labeledSample
	appendSample := func(l *dataset.Listing, scam bool) {
		stats := market.MarketStatistics(l.City, l.PropertyType)
		in := fraud.Input{
			Title:                l.Title,
			Description:          l.Description,
			City:                 l.City,
			PropertyType:         l.PropertyType,
			PricePerMonth:        l.PricePerMonth,
			Bedrooms:             l.Bedrooms,
			Bathrooms:            l.Bathrooms,
			ImageCount:           len(l.ImageURLs),
			LandlordListingCount: landlordCounts[l.LandlordID],
		}
		label := 0.0
		if scam {
			mutateToScam(&in, rng)
			label = 1
		}
		samples = append(samples, labeledSample{
			features: fraud.Features(in, stats),
			label:    label,
		})
	}

	for i := range listings {
		scam := rng.Float64() < t.cfg.ScamFraction
		appendSample(&listings[i], scam)
	}

	augmented := false
	for len(samples) < t.cfg.MinFraudSamples && len(listings) > 0 {
		augmented = true
		l := listings[rng.Intn(len(listings))]
		appendSample(&l, rng.Float64() < t.cfg.ScamFraction)
	}

	return samples, augmented
}

// mutateToScam rewrites a clean input into a scam-shaped one.
func mutateToScam(in *fraud.Input, rng *rand.Rand) {
	in.PricePerMonth *= 0.3 + rng.Float64()*0.2
	in.ImageCount = rng.Intn(2)
	in.Description = strings.TrimSpace(in.Description + " " + scamMutations[rng.Intn(len(scamMutations))])
	if rng.Float64() < 0.3 {
		in.LandlordListingCount = 25 + rng.Intn(30)
	}
}

// evaluateClassifier computes accuracy, precision, recall and AUC over the
// holdout at the 0.5 decision threshold.
func evaluateClassifier(c *fraud.Classifier, test []labeledSample) map[string]float64 {
	if len(test) == 0 {
		return map[string]float64{}
	}

	preds := make([]prediction, 0, len(test))

	var tp, fp, tn, fn float64
	for _, s := range test {
		prob, err := c.Predict(s.features)
		if err != nil {
			continue
		}
		preds = append(preds, prediction{prob: prob, label: s.label})

		positive := prob >= 0.5
		switch {
		case positive && s.label == 1:
			tp++
		case positive && s.label == 0:
			fp++
		case !positive && s.label == 0:
			tn++
		default:
			fn++
		}
	}

	total := tp + fp + tn + fn
	out := map[string]float64{}
	if total > 0 {
		out["accuracy"] = (tp + tn) / total
	}
	if tp+fp > 0 {
		out["precision"] = tp / (tp + fp)
	}
	if tp+fn > 0 {
		out["recall"] = tp / (tp + fn)
	}
	out["auc"] = rocAUC(preds)
	return out
}

// prediction pairs a predicted probability with its true label.
type prediction struct {
	prob  float64
	label float64
}

// rocAUC computes the area under the ROC curve via the rank statistic.
func rocAUC(preds []prediction) float64 {
	sort.Slice(preds, func(i, j int) bool { return preds[i].prob < preds[j].prob })

	var positives, negatives, rankSum float64
	for rank, p := range preds {
		if p.label == 1 {
			positives++
			rankSum += float64(rank + 1)
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0.5
	}
	return (rankSum - positives*(positives+1)/2) / (positives * negatives)
}
