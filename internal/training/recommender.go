// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
	"github.com/rentlens/rentlens/internal/recommend"
	"github.com/rentlens/rentlens/internal/recommend/storage"
)

// Model names for the persisted recommender parts.
const (
	ContentModelName       = "content"
	CollaborativeModelName = "collaborative"
)

// RecommenderTrainer fits the content and collaborative models and persists
// both.
type RecommenderTrainer struct {
	cfg    Config
	recCfg recommend.Config
	store  *storage.Store
	logger zerolog.Logger
}

// NewRecommenderTrainer creates a trainer persisting into the given model
// store.
func NewRecommenderTrainer(cfg Config, recCfg recommend.Config, store *storage.Store) *RecommenderTrainer {
	return &RecommenderTrainer{
		cfg:    cfg,
		recCfg: recCfg,
		store:  store,
		logger: logging.With().Str("component", "training").Str("model", "recommender").Logger(),
	}
}

// Train fits both recommender models. A thin interaction log is replaced by
// synthetic user behavior over the processed listings, so the collaborative
// model always has something to learn from. Returns the trained engine's
// parts plus per-model results.
func (t *RecommenderTrainer) Train(ctx context.Context, proc *dataset.Processor, interactions []recommend.Interaction) (*recommend.ContentBased, *recommend.MatrixFactorization, []Result, error) {
	done := metrics.ObserveTraining("recommender")
	defer done()

	listings := proc.Listings()
	if len(listings) == 0 {
		metrics.TrainingRuns.WithLabelValues("recommender", "failed").Inc()
		return nil, nil, nil, fmt.Errorf("no listings to train recommender on")
	}

	augmented := false
	if len(interactions) < t.cfg.MinInteractions {
		t.logger.Warn().
			Int("interactions", len(interactions)).
			Int("floor", t.cfg.MinInteractions).
			Msg("interaction log too thin, synthesizing user behavior")
		interactions = t.synthesizeInteractions(listings)
		augmented = true
	}

	runID := uuid.NewString()

	content, contentResult, err := t.trainContent(ctx, proc, listings, runID)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("recommender", "failed").Inc()
		return nil, nil, nil, err
	}
	contentResult.Augmented = augmented

	collab, collabResult, err := t.trainCollaborative(ctx, interactions, runID)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("recommender", "failed").Inc()
		return nil, nil, nil, err
	}
	collabResult.Augmented = augmented

	metrics.TrainingRuns.WithLabelValues("recommender", "success").Inc()
	return content, collab, []Result{*contentResult, *collabResult}, nil
}

// trainContent builds property vectors and fits the content model.
func (t *RecommenderTrainer) trainContent(ctx context.Context, proc *dataset.Processor, listings []dataset.Listing, runID string) (*recommend.ContentBased, *Result, error) {
	vectors := make(map[string][]float64, len(listings))
	for i := range listings {
		if listings[i].ID == "" {
			continue
		}
		vectors[listings[i].ID] = proc.FeatureVector(&listings[i])
	}
	if len(vectors) == 0 {
		return nil, nil, fmt.Errorf("no listings carry IDs, cannot build content vectors")
	}

	content := recommend.NewContentBased()
	if err := content.Train(ctx, vectors, t.defaultProfile(proc, listings)); err != nil {
		return nil, nil, fmt.Errorf("failed to train content model: %w", err)
	}

	state, err := content.Export()
	if err != nil {
		return nil, nil, err
	}
	version, err := t.store.Save(ctx, ContentModelName, state, storage.ModelMetadata{
		RunID:   runID,
		Samples: len(vectors),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save content model: %w", err)
	}
	if err := t.store.Prune(ctx, ContentModelName, t.cfg.RetainVersions); err != nil {
		t.logger.Warn().Err(err).Msg("failed to prune old model versions")
	}
	metrics.ModelVersion.WithLabelValues(ContentModelName).Set(float64(version))

	t.logger.Info().
		Str("run_id", runID).
		Int("version", version).
		Int("properties", len(vectors)).
		Msg("content model trained")

	return content, &Result{
		RunID:   runID,
		Model:   ContentModelName,
		Version: version,
		Samples: len(vectors),
		Metrics: map[string]float64{},
	}, nil
}

// trainCollaborative fits matrix factorization with a holdout RMSE, then
// refits on the full log for the published model.
func (t *RecommenderTrainer) trainCollaborative(ctx context.Context, interactions []recommend.Interaction, runID string) (*recommend.MatrixFactorization, *Result, error) {
	rng := rand.New(rand.NewSource(t.cfg.Seed)) //nolint:gosec // deterministic split, not cryptography
	shuffled := make([]recommend.Interaction, len(interactions))
	copy(shuffled, interactions)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	holdout := int(float64(len(shuffled)) * t.cfg.HoldoutFraction)
	if holdout < 1 {
		holdout = 1
	}
	test, train := shuffled[:holdout], shuffled[holdout:]

	evalModel := recommend.NewMatrixFactorization(t.recCfg)
	if err := evalModel.Train(ctx, train); err != nil {
		return nil, nil, fmt.Errorf("failed to train collaborative model: %w", err)
	}
	rmse := holdoutRMSE(ctx, evalModel, test)

	final := recommend.NewMatrixFactorization(t.recCfg)
	if err := final.Train(ctx, interactions); err != nil {
		return nil, nil, fmt.Errorf("failed to train collaborative model: %w", err)
	}

	state, err := final.Export()
	if err != nil {
		return nil, nil, err
	}
	evalMetrics := map[string]float64{"rmse": rmse}
	version, err := t.store.Save(ctx, CollaborativeModelName, state, storage.ModelMetadata{
		RunID:   runID,
		Samples: len(interactions),
		Metrics: evalMetrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save collaborative model: %w", err)
	}
	if err := t.store.Prune(ctx, CollaborativeModelName, t.cfg.RetainVersions); err != nil {
		t.logger.Warn().Err(err).Msg("failed to prune old model versions")
	}
	metrics.ModelVersion.WithLabelValues(CollaborativeModelName).Set(float64(version))

	t.logger.Info().
		Str("run_id", runID).
		Int("version", version).
		Int("interactions", len(interactions)).
		Float64("rmse", rmse).
		Msg("collaborative model trained")

	return final, &Result{
		RunID:   runID,
		Model:   CollaborativeModelName,
		Version: version,
		Samples: len(interactions),
		Metrics: evalMetrics,
	}, nil
}

// holdoutRMSE measures rating prediction error on interactions whose user
// and property both appeared in training. Unmeasurable holdouts yield NaN-free 0.
func holdoutRMSE(ctx context.Context, m *recommend.MatrixFactorization, test []recommend.Interaction) float64 {
	var sqSum float64
	var n int
	for _, in := range test {
		rating := recommend.RatingFor(in.Type)
		if rating == 0 || !m.KnownUser(in.UserID) {
			continue
		}
		scores, err := m.Predict(ctx, in.UserID, []string{in.PropertyID})
		if err != nil {
			continue
		}
		score, ok := scores[in.PropertyID]
		if !ok {
			continue
		}
		diff := score*recommend.MaxRating - rating
		sqSum += diff * diff
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sqSum / float64(n))
}

// synthesizeInteractions simulates user behavior: each synthetic user has a
// home city and property type and interacts mostly with matching listings,
// with engagement depth falling off from view to contact.
func (t *RecommenderTrainer) synthesizeInteractions(listings []dataset.Listing) []recommend.Interaction {
	rng := rand.New(rand.NewSource(t.cfg.Seed + 2)) //nolint:gosec // deterministic generation, not cryptography

	byCity := make(map[string][]int)
	var cities []string
	for i := range listings {
		city := listings[i].City
		if city == "" || listings[i].ID == "" {
			continue
		}
		if len(byCity[city]) == 0 {
			cities = append(cities, city)
		}
		byCity[city] = append(byCity[city], i)
	}
	if len(cities) == 0 {
		return nil
	}

	userCount := t.cfg.SyntheticInteractions / 10
	if userCount < 10 {
		userCount = 10
	}

	out := make([]recommend.Interaction, 0, t.cfg.SyntheticInteractions)
	for len(out) < t.cfg.SyntheticInteractions {
		user := fmt.Sprintf("synthetic-user-%04d", rng.Intn(userCount))
		homeCity := cities[rng.Intn(len(cities))]

		pool := byCity[homeCity]
		// Occasionally browse outside the home city.
		if rng.Float64() < 0.15 {
			pool = byCity[cities[rng.Intn(len(cities))]]
		}
		listing := &listings[pool[rng.Intn(len(pool))]]

		out = append(out, recommend.Interaction{
			UserID:     user,
			PropertyID: listing.ID,
			Type:       drawInteractionType(rng),
			CreatedAt:  listing.CreatedAt,
		})
	}
	return out
}

// drawInteractionType samples with realistic engagement falloff.
func drawInteractionType(rng *rand.Rand) string {
	r := rng.Float64()
	switch {
	case r < 0.65:
		return "view"
	case r < 0.85:
		return "save"
	case r < 0.95:
		return "inquiry"
	default:
		return "contact"
	}
}

// defaultProfile builds the cold-start preference vector: a two-bed,
// one-bath property at the market median in the most common city.
func (t *RecommenderTrainer) defaultProfile(proc *dataset.Processor, listings []dataset.Listing) []float64 {
	cityCounts := make(map[string]int)
	typeCounts := make(map[string]int)
	var topCity, topType string
	for i := range listings {
		if c := listings[i].City; c != "" {
			cityCounts[c]++
			if cityCounts[c] > cityCounts[topCity] {
				topCity = c
			}
		}
		if pt := listings[i].PropertyType; pt != "" {
			typeCounts[pt]++
			if typeCounts[pt] > typeCounts[topType] {
				topType = pt
			}
		}
	}

	stats := proc.MarketStatistics("", "")
	pseudo := dataset.Listing{
		City:          topCity,
		PropertyType:  topType,
		Bedrooms:      2,
		Bathrooms:     1,
		PricePerMonth: stats.MedianPrice,
	}
	return proc.FeatureVector(&pseudo)
}
