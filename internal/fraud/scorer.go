// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package fraud scores rental listings for scam likelihood.
//
// The score blends two layers: a transparent rule-based heuristic (price
// deviation, scam phrases, image count, landlord posting volume) and a
// trained logistic regression classifier. When no trained classifier is
// available the heuristic answers alone, so scoring never fails; the Result
// records which path produced the score.
package fraud

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
)

// Config tunes the heuristic rules and the heuristic/ML blend.
type Config struct {
	// HeuristicWeight and MLWeight blend the two layers when a trained
	// classifier is available. They should sum to 1.
	HeuristicWeight float64 `json:"heuristic_weight"`
	MLWeight        float64 `json:"ml_weight"`

	// FlagThreshold marks a listing as flagged when the final score
	// reaches it.
	FlagThreshold float64 `json:"flag_threshold"`

	// KeywordRisk is added per matched scam phrase, up to KeywordRiskCap.
	KeywordRisk    float64 `json:"keyword_risk"`
	KeywordRiskCap float64 `json:"keyword_risk_cap"`

	// MaxLandlordListings is the posting volume above which the bulk-lister
	// rule fires.
	MaxLandlordListings int `json:"max_landlord_listings"`
}

// DefaultConfig returns production rule weights.
func DefaultConfig() Config {
	return Config{
		HeuristicWeight:     0.4,
		MLWeight:            0.6,
		FlagThreshold:       0.6,
		KeywordRisk:         0.05,
		KeywordRiskCap:      0.4,
		MaxLandlordListings: 20,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.HeuristicWeight < 0 || c.MLWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative")
	}
	if math.Abs(c.HeuristicWeight+c.MLWeight-1) > 1e-9 {
		return fmt.Errorf("blend weights must sum to 1, got %v", c.HeuristicWeight+c.MLWeight)
	}
	if c.FlagThreshold <= 0 || c.FlagThreshold > 1 {
		return fmt.Errorf("flag threshold must be in (0, 1], got %v", c.FlagThreshold)
	}
	if c.KeywordRisk < 0 || c.KeywordRiskCap < 0 {
		return fmt.Errorf("keyword risk values must be non-negative")
	}
	if c.MaxLandlordListings < 1 {
		return fmt.Errorf("max landlord listings must be at least 1, got %d", c.MaxLandlordListings)
	}
	return nil
}

// Input is everything the scorer knows about one listing at scoring time.
type Input struct {
	Title                string
	Description          string
	City                 string
	PropertyType         string
	PricePerMonth        float64
	Bedrooms             float64
	Bathrooms            float64
	ImageCount           int
	LandlordListingCount int
}

// Result is the scoring outcome. Score is always in [0, 1]; Reasons lists
// every rule that fired in human-readable form.
type Result struct {
	Score          float64              `json:"fraud_score"`
	HeuristicScore float64              `json:"heuristic_score"`
	MLScore        float64              `json:"ml_score,omitempty"`
	MLModelUsed    bool                 `json:"ml_model_used"`
	Flagged        bool                 `json:"flagged"`
	Reasons        []string             `json:"reasons"`
	PriceAnomaly   dataset.PriceAnomaly `json:"price_anomaly"`
	Sentiment      float64              `json:"sentiment"`
}

// MarketProvider supplies market statistics for the heuristic price rules.
type MarketProvider interface {
	MarketStatistics(city, propertyType string) dataset.MarketStats
}

// Scorer combines the heuristic rules with an optional trained classifier.
type Scorer struct {
	cfg        Config
	market     MarketProvider
	classifier *Classifier
	logger     zerolog.Logger
}

// NewScorer creates a scorer. classifier may be nil or untrained; the
// heuristic path then answers alone.
func NewScorer(cfg Config, market MarketProvider, classifier *Classifier) *Scorer {
	return &Scorer{
		cfg:        cfg,
		market:     market,
		classifier: classifier,
		logger:     logging.With().Str("component", "fraud").Logger(),
	}
}

// Score evaluates one listing. It never returns an error: a missing market
// slice degrades to default statistics and a missing classifier degrades to
// the heuristic-only path.
func (s *Scorer) Score(in Input) Result {
	stats := s.market.MarketStatistics(in.City, in.PropertyType)
	anomaly := dataset.ClassifyPriceAnomaly(in.PricePerMonth, stats)

	heuristic, reasons := s.heuristicScore(in, stats)

	result := Result{
		HeuristicScore: heuristic,
		Reasons:        reasons,
		PriceAnomaly:   anomaly,
		Sentiment:      SentimentScore(in.Title + " " + in.Description),
	}

	if s.classifier != nil && s.classifier.Trained {
		ml, err := s.classifier.Predict(Features(in, stats))
		if err == nil {
			result.MLScore = ml
			result.MLModelUsed = true
			result.Score = clamp01(s.cfg.HeuristicWeight*heuristic + s.cfg.MLWeight*ml)
			if ml > 0.7 {
				result.Reasons = append(result.Reasons, "ML model detected high fraud probability")
			}
		}
	}
	if !result.MLModelUsed {
		metrics.FraudMLUnavailable.Inc()
		result.Score = clamp01(heuristic)
	}

	result.Flagged = result.Score > s.cfg.FlagThreshold
	metrics.FraudScores.Observe(result.Score)
	if result.Flagged {
		metrics.FraudFlagged.Inc()
		s.logger.Info().
			Float64("score", result.Score).
			Bool("ml_model_used", result.MLModelUsed).
			Strs("reasons", result.Reasons).
			Msg("listing flagged")
	}

	return result
}

// heuristicScore applies the rule layers and returns the summed score with
// the fired-rule reasons.
func (s *Scorer) heuristicScore(in Input, stats dataset.MarketStats) (float64, []string) {
	var score float64
	reasons := make([]string, 0, 4)

	// Price rules: suspiciously cheap listings are the classic scam shape;
	// heavily overpriced ones are a weaker signal. At most one band fires.
	avg := stats.AveragePrice
	if avg > 0 && in.PricePerMonth > 0 {
		switch {
		case in.PricePerMonth < avg*0.5:
			score += 0.4
			reasons = append(reasons, fmt.Sprintf(
				"price £%.0f is less than half the market average £%.0f", in.PricePerMonth, avg))
		case in.PricePerMonth > avg*2:
			score += 0.2
			reasons = append(reasons, fmt.Sprintf(
				"price £%.0f is significantly above the market average £%.0f", in.PricePerMonth, avg))
		}
	}

	// Scam phrase rule.
	if hits := MatchKeywords(in.Title + " " + in.Description); len(hits) > 0 {
		risk := math.Min(float64(len(hits))*s.cfg.KeywordRisk, s.cfg.KeywordRiskCap)
		score += risk
		for _, kw := range hits {
			reasons = append(reasons, fmt.Sprintf("suspicious phrase: %q", kw))
		}
	}

	// Image rules: scam listings rarely carry real photos.
	switch in.ImageCount {
	case 0:
		score += 0.2
		reasons = append(reasons, "listing has no images")
	case 1, 2:
		score += 0.1
		reasons = append(reasons, "listing has very few images")
	}

	// Posting volume rule.
	if in.LandlordListingCount > s.cfg.MaxLandlordListings {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf(
			"landlord has %d active listings", in.LandlordListingCount))
	}

	return clamp01(score), reasons
}

// clamp01 bounds a score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
