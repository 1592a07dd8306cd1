// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package fraud

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rentlens/rentlens/internal/dataset"
)

// staticMarket serves fixed statistics for every query.
type staticMarket struct {
	stats dataset.MarketStats
}

func (m staticMarket) MarketStatistics(city, propertyType string) dataset.MarketStats {
	return m.stats
}

func testMarket() staticMarket {
	return staticMarket{stats: dataset.MarketStats{
		AveragePrice: 2000, MedianPrice: 1900, StdDevPrice: 400, Count: 100,
	}}
}

func TestScoreObviousScam(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), nil)

	// 40% of market price, no images, scammy copy.
	result := s.Score(Input{
		Title:         "Urgent let, cash only",
		Description:   "Urgent! Cash only, no viewing possible, pay upfront to secure.",
		City:          "London",
		PropertyType:  "Flat",
		PricePerMonth: 800,
		ImageCount:    0,
	})

	if result.Score <= 0.6 {
		t.Errorf("expected obvious scam to score above 0.6, got %v", result.Score)
	}
	if !result.Flagged {
		t.Error("expected listing to be flagged")
	}
	if result.MLModelUsed {
		t.Error("expected heuristic-only path without a classifier")
	}
	if len(result.Reasons) == 0 {
		t.Fatal("expected fired-rule reasons")
	}

	joined := strings.Join(result.Reasons, "; ")
	for _, want := range []string{"half the market average", "no images", "suspicious phrase"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected reason containing %q, got %v", want, result.Reasons)
		}
	}
}

func TestScoreCleanListing(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), nil)

	result := s.Score(Input{
		Title:         "Beautiful 2 bed flat",
		Description:   "A spacious and bright flat in a lovely quiet area.",
		City:          "London",
		PropertyType:  "Flat",
		PricePerMonth: 1950,
		ImageCount:    6,
	})

	if result.Score != 0 {
		t.Errorf("expected clean listing to score 0, got %v (reasons %v)", result.Score, result.Reasons)
	}
	if result.Flagged {
		t.Error("clean listing must not be flagged")
	}
}

func TestHeuristicRules(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{
			"price below half",
			Input{PricePerMonth: 900, ImageCount: 5},
			0.4,
		},
		{
			"price above double",
			Input{PricePerMonth: 5000, ImageCount: 5},
			0.2,
		},
		{
			"price between bands",
			Input{PricePerMonth: 1300, ImageCount: 5},
			0,
		},
		{
			"single image",
			Input{PricePerMonth: 2000, ImageCount: 1},
			0.1,
		},
		{
			"two images",
			Input{PricePerMonth: 2000, ImageCount: 2},
			0.1,
		},
		{
			"three images",
			Input{PricePerMonth: 2000, ImageCount: 3},
			0,
		},
		{
			"zero images",
			Input{PricePerMonth: 2000, ImageCount: 0},
			0.2,
		},
		{
			"bulk lister",
			Input{PricePerMonth: 2000, ImageCount: 5, LandlordListingCount: 25},
			0.2,
		},
		{
			"two keywords",
			Input{Title: "urgent", Description: "cash only", PricePerMonth: 2000, ImageCount: 5},
			0.1,
		},
	}

	s := NewScorer(DefaultConfig(), testMarket(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := s.heuristicScore(tt.in, testMarket().stats)
			if got != tt.want {
				t.Errorf("expected heuristic %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScoreOverpricedListing(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), nil)

	// 2.5x the market average with otherwise clean signals.
	result := s.Score(Input{
		Title:         "Luxury flat",
		Description:   "A spacious and bright flat.",
		City:          "London",
		PropertyType:  "Flat",
		PricePerMonth: 5000,
		ImageCount:    5,
	})

	if result.Score != 0.2 {
		t.Errorf("expected overpriced listing to score 0.2, got %v", result.Score)
	}
	joined := strings.Join(result.Reasons, "; ")
	if !strings.Contains(joined, "above the market average") {
		t.Errorf("expected above-market reason, got %v", result.Reasons)
	}
}

// highConfidenceClassifier predicts sigmoid(bias) for every input.
func highConfidenceClassifier(bias float64) *Classifier {
	stds := make([]float64, FeatureCount)
	for i := range stds {
		stds[i] = 1
	}
	return &Classifier{
		Weights: make([]float64, FeatureCount),
		Bias:    bias,
		Means:   make([]float64, FeatureCount),
		Stds:    stds,
		Trained: true,
	}
}

func TestScoreAddsMLReasonAboveSeventyPercent(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), highConfidenceClassifier(5))

	result := s.Score(Input{
		Title:         "Beautiful 2 bed flat",
		Description:   "A spacious and bright flat in a lovely quiet area.",
		PricePerMonth: 1950,
		ImageCount:    6,
	})

	if !result.MLModelUsed {
		t.Fatal("expected classifier path")
	}
	if result.MLScore <= 0.7 {
		t.Fatalf("expected ML probability above 0.7, got %v", result.MLScore)
	}
	joined := strings.Join(result.Reasons, "; ")
	if !strings.Contains(joined, "ML model detected high fraud probability") {
		t.Errorf("expected ML reason, got %v", result.Reasons)
	}

	low := NewScorer(DefaultConfig(), testMarket(), highConfidenceClassifier(-5))
	result = low.Score(Input{PricePerMonth: 1950, ImageCount: 6})
	if strings.Contains(strings.Join(result.Reasons, "; "), "ML model") {
		t.Errorf("unexpected ML reason for low probability, got %v", result.Reasons)
	}
}

func TestFlagThresholdStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlagThreshold = 0.2

	s := NewScorer(cfg, testMarket(), nil)

	// Only the zero-images rule fires: score lands exactly on the threshold.
	atThreshold := s.Score(Input{PricePerMonth: 2000, ImageCount: 0})
	if atThreshold.Score != 0.2 {
		t.Fatalf("expected score exactly 0.2, got %v", atThreshold.Score)
	}
	if atThreshold.Flagged {
		t.Error("score equal to the threshold must not flag")
	}

	above := s.Score(Input{PricePerMonth: 900, ImageCount: 5})
	if !above.Flagged {
		t.Errorf("score %v above threshold must flag", above.Score)
	}
}

func TestFeatureVectorOrder(t *testing.T) {
	in := Input{
		Title:                "urgent",
		Description:          "cash only flat",
		PricePerMonth:        1200,
		Bedrooms:             3,
		Bathrooms:            2,
		ImageCount:           4,
		LandlordListingCount: 7,
	}
	stats := testMarket().stats // avg 2000, std 400

	got := Features(in, stats)
	want := []float64{
		3,    // bedrooms
		2,    // bathrooms
		1200, // price
		2,    // |1200 - 2000| / 400
		2,    // "urgent", "cash only"
		SentimentScore("urgent cash only flat"),
		4, // images
		7, // landlord listings
	}

	if len(got) != FeatureCount {
		t.Fatalf("expected %d features, got %d", FeatureCount, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("feature %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// A degenerate market clamps the z-score divisor to 1.
	flat := Features(in, dataset.MarketStats{AveragePrice: 1300})
	if flat[3] != 100 {
		t.Errorf("expected z-score divisor clamped to 1, got %v", flat[3])
	}
}

func TestKeywordRiskCapped(t *testing.T) {
	// Stack more phrases than the cap allows for.
	desc := "urgent wire transfer western union moneygram cash only no viewing " +
		"pay upfront send deposit money order overseas landlord gift card"
	s := NewScorer(DefaultConfig(), testMarket(), nil)

	got, reasons := s.heuristicScore(Input{
		Description: desc, PricePerMonth: 2000, ImageCount: 5,
	}, testMarket().stats)

	if got != DefaultConfig().KeywordRiskCap {
		t.Errorf("expected keyword risk capped at %v, got %v", DefaultConfig().KeywordRiskCap, got)
	}
	if len(reasons) < 8 {
		t.Errorf("expected every matched phrase reported, got %d reasons", len(reasons))
	}
}

func TestScoreAlwaysBounded(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), nil)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		in := Input{
			Title:                "urgent cash only no viewing",
			Description:          "wire transfer pay upfront send deposit overseas landlord",
			PricePerMonth:        rng.Float64() * 5000,
			ImageCount:           rng.Intn(3),
			LandlordListingCount: rng.Intn(50),
			Bedrooms:             float64(rng.Intn(5)),
		}
		result := s.Score(in)
		if result.Score < 0 || result.Score > 1 {
			t.Fatalf("score out of bounds: %v for %+v", result.Score, in)
		}
	}
}

func TestScoreBlendsClassifier(t *testing.T) {
	clf := trainSeparableClassifier(t)

	s := NewScorer(DefaultConfig(), testMarket(), clf)
	result := s.Score(Input{
		Title:         "Urgent, cash only",
		Description:   "No viewing, pay upfront.",
		PricePerMonth: 700,
		ImageCount:    0,
	})

	if !result.MLModelUsed {
		t.Fatal("expected classifier path")
	}
	want := clamp01(0.4*result.HeuristicScore + 0.6*result.MLScore)
	if result.Score != want {
		t.Errorf("expected blended score %v, got %v", want, result.Score)
	}
}

func TestScoreDegradesWithUntrainedClassifier(t *testing.T) {
	s := NewScorer(DefaultConfig(), testMarket(), &Classifier{})
	result := s.Score(Input{PricePerMonth: 1900, ImageCount: 5})
	if result.MLModelUsed {
		t.Error("untrained classifier must not be used")
	}
}

func TestClassifierLearnsSeparableData(t *testing.T) {
	clf := trainSeparableClassifier(t)

	scamProb, err := clf.Predict(Features(Input{
		Title: "urgent cash only", Description: "no viewing pay upfront",
		PricePerMonth: 600, ImageCount: 0,
	}, testMarket().stats))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	cleanProb, err := clf.Predict(Features(Input{
		Title: "Beautiful flat", Description: "A spacious and bright modern flat.",
		PricePerMonth: 1950, ImageCount: 6, Bathrooms: 1, Bedrooms: 2,
	}, testMarket().stats))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	if scamProb <= cleanProb {
		t.Errorf("expected scam probability %v > clean probability %v", scamProb, cleanProb)
	}
	if scamProb < 0.5 {
		t.Errorf("expected scam probability above 0.5, got %v", scamProb)
	}
}

func TestClassifierRejectsBadInput(t *testing.T) {
	clf := &Classifier{}
	if err := clf.Fit(nil, nil, DefaultTrainOptions()); err == nil {
		t.Error("expected error for empty training set")
	}
	if _, err := clf.Predict(make([]float64, FeatureCount)); err == nil {
		t.Error("expected error for untrained classifier")
	}

	trained := trainSeparableClassifier(t)
	if _, err := trained.Predict([]float64{1, 2}); err == nil {
		t.Error("expected error for wrong feature width")
	}
}

// trainSeparableClassifier fits a classifier on synthetic scam/clean samples.
func trainSeparableClassifier(t *testing.T) *Classifier {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	var features [][]float64
	var labels []float64
	for i := 0; i < 200; i++ {
		scam := i%2 == 0
		in := Input{
			PricePerMonth: 1800 + rng.Float64()*400,
			ImageCount:    4 + rng.Intn(4),
			Bathrooms:     float64(1 + rng.Intn(2)),
			Bedrooms:      float64(1 + rng.Intn(4)),
			Description:   "A spacious and bright modern flat in a lovely area.",
		}
		label := 0.0
		if scam {
			in.PricePerMonth = 400 + rng.Float64()*500
			in.ImageCount = rng.Intn(2)
			in.Description = "Urgent, cash only, no viewing, pay upfront."
			label = 1.0
		}
		features = append(features, Features(in, testMarket().stats))
		labels = append(labels, label)
	}

	clf := &Classifier{}
	if err := clf.Fit(features, labels, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return clf
}

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		sign int
	}{
		{"positive copy", "A beautiful spacious and modern flat.", 1},
		{"negative copy", "Urgent, act quickly, desperate landlord leaving.", -1},
		{"neutral copy", "Two bedroom property with kitchen.", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SentimentScore(tt.text)
			if got < -1 || got > 1 {
				t.Fatalf("sentiment out of bounds: %v", got)
			}
			switch {
			case tt.sign > 0 && got <= 0:
				t.Errorf("expected positive sentiment, got %v", got)
			case tt.sign < 0 && got >= 0:
				t.Errorf("expected negative sentiment, got %v", got)
			case tt.sign == 0 && got != 0:
				t.Errorf("expected neutral sentiment, got %v", got)
			}
		})
	}
}

func TestMatchKeywordsDistinct(t *testing.T) {
	hits := MatchKeywords("URGENT urgent Urgent cash only")
	if len(hits) != 2 {
		t.Errorf("expected 2 distinct phrases, got %v", hits)
	}
}
