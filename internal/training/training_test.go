// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package training

import (
	"context"
	"testing"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/fraud"
	"github.com/rentlens/rentlens/internal/recommend"
	"github.com/rentlens/rentlens/internal/recommend/storage"
)

func processedDataset(t *testing.T, rows int) *dataset.Processor {
	t.Helper()
	source := dataset.NewSyntheticSource(rows, 42)
	listings, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("synthetic load failed: %v", err)
	}

	cfg := dataset.DefaultProcessorConfig()
	cfg.SyntheticRows = rows
	proc := dataset.NewProcessor(cfg)
	if err := proc.Process(context.Background(), listings); err != nil {
		t.Fatalf("processing failed: %v", err)
	}
	return proc
}

func modelStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open model store: %v", err)
	}
	return s
}

func TestFraudTrainerEndToEnd(t *testing.T) {
	proc := processedDataset(t, 400)
	store := modelStore(t)

	trainer := NewFraudTrainer(DefaultConfig(), store)
	classifier, result, err := trainer.Train(context.Background(), proc.Listings(), map[string]int{}, proc)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	if !classifier.Trained {
		t.Fatal("expected trained classifier")
	}
	if result.Version != 1 {
		t.Errorf("expected version 1, got %d", result.Version)
	}
	if result.RunID == "" {
		t.Error("expected run ID")
	}
	if result.Samples < DefaultConfig().MinFraudSamples {
		t.Errorf("expected at least %d samples, got %d", DefaultConfig().MinFraudSamples, result.Samples)
	}

	for _, metric := range []string{"accuracy", "auc"} {
		if _, ok := result.Metrics[metric]; !ok {
			t.Errorf("expected %s in evaluation metrics, got %v", metric, result.Metrics)
		}
	}
	// Synthetic scam mutations are crudely separable; anything near chance
	// means the trainer broke.
	if result.Metrics["auc"] < 0.7 {
		t.Errorf("expected auc above 0.7 on separable data, got %v", result.Metrics["auc"])
	}

	// The saved model must round-trip.
	var loaded fraud.Classifier
	meta, err := store.LoadLatest(context.Background(), FraudModelName, &loaded)
	if err != nil {
		t.Fatalf("failed to load saved classifier: %v", err)
	}
	if !loaded.Trained {
		t.Error("loaded classifier not marked trained")
	}
	if meta.RunID != result.RunID {
		t.Errorf("metadata run ID %s != result run ID %s", meta.RunID, result.RunID)
	}
}

func TestFraudTrainerAugmentsThinData(t *testing.T) {
	proc := processedDataset(t, 30)
	store := modelStore(t)

	trainer := NewFraudTrainer(DefaultConfig(), store)
	_, result, err := trainer.Train(context.Background(), proc.Listings(), map[string]int{}, proc)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if !result.Augmented {
		t.Error("expected augmentation below the sample floor")
	}
	if result.Samples < DefaultConfig().MinFraudSamples {
		t.Errorf("expected floor %d met, got %d", DefaultConfig().MinFraudSamples, result.Samples)
	}
}

func TestFraudTrainerRejectsEmptyInput(t *testing.T) {
	trainer := NewFraudTrainer(DefaultConfig(), modelStore(t))
	proc := dataset.NewProcessor(dataset.DefaultProcessorConfig())
	if _, _, err := trainer.Train(context.Background(), nil, nil, proc); err == nil {
		t.Error("expected error for empty listing set")
	}
}

func TestRecommenderTrainerSynthesizesInteractions(t *testing.T) {
	proc := processedDataset(t, 300)
	store := modelStore(t)

	cfg := DefaultConfig()
	cfg.SyntheticInteractions = 2000
	trainer := NewRecommenderTrainer(cfg, recommend.DefaultConfig(), store)

	content, collab, results, err := trainer.Train(context.Background(), proc, nil)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	if !content.Trained() || !collab.Trained() {
		t.Fatal("expected both models trained")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Augmented {
			t.Errorf("model %s: expected augmentation with an empty log", r.Model)
		}
		if r.Version != 1 {
			t.Errorf("model %s: expected version 1, got %d", r.Model, r.Version)
		}
		if r.RunID != results[0].RunID {
			t.Error("both models must share one run ID")
		}
	}

	// The trained pair must answer recommendations end to end.
	engine := recommend.NewEngine(recommend.DefaultConfig(), content, collab)
	resp, err := engine.Recommend(context.Background(), recommend.Request{UserID: "synthetic-user-0001"}, nil)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(resp.Properties) == 0 {
		t.Error("expected recommendations from trained models")
	}
}

func TestRecommenderTrainerUsesRealInteractions(t *testing.T) {
	proc := processedDataset(t, 200)
	store := modelStore(t)

	listings := proc.Listings()
	var interactions []recommend.Interaction
	for i := 0; i < DefaultConfig().MinInteractions+50; i++ {
		interactions = append(interactions, recommend.Interaction{
			UserID:     "real-user-" + string(rune('a'+i%7)),
			PropertyID: listings[i%len(listings)].ID,
			Type:       []string{"view", "save", "inquiry", "contact"}[i%4],
		})
	}

	trainer := NewRecommenderTrainer(DefaultConfig(), recommend.DefaultConfig(), store)
	_, collab, results, err := trainer.Train(context.Background(), proc, interactions)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	for _, r := range results {
		if r.Augmented {
			t.Errorf("model %s: must not augment above the interaction floor", r.Model)
		}
	}
	if !collab.KnownUser("real-user-a") {
		t.Error("expected real users in the trained model")
	}

	var collabResult *Result
	for i := range results {
		if results[i].Model == CollaborativeModelName {
			collabResult = &results[i]
		}
	}
	if collabResult == nil {
		t.Fatal("missing collaborative result")
	}
	if _, ok := collabResult.Metrics["rmse"]; !ok {
		t.Errorf("expected rmse metric, got %v", collabResult.Metrics)
	}
	if collabResult.Metrics["rmse"] > recommend.MaxRating {
		t.Errorf("rmse %v exceeds the rating scale", collabResult.Metrics["rmse"])
	}
}

func TestTrainingVersionsIncrement(t *testing.T) {
	proc := processedDataset(t, 250)
	store := modelStore(t)
	trainer := NewFraudTrainer(DefaultConfig(), store)

	for want := 1; want <= 3; want++ {
		_, result, err := trainer.Train(context.Background(), proc.Listings(), nil, proc)
		if err != nil {
			t.Fatalf("run %d failed: %v", want, err)
		}
		if result.Version != want {
			t.Errorf("expected version %d, got %d", want, result.Version)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"tiny fraud floor", func(c *Config) { c.MinFraudSamples = 5 }, false},
		{"scam fraction one", func(c *Config) { c.ScamFraction = 1 }, false},
		{"synthetic below min", func(c *Config) { c.SyntheticInteractions = 10 }, false},
		{"huge holdout", func(c *Config) { c.HoldoutFraction = 0.5 }, false},
		{"zero retain", func(c *Config) { c.RetainVersions = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := Report{
		RunID: "run-abc",
		Results: []Result{
			{RunID: "run-abc", Model: FraudModelName, Version: 2, Samples: 500,
				Metrics: map[string]float64{"accuracy": 0.91}},
		},
	}

	path, err := WriteReport(dir, report)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := ReadReport(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if loaded.RunID != "run-abc" || len(loaded.Results) != 1 {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
	if loaded.Results[0].Metrics["accuracy"] != 0.91 {
		t.Errorf("metrics mismatch: %+v", loaded.Results[0].Metrics)
	}
	if loaded.CompletedAt.IsZero() {
		t.Error("expected CompletedAt assigned on write")
	}

	if _, err := WriteReport(dir, Report{}); err == nil {
		t.Error("expected error for report without run ID")
	}
}
