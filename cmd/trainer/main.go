// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Command trainer runs one full training cycle: load the listings dataset
// (CSV via DuckDB, degrading to the synthetic generator), process it, train
// the fraud classifier and the recommender pair, and persist versioned
// models. It is designed to run as a batch job; the serving layer picks up
// the newest model versions on its next start.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/config"
	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/fraud"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/pricing"
	"github.com/rentlens/rentlens/internal/recommend"
	"github.com/rentlens/rentlens/internal/recommend/storage"
	"github.com/rentlens/rentlens/internal/service"
	"github.com/rentlens/rentlens/internal/store"
	"github.com/rentlens/rentlens/internal/training"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trainer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	dataPath := flag.String("data", "", "override listings CSV path")
	modelsDir := flag.String("models", "", "override model output directory")
	flag.Parse()

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	if *configPath != "" {
		os.Setenv("RENTLENS_CONFIG", *configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *dataPath != "" {
		cfg.Dataset.Path = *dataPath
	}
	if *modelsDir != "" {
		cfg.Models.Dir = *modelsDir
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.With().Str("component", "trainer").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	started := time.Now()

	// The database is preferred but not required: without it the run trains
	// on synthetic data and skips landlord counts and the interaction log.
	var db *store.Store
	if db, err = store.Open(ctx, store.Config{
		Path:      cfg.Database.Path,
		MaxMemory: cfg.Database.MaxMemory,
		Threads:   cfg.Database.Threads,
	}); err != nil {
		logger.Warn().Err(err).Msg("database unavailable, training on synthetic data only")
		db = nil
	} else {
		defer db.Close()
	}

	sources := make([]dataset.Source, 0, 2)
	if db != nil {
		sources = append(sources, store.NewSource(db, cfg.Dataset.Path))
	}
	sources = append(sources, dataset.NewSyntheticSource(cfg.Dataset.SyntheticRows, cfg.Dataset.Seed))

	rows, err := dataset.NewFallbackSource(sources...).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	proc := dataset.NewProcessor(dataset.ProcessorConfig{
		MaxPrice:      cfg.Dataset.MaxPrice,
		ScaleColumns:  cfg.Dataset.ScaleColumns,
		SyntheticRows: cfg.Dataset.SyntheticRows,
		Seed:          cfg.Dataset.Seed,
	})
	if err := proc.Process(ctx, rows); err != nil {
		return fmt.Errorf("failed to process dataset: %w", err)
	}
	logger.Info().Str("dataset", proc.Summary()).Msg("dataset ready")

	modelStore, err := storage.NewStore(cfg.Models.Dir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	trainCfg := training.DefaultConfig()
	trainCfg.MinFraudSamples = cfg.Training.MinFraudSamples
	trainCfg.MinInteractions = cfg.Training.MinInteractions
	trainCfg.SyntheticInteractions = cfg.Training.SyntheticInteractions
	trainCfg.HoldoutFraction = cfg.Training.HoldoutFraction
	trainCfg.RetainVersions = cfg.Models.RetainVersions
	trainCfg.Seed = cfg.Training.Seed
	if err := trainCfg.Validate(); err != nil {
		return fmt.Errorf("invalid training configuration: %w", err)
	}

	landlordCounts := map[string]int{}
	if db != nil {
		if counts, err := db.LandlordListingCounts(ctx); err != nil {
			logger.Warn().Err(err).Msg("landlord counts unavailable")
		} else {
			landlordCounts = counts
		}
	}

	fraudTrainer := training.NewFraudTrainer(trainCfg, modelStore)
	_, fraudResult, err := fraudTrainer.Train(ctx, proc.Listings(), landlordCounts, proc)
	if err != nil {
		return fmt.Errorf("fraud training failed: %w", err)
	}
	logResult(logger, fraudResult)

	recCfg := recommend.Config{
		ContentWeight:       cfg.Recommend.ContentWeight,
		CollaborativeWeight: cfg.Recommend.CollaborativeWeight,
		Factors:             cfg.Recommend.Factors,
		Iterations:          cfg.Recommend.Iterations,
		LearningRate:        cfg.Recommend.LearningRate,
		Regularization:      cfg.Recommend.Regularization,
		DefaultLimit:        cfg.Recommend.DefaultLimit,
		MaxLimit:            cfg.Recommend.MaxLimit,
	}
	if err := recCfg.Validate(); err != nil {
		return fmt.Errorf("invalid recommender configuration: %w", err)
	}

	interactions := loadInteractions(ctx, db, logger)
	recTrainer := training.NewRecommenderTrainer(trainCfg, recCfg, modelStore)
	_, _, recResults, err := recTrainer.Train(ctx, proc, interactions)
	if err != nil {
		return fmt.Errorf("recommender training failed: %w", err)
	}
	for i := range recResults {
		logResult(logger, &recResults[i])
	}

	report := training.Report{
		RunID:     fraudResult.RunID,
		StartedAt: started,
		Results:   append([]training.Result{*fraudResult}, recResults...),
	}
	if path, err := training.WriteReport(cfg.Models.Dir, report); err != nil {
		logger.Warn().Err(err).Msg("failed to write training report")
	} else {
		logger.Info().Str("path", path).Msg("training report written")
	}

	// Smoke-check: the persisted models must assemble into a working service.
	fraudCfg := fraud.Config{
		HeuristicWeight:     cfg.Fraud.HeuristicWeight,
		MLWeight:            cfg.Fraud.MLWeight,
		FlagThreshold:       cfg.Fraud.FlagThreshold,
		KeywordRisk:         cfg.Fraud.KeywordRisk,
		KeywordRiskCap:      cfg.Fraud.KeywordRiskCap,
		MaxLandlordListings: cfg.Fraud.MaxLandlordListings,
	}
	if err := fraudCfg.Validate(); err != nil {
		return fmt.Errorf("invalid fraud configuration: %w", err)
	}
	pricingCfg := pricing.Config{
		RangePercent:    cfg.Pricing.RangePercent,
		DefaultPriceMin: cfg.Pricing.DefaultPriceMin,
		DefaultPriceMax: cfg.Pricing.DefaultPriceMax,
	}
	if err := pricingCfg.Validate(); err != nil {
		return fmt.Errorf("invalid pricing configuration: %w", err)
	}

	registry := service.NewRegistry(modelStore, fraudCfg, pricingCfg, recCfg)
	var reader service.InteractionReader
	if db != nil {
		reader = db
	}
	svc := registry.Build(ctx, proc, reader, landlordCounts)
	estimate := svc.EstimatePrice(ctx, pricing.Request{City: "London", PropertyType: "Flat", Bedrooms: 2, Bathrooms: 1})
	logger.Info().
		Float64("london_2bed_flat_estimate", estimate.Price).
		Float64("confidence", estimate.Confidence).
		Msg("training cycle complete")

	return nil
}

// loadInteractions reads the interaction log, empty when no database is
// available.
func loadInteractions(ctx context.Context, db *store.Store, logger zerolog.Logger) []recommend.Interaction {
	if db == nil {
		return nil
	}
	logged, err := db.ListInteractions(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("interaction log unavailable")
		return nil
	}

	out := make([]recommend.Interaction, 0, len(logged))
	for _, in := range logged {
		out = append(out, recommend.Interaction{
			UserID:     in.UserID,
			PropertyID: in.PropertyID,
			Type:       in.Type,
			CreatedAt:  in.CreatedAt,
		})
	}
	return out
}

// logResult emits one training result line.
func logResult(logger zerolog.Logger, result *training.Result) {
	event := logger.Info().
		Str("run_id", result.RunID).
		Str("model", result.Model).
		Int("version", result.Version).
		Int("samples", result.Samples).
		Bool("augmented", result.Augmented)
	for name, value := range result.Metrics {
		event = event.Float64(name, value)
	}
	event.Msg("model trained")
}
