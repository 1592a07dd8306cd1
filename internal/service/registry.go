// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/fraud"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/pricing"
	"github.com/rentlens/rentlens/internal/recommend"
	"github.com/rentlens/rentlens/internal/recommend/storage"
	"github.com/rentlens/rentlens/internal/training"
)

// Registry assembles a Service from persisted models. Every model is
// optional: a missing fraud classifier degrades scoring to heuristics and a
// missing recommender pair disables only GetRecommendations. The registry
// never fails outright because of absent model files.
type Registry struct {
	modelStore *storage.Store
	fraudCfg   fraud.Config
	pricingCfg pricing.Config
	recCfg     recommend.Config
	logger     zerolog.Logger
}

// NewRegistry creates a registry over a model store.
func NewRegistry(modelStore *storage.Store, fraudCfg fraud.Config, pricingCfg pricing.Config, recCfg recommend.Config) *Registry {
	return &Registry{
		modelStore: modelStore,
		fraudCfg:   fraudCfg,
		pricingCfg: pricingCfg,
		recCfg:     recCfg,
		logger:     logging.With().Str("component", "registry").Logger(),
	}
}

// Build loads the latest persisted models and wires the service around a
// processed dataset.
func (r *Registry) Build(ctx context.Context, proc *dataset.Processor, interactions InteractionReader, landlordCounts map[string]int) *Service {
	classifier := r.loadClassifier(ctx)
	engine := r.loadEngine(ctx)

	return New(
		proc,
		pricing.NewEstimator(r.pricingCfg, proc),
		fraud.NewScorer(r.fraudCfg, proc, classifier),
		engine,
		interactions,
		landlordCounts,
	)
}

// loadClassifier fetches the newest fraud model, nil when none exists.
func (r *Registry) loadClassifier(ctx context.Context) *fraud.Classifier {
	var classifier fraud.Classifier
	meta, err := r.modelStore.LoadLatest(ctx, training.FraudModelName, &classifier)
	if err != nil {
		r.logger.Warn().Err(err).Msg("fraud classifier unavailable, scoring with heuristics only")
		return nil
	}
	r.logger.Info().
		Int("version", meta.Version).
		Str("run_id", meta.RunID).
		Msg("fraud classifier loaded")
	return &classifier
}

// loadEngine fetches the newest recommender pair, nil when the content
// model is missing. A missing collaborative model still yields a
// content-only engine.
func (r *Registry) loadEngine(ctx context.Context) *recommend.Engine {
	var contentState recommend.ContentState
	meta, err := r.modelStore.LoadLatest(ctx, training.ContentModelName, &contentState)
	if err != nil {
		r.logger.Warn().Err(err).Msg("content model unavailable, recommendations disabled")
		return nil
	}
	content := recommend.NewContentBased()
	if err := content.Restore(&contentState); err != nil {
		r.logger.Warn().Err(err).Msg("content model state invalid, recommendations disabled")
		return nil
	}
	r.logger.Info().Int("version", meta.Version).Msg("content model loaded")

	var collab *recommend.MatrixFactorization
	var mfState recommend.MFState
	if meta, err := r.modelStore.LoadLatest(ctx, training.CollaborativeModelName, &mfState); err != nil {
		r.logger.Warn().Err(err).Msg("collaborative model unavailable, content-only recommendations")
	} else {
		m := recommend.NewMatrixFactorization(r.recCfg)
		if err := m.Restore(&mfState); err != nil {
			r.logger.Warn().Err(err).Msg("collaborative model state invalid, content-only recommendations")
		} else {
			collab = m
			r.logger.Info().Int("version", meta.Version).Msg("collaborative model loaded")
		}
	}

	return recommend.NewEngine(r.recCfg, content, collab)
}
