// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package service is the analytics facade: one object answering the three
// product questions (price estimation, fraud detection, recommendations)
// over the trained models.
//
// The service follows the pipeline's degradation posture. Pricing and fraud
// always answer, falling back to heuristics or defaults; recommendations
// require at least a trained content model because without one there is
// nothing to rank with.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/fraud"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/pricing"
	"github.com/rentlens/rentlens/internal/recommend"
	"github.com/rentlens/rentlens/internal/store"
)

// InteractionReader supplies a user's interaction history. *store.Store
// satisfies it; tests use fakes.
type InteractionReader interface {
	ListInteractions(ctx context.Context) ([]store.Interaction, error)
}

// Service answers the three analytics operations.
type Service struct {
	proc         *dataset.Processor
	estimator    *pricing.Estimator
	scorer       *fraud.Scorer
	engine       *recommend.Engine
	interactions InteractionReader
	// landlordCounts backs the posting-volume fraud rule; nil disables it.
	landlordCounts map[string]int
	logger         zerolog.Logger
}

// New wires a service from its parts. engine and interactions may be nil;
// GetRecommendations then reports the models as unavailable.
func New(proc *dataset.Processor, estimator *pricing.Estimator, scorer *fraud.Scorer, engine *recommend.Engine, interactions InteractionReader, landlordCounts map[string]int) *Service {
	return &Service{
		proc:           proc,
		estimator:      estimator,
		scorer:         scorer,
		engine:         engine,
		interactions:   interactions,
		landlordCounts: landlordCounts,
		logger:         logging.With().Str("component", "service").Logger(),
	}
}

// EstimatePrice answers a pricing request. Never fails.
func (s *Service) EstimatePrice(ctx context.Context, req pricing.Request) pricing.Estimate {
	if ctx.Err() != nil {
		return pricing.Estimate{Degraded: true}
	}
	return s.estimator.EstimatePrice(req)
}

// FraudRequest describes a listing to score.
type FraudRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	City          string  `json:"city"`
	PropertyType  string  `json:"property_type"`
	PricePerMonth float64 `json:"price_per_month"`
	Bedrooms      float64 `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	ImageCount    int     `json:"image_count"`
	LandlordID    string  `json:"landlord_id"`
}

// DetectFraud scores a listing. Never fails; the result records whether the
// trained classifier contributed.
func (s *Service) DetectFraud(ctx context.Context, req FraudRequest) fraud.Result {
	if ctx.Err() != nil {
		return fraud.Result{}
	}

	return s.scorer.Score(fraud.Input{
		Title:                req.Title,
		Description:          req.Description,
		City:                 req.City,
		PropertyType:         dataset.NormalizePropertyType(req.PropertyType),
		PricePerMonth:        req.PricePerMonth,
		Bedrooms:             req.Bedrooms,
		Bathrooms:            req.Bathrooms,
		ImageCount:           req.ImageCount,
		LandlordListingCount: s.landlordCounts[req.LandlordID],
	})
}

// GetRecommendations answers with ranked properties for a user. The user's
// stored interaction history personalizes the result and is excluded from
// it; an unreadable history degrades to cold-start rather than failing.
func (s *Service) GetRecommendations(ctx context.Context, userID string, limit int) (*recommend.Response, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("recommendation models unavailable")
	}

	var history []recommend.Interaction
	if s.interactions != nil {
		all, err := s.interactions.ListInteractions(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("interaction history unavailable, recommending cold")
		} else {
			for _, in := range all {
				if in.UserID != userID {
					continue
				}
				history = append(history, recommend.Interaction{
					UserID:     in.UserID,
					PropertyID: in.PropertyID,
					Type:       in.Type,
					CreatedAt:  in.CreatedAt,
				})
			}
		}
	}

	return s.engine.Recommend(ctx, recommend.Request{UserID: userID, Limit: limit}, history)
}

// MarketStatistics exposes the underlying market query.
func (s *Service) MarketStatistics(city, propertyType string) dataset.MarketStats {
	return s.proc.MarketStatistics(city, dataset.NormalizePropertyType(propertyType))
}
