// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package recommend produces personalized property recommendations by
// blending content-based similarity with collaborative filtering.
//
// Both recommenders implement the Algorithm interface; the Engine runs them
// over a shared candidate pool and combines their scores with configured
// weights. A user without interaction history degrades to content-only
// scoring against default preferences, so the engine always answers.
package recommend

import "time"

// Interaction is one user action on a property, already translated from the
// store's log into the recommender's vocabulary.
type Interaction struct {
	UserID     string
	PropertyID string
	Type       string
	CreatedAt  time.Time
}

// Implicit-feedback rating per interaction type. Unknown types rate 0 and
// are skipped during training.
var typeRatings = map[string]float64{
	"view":    1,
	"save":    3,
	"inquiry": 4,
	"contact": 5,
}

// MaxRating is the ceiling of the implicit rating scale.
const MaxRating = 5.0

// RatingFor maps an interaction type onto the implicit rating scale.
func RatingFor(interactionType string) float64 {
	return typeRatings[interactionType]
}

// ScoredProperty is one ranked recommendation.
type ScoredProperty struct {
	PropertyID string  `json:"property_id"`
	Score      float64 `json:"score"`

	// Per-algorithm contributions before blending.
	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`

	Reason string `json:"reason"`
}

// Request asks for recommendations for one user.
type Request struct {
	UserID string
	Limit  int

	// Exclude removes specific properties (typically already-seen ones)
	// from the results.
	Exclude map[string]struct{}
}

// Response carries the ranked recommendations plus provenance metadata.
type Response struct {
	UserID         string           `json:"user_id"`
	Properties     []ScoredProperty `json:"properties"`
	AlgorithmsUsed []string         `json:"algorithms_used"`
	ColdStart      bool             `json:"cold_start"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
