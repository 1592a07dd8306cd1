// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
)

// Engine blends content-based and collaborative scores over the union of
// both algorithms' candidate pools.
//
// The engine degrades rather than fails: a user unknown to the
// collaborative model gets content-only results (flagged as a cold start),
// and a missing collaborative model entirely disables that term. Only an
// untrained content model makes Recommend return an error, because then
// there is nothing to answer with.
type Engine struct {
	cfg     Config
	content *ContentBased
	collab  *MatrixFactorization
	logger  zerolog.Logger
}

// NewEngine wires the two algorithms. collab may be nil.
func NewEngine(cfg Config, content *ContentBased, collab *MatrixFactorization) *Engine {
	return &Engine{
		cfg:     cfg,
		content: content,
		collab:  collab,
		logger:  logging.With().Str("component", "recommend").Logger(),
	}
}

// Recommend produces ranked recommendations for a user. interactions is the
// user's own history; interacted properties are excluded from the results.
func (e *Engine) Recommend(ctx context.Context, req Request, interactions []Interaction) (*Response, error) {
	if e.content == nil || !e.content.Trained() {
		return nil, fmt.Errorf("recommendation engine has no trained content model")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	exclude := make(map[string]struct{}, len(req.Exclude)+len(interactions))
	for id := range req.Exclude {
		exclude[id] = struct{}{}
	}
	for _, in := range interactions {
		exclude[in.PropertyID] = struct{}{}
	}

	candidates := e.candidatePool(exclude)
	if len(candidates) == 0 {
		return &Response{
			UserID:      req.UserID,
			Properties:  []ScoredProperty{},
			ColdStart:   true,
			GeneratedAt: time.Now(),
		}, nil
	}

	profile := e.content.Profile(interactions)
	contentScores, err := e.content.Predict(ctx, profile, candidates)
	if err != nil {
		return nil, fmt.Errorf("content prediction failed: %w", err)
	}

	collabScores := map[string]float64{}
	collabUsed := false
	if e.collab != nil && e.collab.Trained() {
		scores, err := e.collab.Predict(ctx, req.UserID, candidates)
		if err == nil && len(scores) > 0 {
			collabScores = scores
			collabUsed = true
		}
	}

	scored := e.blend(contentScores, collabScores, collabUsed)
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].PropertyID < scored[j].PropertyID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	algorithms := []string{e.content.Name()}
	mode := "content_only"
	if collabUsed {
		algorithms = append(algorithms, e.collab.Name())
		mode = "hybrid"
	}
	metrics.RecommendRequests.WithLabelValues(mode).Inc()

	e.logger.Debug().
		Str("user_id", req.UserID).
		Int("candidates", len(candidates)).
		Int("results", len(scored)).
		Str("mode", mode).
		Msg("recommendations generated")

	return &Response{
		UserID:         req.UserID,
		Properties:     scored,
		AlgorithmsUsed: algorithms,
		ColdStart:      !collabUsed,
		GeneratedAt:    time.Now(),
	}, nil
}

// candidatePool unions both algorithms' known properties minus exclusions.
func (e *Engine) candidatePool(exclude map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var pool []string

	add := func(ids []string) {
		for _, id := range ids {
			if _, skip := exclude[id]; skip {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			pool = append(pool, id)
		}
	}

	add(e.content.Properties())
	if e.collab != nil && e.collab.Trained() {
		add(e.collab.Properties())
	}
	return pool
}

// blend combines per-algorithm scores with the configured weights. A
// property missing from one algorithm's map contributes 0 for that term;
// with the collaborative term disabled, content carries full weight.
func (e *Engine) blend(contentScores, collabScores map[string]float64, collabUsed bool) []ScoredProperty {
	ids := make(map[string]struct{}, len(contentScores)+len(collabScores))
	for id := range contentScores {
		ids[id] = struct{}{}
	}
	for id := range collabScores {
		ids[id] = struct{}{}
	}

	out := make([]ScoredProperty, 0, len(ids))
	for id := range ids {
		cs := contentScores[id]
		ms := collabScores[id]

		var score float64
		var reasons []string
		if collabUsed {
			score = e.cfg.ContentWeight*cs + e.cfg.CollaborativeWeight*ms
			if cs > 0 {
				reasons = append(reasons, "Matches your preferences")
			}
			if ms > 0 {
				reasons = append(reasons, "Popular with similar users")
			}
		} else {
			score = cs
			reasons = append(reasons, "Matches your preferences")
		}

		out = append(out, ScoredProperty{
			PropertyID:         id,
			Score:              score,
			ContentScore:       cs,
			CollaborativeScore: ms,
			Reason:             strings.Join(reasons, "; "),
		})
	}
	return out
}
