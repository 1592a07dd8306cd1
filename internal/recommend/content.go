// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package recommend

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// ContentBased scores properties by cosine similarity between a user's
// preference profile and each property's feature vector.
//
// Vectors are standardized per dimension at train time so price does not
// dominate the geometry. The profile is the rating-weighted mean of the
// user's interacted properties; users without history score against a
// default profile, which keeps the algorithm usable for cold starts.
type ContentBased struct {
	mu sync.RWMutex

	vectors        map[string][]float64
	means, stds    []float64
	defaultProfile []float64
	dims           int
	trained        bool
}

// NewContentBased creates an untrained content recommender.
func NewContentBased() *ContentBased {
	return &ContentBased{}
}

// Name identifies the algorithm in response metadata.
func (c *ContentBased) Name() string { return "content" }

// Trained reports whether Train has completed.
func (c *ContentBased) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained
}

// Train fits per-dimension standardization over the property feature
// vectors and stores the standardized vectors. defaultProfile is the raw
// feature vector representing a typical search (used for cold starts); it is
// standardized with the same parameters.
func (c *ContentBased) Train(ctx context.Context, vectors map[string][]float64, defaultProfile []float64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(vectors) == 0 {
		return fmt.Errorf("no property vectors to train on")
	}

	var dims int
	for _, v := range vectors {
		dims = len(v)
		break
	}
	if dims == 0 {
		return fmt.Errorf("empty feature vectors")
	}
	for id, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("property %s has %d dims, want %d", id, len(v), dims)
		}
	}
	if len(defaultProfile) != dims {
		return fmt.Errorf("default profile has %d dims, want %d", len(defaultProfile), dims)
	}

	means := make([]float64, dims)
	stds := make([]float64, dims)
	n := float64(len(vectors))
	for _, v := range vectors {
		for d := 0; d < dims; d++ {
			means[d] += v[d]
		}
	}
	for d := 0; d < dims; d++ {
		means[d] /= n
	}
	for _, v := range vectors {
		for d := 0; d < dims; d++ {
			diff := v[d] - means[d]
			stds[d] += diff * diff
		}
	}
	for d := 0; d < dims; d++ {
		stds[d] = math.Sqrt(stds[d] / n)
		if stds[d] < 1e-9 {
			stds[d] = 1
		}
	}

	standardized := make(map[string][]float64, len(vectors))
	for id, v := range vectors {
		standardized[id] = standardize(v, means, stds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = standardized
	c.means = means
	c.stds = stds
	c.dims = dims
	c.defaultProfile = standardize(defaultProfile, means, stds)
	c.trained = true
	return nil
}

// Profile builds a user's standardized preference vector from their
// interaction history. Interactions on unknown properties and unknown
// interaction types are skipped; an empty remainder yields the default
// profile.
func (c *ContentBased) Profile(interactions []Interaction) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	profile := make([]float64, c.dims)
	var weight float64
	for _, in := range interactions {
		rating := RatingFor(in.Type)
		if rating == 0 {
			continue
		}
		vec, ok := c.vectors[in.PropertyID]
		if !ok {
			continue
		}
		for d := 0; d < c.dims; d++ {
			profile[d] += rating * vec[d]
		}
		weight += rating
	}

	if weight == 0 {
		out := make([]float64, c.dims)
		copy(out, c.defaultProfile)
		return out
	}
	for d := 0; d < c.dims; d++ {
		profile[d] /= weight
	}
	return profile
}

// Predict scores candidate properties against a profile. Scores are cosine
// similarity mapped onto [0, 1]. Unknown candidates are omitted.
func (c *ContentBased) Predict(ctx context.Context, profile []float64, candidates []string) (map[string]float64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return nil, fmt.Errorf("content recommender not trained")
	}

	scores := make(map[string]float64, len(candidates))
	for _, id := range candidates {
		vec, ok := c.vectors[id]
		if !ok {
			continue
		}
		scores[id] = (cosine(profile, vec) + 1) / 2
	}
	return scores, nil
}

// Properties returns the IDs of all trained property vectors.
func (c *ContentBased) Properties() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.vectors))
	for id := range c.vectors {
		ids = append(ids, id)
	}
	return ids
}

// standardize applies (x - mean) / std per dimension.
func standardize(v, means, stds []float64) []float64 {
	out := make([]float64, len(v))
	for d := range v {
		out[d] = (v[d] - means[d]) / stds[d]
	}
	return out
}

// cosine computes cosine similarity; zero vectors score 0.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for d := range a {
		dot += a[d] * b[d]
		normA += a[d] * a[d]
		normB += b[d] * b[d]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
