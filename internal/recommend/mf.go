// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// MatrixFactorization learns latent user and property factors from the
// implicit rating matrix with SGD. Duplicate interactions collapse to the
// strongest rating before training. Users and properties unseen at train
// time produce no predictions; the engine falls back to content scoring for
// them.
type MatrixFactorization struct {
	mu sync.RWMutex

	cfg Config

	userIndex map[string]int
	itemIndex map[string]int
	itemIDs   []string

	userFactors [][]float64
	itemFactors [][]float64
	userBias    []float64
	itemBias    []float64
	globalMean  float64

	trained bool
}

// NewMatrixFactorization creates an untrained model.
func NewMatrixFactorization(cfg Config) *MatrixFactorization {
	return &MatrixFactorization{cfg: cfg}
}

// Name identifies the algorithm in response metadata.
func (m *MatrixFactorization) Name() string { return "collaborative" }

// Trained reports whether Train has completed.
func (m *MatrixFactorization) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// ratingCell is one observed user-property rating.
type ratingCell struct {
	user, item int
	rating     float64
}

// Train fits the factor matrices. Interactions with unknown types are
// skipped; the same user-property pair keeps only its strongest rating.
func (m *MatrixFactorization) Train(ctx context.Context, interactions []Interaction) error {
	strongest := make(map[string]map[string]float64)
	for _, in := range interactions {
		rating := RatingFor(in.Type)
		if rating == 0 {
			continue
		}
		if strongest[in.UserID] == nil {
			strongest[in.UserID] = make(map[string]float64)
		}
		if rating > strongest[in.UserID][in.PropertyID] {
			strongest[in.UserID][in.PropertyID] = rating
		}
	}
	if len(strongest) == 0 {
		return fmt.Errorf("no usable interactions to train on")
	}

	userIndex := make(map[string]int)
	itemIndex := make(map[string]int)
	var itemIDs []string
	var cells []ratingCell
	var ratingSum float64

	for userID, items := range strongest {
		u, ok := userIndex[userID]
		if !ok {
			u = len(userIndex)
			userIndex[userID] = u
		}
		for propertyID, rating := range items {
			i, ok := itemIndex[propertyID]
			if !ok {
				i = len(itemIndex)
				itemIndex[propertyID] = i
				itemIDs = append(itemIDs, propertyID)
			}
			cells = append(cells, ratingCell{user: u, item: i, rating: rating})
			ratingSum += rating
		}
	}
	globalMean := ratingSum / float64(len(cells))

	factors := m.cfg.Factors
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic initialization, not cryptography

	userFactors := randomMatrix(rng, len(userIndex), factors)
	itemFactors := randomMatrix(rng, len(itemIndex), factors)
	userBias := make([]float64, len(userIndex))
	itemBias := make([]float64, len(itemIndex))

	lr := m.cfg.LearningRate
	reg := m.cfg.Regularization

	for iter := 0; iter < m.cfg.Iterations; iter++ {
		if iter%8 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		rng.Shuffle(len(cells), func(a, b int) { cells[a], cells[b] = cells[b], cells[a] })

		for _, cell := range cells {
			uf := userFactors[cell.user]
			vf := itemFactors[cell.item]

			pred := globalMean + userBias[cell.user] + itemBias[cell.item] + dot(uf, vf)
			err := cell.rating - pred

			userBias[cell.user] += lr * (err - reg*userBias[cell.user])
			itemBias[cell.item] += lr * (err - reg*itemBias[cell.item])
			for f := 0; f < factors; f++ {
				ufv, vfv := uf[f], vf[f]
				uf[f] += lr * (err*vfv - reg*ufv)
				vf[f] += lr * (err*ufv - reg*vfv)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.userIndex = userIndex
	m.itemIndex = itemIndex
	m.itemIDs = itemIDs
	m.userFactors = userFactors
	m.itemFactors = itemFactors
	m.userBias = userBias
	m.itemBias = itemBias
	m.globalMean = globalMean
	m.trained = true
	return nil
}

// Predict scores candidate properties for a user, normalized onto [0, 1] by
// the rating ceiling. Unknown users and unknown candidates produce no
// entries.
func (m *MatrixFactorization) Predict(ctx context.Context, userID string, candidates []string) (map[string]float64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.trained {
		return nil, fmt.Errorf("matrix factorization not trained")
	}

	u, ok := m.userIndex[userID]
	if !ok {
		return map[string]float64{}, nil
	}

	scores := make(map[string]float64, len(candidates))
	for _, id := range candidates {
		i, ok := m.itemIndex[id]
		if !ok {
			continue
		}
		raw := m.globalMean + m.userBias[u] + m.itemBias[i] + dot(m.userFactors[u], m.itemFactors[i])
		score := raw / MaxRating
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[id] = score
	}
	return scores, nil
}

// KnownUser reports whether the user appeared in the training data.
func (m *MatrixFactorization) KnownUser(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.userIndex[userID]
	return ok
}

// Properties returns the property IDs seen at train time.
func (m *MatrixFactorization) Properties() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.itemIDs))
	copy(out, m.itemIDs)
	return out
}

// randomMatrix initializes factors with small uniform noise.
func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for r := range m {
		m[r] = make([]float64, cols)
		for c := range m[r] {
			m[r][c] = (rng.Float64() - 0.5) * 0.1
		}
	}
	return m
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
