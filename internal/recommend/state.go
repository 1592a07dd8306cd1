// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package recommend

import "fmt"

// ContentState is the serializable snapshot of a trained ContentBased model.
type ContentState struct {
	Vectors        map[string][]float64
	Means          []float64
	Stds           []float64
	DefaultProfile []float64
	Dims           int
}

// Export snapshots the trained state for persistence.
func (c *ContentBased) Export() (*ContentState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.trained {
		return nil, fmt.Errorf("content recommender not trained")
	}
	return &ContentState{
		Vectors:        c.vectors,
		Means:          c.means,
		Stds:           c.stds,
		DefaultProfile: c.defaultProfile,
		Dims:           c.dims,
	}, nil
}

// Restore replaces the model with a persisted snapshot.
func (c *ContentBased) Restore(state *ContentState) error {
	if state == nil || len(state.Vectors) == 0 || state.Dims == 0 {
		return fmt.Errorf("invalid content model state")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = state.Vectors
	c.means = state.Means
	c.stds = state.Stds
	c.defaultProfile = state.DefaultProfile
	c.dims = state.Dims
	c.trained = true
	return nil
}

// MFState is the serializable snapshot of a trained MatrixFactorization
// model.
type MFState struct {
	UserIndex   map[string]int
	ItemIndex   map[string]int
	ItemIDs     []string
	UserFactors [][]float64
	ItemFactors [][]float64
	UserBias    []float64
	ItemBias    []float64
	GlobalMean  float64
}

// Export snapshots the trained state for persistence.
func (m *MatrixFactorization) Export() (*MFState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.trained {
		return nil, fmt.Errorf("matrix factorization not trained")
	}
	return &MFState{
		UserIndex:   m.userIndex,
		ItemIndex:   m.itemIndex,
		ItemIDs:     m.itemIDs,
		UserFactors: m.userFactors,
		ItemFactors: m.itemFactors,
		UserBias:    m.userBias,
		ItemBias:    m.itemBias,
		GlobalMean:  m.globalMean,
	}, nil
}

// Restore replaces the model with a persisted snapshot.
func (m *MatrixFactorization) Restore(state *MFState) error {
	if state == nil || len(state.UserIndex) == 0 || len(state.ItemIndex) == 0 {
		return fmt.Errorf("invalid matrix factorization state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.userIndex = state.UserIndex
	m.itemIndex = state.ItemIndex
	m.itemIDs = state.ItemIDs
	m.userFactors = state.UserFactors
	m.itemFactors = state.ItemFactors
	m.userBias = state.UserBias
	m.itemBias = state.ItemBias
	m.globalMean = state.GlobalMean
	m.trained = true
	return nil
}
