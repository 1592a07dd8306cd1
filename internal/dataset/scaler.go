// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package dataset

import "math"

// StandardScaler holds per-column (mean, std) pairs fitted over a training
// set. Transform applies (x - mean) / max(std, 1); the clamped divisor keeps
// constant columns from producing division by zero. Parameters are fitted
// once and reused for every subsequent transform so training-time and
// inference-time scaling agree exactly.
type StandardScaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FitScaler computes a scaler over the observed values. NaN entries are
// ignored; an empty input yields the identity scaler (mean 0, std clamp 1).
func FitScaler(values []float64) *StandardScaler {
	var sum float64
	var n int
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return &StandardScaler{Mean: 0, Std: 0}
	}

	mean := sum / float64(n)

	var sqSum float64
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		d := v - mean
		sqSum += d * d
	}
	std := math.Sqrt(sqSum / float64(n))

	return &StandardScaler{Mean: mean, Std: std}
}

// divisor returns the clamped standard deviation.
func (s *StandardScaler) divisor() float64 {
	if s.Std < 1 {
		return 1
	}
	return s.Std
}

// Transform standardizes a value.
func (s *StandardScaler) Transform(x float64) float64 {
	return (x - s.Mean) / s.divisor()
}

// Inverse maps a scaled value back to the original space.
func (s *StandardScaler) Inverse(z float64) float64 {
	return z*s.divisor() + s.Mean
}
