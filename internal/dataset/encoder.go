// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package dataset

import "sort"

// LabelEncoder maps categorical string values to stable sequential integers.
//
// The vocabulary is fixed at fit time and a single sentinel index is reserved
// for values never seen during fitting, so inference on a later vocabulary
// never errors and never grows the mapping. Indices assigned at fit time are
// deterministic (sorted vocabulary) and never change for the lifetime of the
// encoder, which is required for model reuse across save/load.
type LabelEncoder struct {
	// Classes maps category value to index.
	Classes map[string]int `json:"classes"`

	// Inverse maps index back to category value.
	Inverse []string `json:"inverse"`

	// UnknownIndex is the reserved sentinel for unseen values.
	UnknownIndex int `json:"unknown_index"`
}

// UnknownLabel is the reverse-mapping name of the reserved sentinel index.
const UnknownLabel = "<unknown>"

// NewLabelEncoder fits an encoder over the observed values. Duplicates are
// collapsed; empty strings are excluded from the vocabulary (they are imputed
// before encoding). The sentinel index is appended after the fitted classes.
func NewLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}

	vocab := make([]string, 0, len(seen))
	for v := range seen {
		vocab = append(vocab, v)
	}
	sort.Strings(vocab)

	enc := &LabelEncoder{
		Classes: make(map[string]int, len(vocab)),
		Inverse: make([]string, 0, len(vocab)+1),
	}
	for i, v := range vocab {
		enc.Classes[v] = i
		enc.Inverse = append(enc.Inverse, v)
	}
	enc.UnknownIndex = len(vocab)
	enc.Inverse = append(enc.Inverse, UnknownLabel)

	return enc
}

// Encode returns the index for a value. Unseen values map to the reserved
// unknown index; this is a recoverable condition, never an error.
func (e *LabelEncoder) Encode(value string) int {
	if idx, ok := e.Classes[value]; ok {
		return idx
	}
	return e.UnknownIndex
}

// Decode returns the value for an index, or UnknownLabel when the index is
// the sentinel or out of range.
func (e *LabelEncoder) Decode(index int) string {
	if index < 0 || index >= len(e.Inverse) {
		return UnknownLabel
	}
	return e.Inverse[index]
}

// Known reports whether a value was part of the fitted vocabulary.
func (e *LabelEncoder) Known(value string) bool {
	_, ok := e.Classes[value]
	return ok
}

// Size returns the number of indices including the unknown sentinel.
func (e *LabelEncoder) Size() int {
	return len(e.Inverse)
}
