// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package fraud

import "strings"

// Small polarity lexicons for listing copy. This is a coarse signal feeding
// the classifier's feature vector, not a general sentiment model.
var positiveWords = map[string]struct{}{
	"beautiful": {}, "spacious": {}, "modern": {}, "stunning": {},
	"bright": {}, "lovely": {}, "charming": {}, "excellent": {},
	"immaculate": {}, "luxury": {}, "quiet": {}, "convenient": {},
	"renovated": {}, "desirable": {}, "welcoming": {}, "cosy": {},
}

var negativeWords = map[string]struct{}{
	"urgent": {}, "quickly": {}, "immediately": {}, "cheap": {},
	"problem": {}, "issue": {}, "damp": {}, "noisy": {},
	"limited": {}, "final": {}, "hurry": {}, "last": {},
	"desperate": {}, "leaving": {},
}

// SentimentScore returns lexicon polarity in [-1, 1]:
// (positives - negatives) / max(1, positives + negatives).
// Empty or neutral text scores 0.
func SentimentScore(text string) float64 {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:()\"'")
		if _, ok := positiveWords[word]; ok {
			pos++
		}
		if _, ok := negativeWords[word]; ok {
			neg++
		}
	}

	total := pos + neg
	if total < 1 {
		total = 1
	}
	return float64(pos-neg) / float64(total)
}
