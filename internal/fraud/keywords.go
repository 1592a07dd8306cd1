// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package fraud

import "strings"

// scamKeywords are phrases strongly associated with rental scams. Matching
// is case-insensitive substring over title plus description; each hit adds
// KeywordRisk to the heuristic score up to KeywordRiskCap.
var scamKeywords = []string{
	"urgent",
	"act fast",
	"wire transfer",
	"western union",
	"moneygram",
	"cash only",
	"no viewing",
	"viewing not possible",
	"pay upfront",
	"deposit before viewing",
	"send deposit",
	"money order",
	"overseas landlord",
	"out of the country",
	"keys by post",
	"keys by courier",
	"too good to be true",
	"first come first served",
	"gift card",
}

// MatchKeywords returns the distinct scam phrases found in the text.
func MatchKeywords(text string) []string {
	lowered := strings.ToLower(text)

	var hits []string
	for _, kw := range scamKeywords {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
