// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package dataset

import "testing"

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"flat", "Flat"},
		{"Apartment", "Flat"},
		{"SEMI-DETACHED", "House"},
		{"studio flat", "Studio"},
		{"room share", "Room"},
		{"houseboat", "Houseboat"}, // unmapped, title-cased
		{"", ""},
		{"  terraced  ", "House"},
	}

	for _, tt := range tests {
		if got := NormalizePropertyType(tt.raw); got != tt.want {
			t.Errorf("NormalizePropertyType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPostcodeArea(t *testing.T) {
	tests := []struct {
		postcode string
		want     string
	}{
		{"SW1A 1AA", "SW"},
		{"m1 4bt", "M"},
		{"EH8 9YL", "EH"},
		{"NW10 2XY", "NW"},
		{"", ""},
		{"123", ""},
	}

	for _, tt := range tests {
		if got := PostcodeArea(tt.postcode); got != tt.want {
			t.Errorf("PostcodeArea(%q) = %q, want %q", tt.postcode, got, tt.want)
		}
	}
}

func TestEPCAndCouncilTaxRanks(t *testing.T) {
	if EPCRank("a") != 7 || EPCRank("G") != 1 {
		t.Error("EPC rank bounds wrong")
	}
	if EPCRank("Z") != 0 {
		t.Error("unknown EPC rating should rank 0")
	}
	if CouncilTaxRank(" d ") != 5 {
		t.Error("council tax band D should rank 5")
	}
	if CouncilTaxRank("") != 0 {
		t.Error("missing council tax band should rank 0")
	}
}
