// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package dataset

import (
	"math"
	"strings"
	"time"
)

// MaxSanePrice is the sanity ceiling for monthly rent. Rows with
// price_per_month outside (0, MaxSanePrice) are dropped during cleaning.
const MaxSanePrice = 20000.0

// Listing is one rental property observation. Raw fields come from the source
// dataset; derived fields are populated by the Processor pipeline. Missing
// numeric values are represented as NaN until imputation, missing categorical
// values as the empty string.
type Listing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Location
	City         string  `json:"city"`
	Postcode     string  `json:"postcode"`
	PostcodeArea string  `json:"postcode_area"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`

	// Structure
	Bedrooms         float64 `json:"bedrooms"`
	Bathrooms        float64 `json:"bathrooms"`
	PropertyType     string  `json:"property_type"`
	FurnishingStatus string  `json:"furnishing_status"`

	// Price
	PricePerMonth float64 `json:"price_per_month"`

	// Compliance
	EPCRating      string `json:"epc_rating"`      // A-G
	CouncilTaxBand string `json:"council_tax_band"` // A-H

	// Amenities
	Parking     bool `json:"parking"`
	Garden      bool `json:"garden"`
	PetsAllowed bool `json:"pets_allowed"`

	// Media
	ImageURLs []string `json:"image_urls"`

	LandlordID string    `json:"landlord_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Derived fields, populated by the Processor.
	PricePerBedroom   float64 `json:"price_per_bedroom,omitempty"`
	DaysSinceListed   float64 `json:"days_since_listed,omitempty"`
	AmenityScore      float64 `json:"amenity_score,omitempty"`
	EPCNumeric        float64 `json:"epc_numeric,omitempty"`
	CouncilTaxNumeric float64 `json:"council_tax_numeric,omitempty"`
	CityPriceRank     int     `json:"city_price_rank,omitempty"`

	// Encoded holds label-encoded categorical columns (city_encoded etc.).
	Encoded map[string]int `json:"encoded,omitempty"`

	// Scaled holds standardized numeric columns.
	Scaled map[string]float64 `json:"scaled,omitempty"`
}

// MarketStats summarizes prices for a market slice (optionally filtered by
// city and property type). Recomputed on demand, never persisted.
type MarketStats struct {
	AveragePrice float64 `json:"average_price"`
	MedianPrice  float64 `json:"median_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	StdDevPrice  float64 `json:"std_dev_price"`
	Count        int     `json:"count"`
	AvgBedrooms  float64 `json:"avg_bedrooms"`
	AvgBathrooms float64 `json:"avg_bathrooms"`
}

// DefaultMarketStats is returned when a market query matches zero listings.
// Callers must tolerate these degraded-confidence defaults; the pipeline
// never fails a statistics query.
func DefaultMarketStats() MarketStats {
	return MarketStats{
		AveragePrice: 1500,
		MedianPrice:  1400,
		MinPrice:     500,
		MaxPrice:     5000,
		StdDevPrice:  800,
		Count:        0,
		AvgBedrooms:  2,
		AvgBathrooms: 1,
	}
}

// AnomalyLevel classifies how far a price sits from its market average.
type AnomalyLevel string

const (
	AnomalyNormal AnomalyLevel = "normal" // z <= 1
	AnomalyLow    AnomalyLevel = "low"    // 1 < z <= 2
	AnomalyMedium AnomalyLevel = "medium" // 2 < z <= 3
	AnomalyHigh   AnomalyLevel = "high"   // z > 3
)

// PriceAnomaly reports how a listing's price compares to its market.
type PriceAnomaly struct {
	Level            AnomalyLevel `json:"level"`
	ZScore           float64      `json:"z_score"`
	PercentDeviation float64      `json:"percent_deviation"`
	MarketAverage    float64      `json:"market_average"`
}

// epcRanks maps EPC ratings to integer ranks, A highest.
var epcRanks = map[string]float64{
	"A": 7, "B": 6, "C": 5, "D": 4, "E": 3, "F": 2, "G": 1,
}

// councilTaxRanks maps council tax bands to integer ranks, A highest.
var councilTaxRanks = map[string]float64{
	"A": 8, "B": 7, "C": 6, "D": 5, "E": 4, "F": 3, "G": 2, "H": 1,
}

// EPCRank returns the numeric rank for an EPC rating, 0 if unknown.
func EPCRank(rating string) float64 {
	return epcRanks[strings.ToUpper(strings.TrimSpace(rating))]
}

// CouncilTaxRank returns the numeric rank for a council tax band, 0 if unknown.
func CouncilTaxRank(band string) float64 {
	return councilTaxRanks[strings.ToUpper(strings.TrimSpace(band))]
}

// propertyTypeVocabulary maps raw property type spellings (lower-cased) to
// the fixed canonical vocabulary.
var propertyTypeVocabulary = map[string]string{
	"flat":          "Flat",
	"apartment":     "Flat",
	"studio flat":   "Studio",
	"studio":        "Studio",
	"house":         "House",
	"detached":      "House",
	"semi-detached": "House",
	"terraced":      "House",
	"townhouse":     "House",
	"cottage":       "House",
	"bungalow":      "Bungalow",
	"maisonette":    "Maisonette",
	"room":          "Room",
	"room share":    "Room",
}

// NormalizePropertyType maps a raw property type string onto the canonical
// vocabulary, case-insensitively. Unmapped values are title-cased and kept so
// the encoder's unknown bucket absorbs them at inference time.
func NormalizePropertyType(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if canonical, ok := propertyTypeVocabulary[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
}

// NormalizePostcode upper-cases and trims a postcode.
func NormalizePostcode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// PostcodeArea derives the leading 1-2 letter area from a normalized
// postcode ("SW1A 1AA" -> "SW", "M1 4BT" -> "M").
func PostcodeArea(postcode string) string {
	pc := NormalizePostcode(postcode)
	end := 0
	for end < len(pc) && end < 2 && pc[end] >= 'A' && pc[end] <= 'Z' {
		end++
	}
	return pc[:end]
}

// AmenityCount returns the number of true amenity flags.
func (l *Listing) AmenityCount() float64 {
	var n float64
	if l.Parking {
		n++
	}
	if l.Garden {
		n++
	}
	if l.PetsAllowed {
		n++
	}
	return n
}

// IsMissing reports whether a numeric value represents a missing observation.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Missing is the sentinel for absent numeric values in raw rows.
func Missing() float64 {
	return math.NaN()
}
