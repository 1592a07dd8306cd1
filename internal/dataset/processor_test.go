// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package dataset

import (
	"context"
	"math"
	"testing"
	"time"
)

func testListing(city, propType string, bedrooms, price float64) Listing {
	return Listing{
		ID:               city + "-" + propType,
		City:             city,
		Postcode:         "SW1A 1AA",
		Bedrooms:         bedrooms,
		Bathrooms:        1,
		PropertyType:     propType,
		FurnishingStatus: "Furnished",
		PricePerMonth:    price,
		Latitude:         51.5,
		Longitude:        -0.12,
		CreatedAt:        time.Now().AddDate(0, 0, -10),
	}
}

func TestCleanImputesNumericMedian(t *testing.T) {
	rows := []Listing{
		testListing("London", "Flat", 1, 1000),
		testListing("London", "Flat", 2, 1200),
		testListing("London", "Flat", 3, 1400),
	}
	rows[1].Bedrooms = Missing()

	p := NewProcessor(DefaultProcessorConfig())
	cleaned := p.Clean(context.Background(), rows)

	if len(cleaned) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(cleaned))
	}
	// Median of {1, 3} is 2.
	if cleaned[1].Bedrooms != 2 {
		t.Errorf("expected imputed bedrooms 2, got %v", cleaned[1].Bedrooms)
	}
	for i, l := range cleaned {
		if IsMissing(l.Bedrooms) {
			t.Errorf("row %d still has missing bedrooms after cleaning", i)
		}
	}
}

func TestCleanImputesCategoricalMode(t *testing.T) {
	rows := []Listing{
		testListing("London", "Flat", 1, 1000),
		testListing("London", "Flat", 2, 1200),
		testListing("London", "House", 3, 1400),
		testListing("London", "", 2, 1100),
	}

	p := NewProcessor(DefaultProcessorConfig())
	cleaned := p.Clean(context.Background(), rows)

	if got := cleaned[3].PropertyType; got != "Flat" {
		t.Errorf("expected mode-imputed property type Flat, got %q", got)
	}
}

func TestCleanDropsImplausiblePrices(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		keep  bool
	}{
		{"normal", 1200, true},
		{"zero", 0, false},
		{"negative", -500, false},
		{"above ceiling", 25000, false},
		{"just under ceiling", 19999, true},
		{"infinite", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []Listing{
				testListing("London", "Flat", 2, 1500),
				testListing("London", "Flat", 2, tt.price),
			}
			p := NewProcessor(DefaultProcessorConfig())
			cleaned := p.cleanOnce(rows)

			want := 1
			if tt.keep {
				want = 2
			}
			if len(cleaned) != want {
				t.Errorf("price %v: expected %d rows, got %d", tt.price, want, len(cleaned))
			}
		})
	}
}

func TestCleanZeroRowsFallsBackToSynthetic(t *testing.T) {
	rows := []Listing{
		testListing("London", "Flat", 1, -100),
		testListing("London", "Flat", 2, 0),
	}

	cfg := DefaultProcessorConfig()
	cfg.SyntheticRows = 200
	p := NewProcessor(cfg)
	cleaned := p.Clean(context.Background(), rows)

	if len(cleaned) == 0 {
		t.Fatal("expected synthetic fallback to produce rows")
	}
	for i := range cleaned {
		if !(cleaned[i].PricePerMonth > 0 && cleaned[i].PricePerMonth < MaxSanePrice) {
			t.Fatalf("fallback row %d has out-of-bounds price %v", i, cleaned[i].PricePerMonth)
		}
	}
}

func TestEngineerFeatures(t *testing.T) {
	p := NewProcessor(DefaultProcessorConfig())
	p.listings = []Listing{
		{
			PricePerMonth:  1200,
			Bedrooms:       3,
			Parking:        true,
			Garden:         true,
			EPCRating:      "B",
			CouncilTaxBand: "D",
			CreatedAt:      time.Now().AddDate(0, 0, -30),
		},
		{
			// Studio-style row: zero bedrooms must not divide by zero.
			PricePerMonth: 800,
			Bedrooms:      0,
		},
	}
	p.EngineerFeatures()

	if got := p.listings[0].PricePerBedroom; got != 400 {
		t.Errorf("expected price_per_bedroom 400, got %v", got)
	}
	if got := p.listings[1].PricePerBedroom; got != 800 {
		t.Errorf("expected zero-bedroom price_per_bedroom 800, got %v", got)
	}
	if got := p.listings[0].AmenityScore; got != 2 {
		t.Errorf("expected amenity_score 2, got %v", got)
	}
	if got := p.listings[0].EPCNumeric; got != 6 {
		t.Errorf("expected EPC B rank 6, got %v", got)
	}
	if got := p.listings[0].CouncilTaxNumeric; got != 5 {
		t.Errorf("expected council tax D rank 5, got %v", got)
	}
	if got := p.listings[0].DaysSinceListed; got < 29 || got > 31 {
		t.Errorf("expected ~30 days since listed, got %v", got)
	}
}

func TestRankCityPrices(t *testing.T) {
	p := NewProcessor(DefaultProcessorConfig())
	p.listings = []Listing{
		testListing("London", "Flat", 2, 2000),
		testListing("London", "Flat", 2, 2200),
		testListing("Leeds", "Flat", 2, 900),
		testListing("Manchester", "Flat", 2, 1100),
	}
	p.RankCityPrices()

	if got := p.CityRank("London"); got != 1 {
		t.Errorf("expected London rank 1, got %d", got)
	}
	if got := p.CityRank("Manchester"); got != 2 {
		t.Errorf("expected Manchester rank 2, got %d", got)
	}
	if got := p.CityRank("Leeds"); got != 3 {
		t.Errorf("expected Leeds rank 3, got %d", got)
	}
	if got := p.CityRank("Atlantis"); got != 0 {
		t.Errorf("expected unseen city rank 0, got %d", got)
	}
}

func TestEncoderStableAndUnknownAware(t *testing.T) {
	p := NewProcessor(DefaultProcessorConfig())
	p.listings = []Listing{
		testListing("London", "Flat", 2, 2000),
		testListing("Leeds", "House", 3, 900),
	}
	p.EncodeCategoricals()

	first := p.EncodeValue("city", "London")
	// Re-encoding must not change assignments.
	p.EncodeCategoricals()
	if again := p.EncodeValue("city", "London"); again != first {
		t.Errorf("encoding changed between calls: %d then %d", first, again)
	}

	unknown := p.EncodeValue("city", "Atlantis")
	if unknown != p.Encoders()["city"].UnknownIndex {
		t.Errorf("expected unseen city to hit unknown index %d, got %d",
			p.Encoders()["city"].UnknownIndex, unknown)
	}
	if p.EncodeValue("city", "Xanadu") != unknown {
		t.Error("expected all unseen values to share the unknown index")
	}
}

func TestScalerRoundTrip(t *testing.T) {
	values := []float64{100, 200, 300, 400, 500}
	s := FitScaler(values)

	for _, v := range values {
		back := s.Inverse(s.Transform(v))
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip %v -> %v", v, back)
		}
	}
}

func TestScalerConstantColumn(t *testing.T) {
	s := FitScaler([]float64{5, 5, 5, 5})
	if got := s.Transform(5); got != 0 {
		t.Errorf("expected constant column to scale to 0, got %v", got)
	}
	if got := s.Transform(7); got != 2 {
		t.Errorf("expected clamped divisor 1, got transform %v", got)
	}
}

func TestMarketStatisticsFilters(t *testing.T) {
	p := NewProcessor(DefaultProcessorConfig())
	p.listings = []Listing{
		testListing("London", "Flat", 2, 2000),
		testListing("Greater London", "Flat", 2, 1800),
		testListing("London", "House", 4, 3000),
		testListing("Leeds", "Flat", 2, 900),
	}

	t.Run("city substring match", func(t *testing.T) {
		stats := p.MarketStatistics("london", "Flat")
		if stats.Count != 2 {
			t.Fatalf("expected 2 matches, got %d", stats.Count)
		}
		if stats.AveragePrice != 1900 {
			t.Errorf("expected average 1900, got %v", stats.AveragePrice)
		}
	})

	t.Run("exact property type", func(t *testing.T) {
		stats := p.MarketStatistics("London", "House")
		if stats.Count != 1 {
			t.Fatalf("expected 1 match, got %d", stats.Count)
		}
		if stats.MedianPrice != 3000 {
			t.Errorf("expected median 3000, got %v", stats.MedianPrice)
		}
	})

	t.Run("no match returns defaults", func(t *testing.T) {
		stats := p.MarketStatistics("Atlantis", "Castle")
		want := DefaultMarketStats()
		if stats != want {
			t.Errorf("expected default stats %+v, got %+v", want, stats)
		}
		if stats.Count != 0 {
			t.Errorf("default stats must report count 0, got %d", stats.Count)
		}
	})
}

func TestClassifyPriceAnomalyMonotonic(t *testing.T) {
	stats := MarketStats{AveragePrice: 1000, StdDevPrice: 200}

	tests := []struct {
		name  string
		price float64
		level AnomalyLevel
	}{
		{"at average", 1000, AnomalyNormal},
		{"within one std", 1150, AnomalyNormal},
		{"between one and two", 1300, AnomalyLow},
		{"between two and three", 1500, AnomalyMedium},
		{"beyond three", 1800, AnomalyHigh},
		{"far below", 200, AnomalyHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPriceAnomaly(tt.price, stats)
			if got.Level != tt.level {
				t.Errorf("price %v: expected level %s, got %s (z=%v)",
					tt.price, tt.level, got.Level, got.ZScore)
			}
		})
	}

	// Increasing deviation must never decrease the z-score.
	prev := 0.0
	for price := 1000.0; price <= 3000; price += 100 {
		z := ClassifyPriceAnomaly(price, stats).ZScore
		if z < prev {
			t.Fatalf("z-score decreased from %v to %v at price %v", prev, z, price)
		}
		prev = z
	}
}

func TestClassifyPriceAnomalyDegenerateMarket(t *testing.T) {
	stats := MarketStats{AveragePrice: 1000, StdDevPrice: 0}
	got := ClassifyPriceAnomaly(1500, stats)
	if math.IsInf(got.ZScore, 0) || math.IsNaN(got.ZScore) {
		t.Fatalf("expected finite z-score, got %v", got.ZScore)
	}
	if got.ZScore != 500 {
		t.Errorf("expected clamped divisor z-score 500, got %v", got.ZScore)
	}
}

func TestProcessEndToEnd(t *testing.T) {
	cfg := DefaultProcessorConfig()
	cfg.SyntheticRows = 500
	p := NewProcessor(cfg)

	source := NewFallbackSource(NewSyntheticSource(500, 42))
	rows, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := p.Process(context.Background(), rows); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	listings := p.Listings()
	if len(listings) == 0 {
		t.Fatal("expected processed listings")
	}

	for i := range listings {
		l := &listings[i]
		if IsMissing(l.Bedrooms) || IsMissing(l.PricePerMonth) {
			t.Fatalf("row %d has missing numerics after processing", i)
		}
		if l.PricePerMonth <= 0 || l.PricePerMonth >= MaxSanePrice {
			t.Fatalf("row %d has out-of-bounds price %v", i, l.PricePerMonth)
		}
		if len(l.Encoded) == 0 {
			t.Fatalf("row %d has no encoded columns", i)
		}
		if len(l.Scaled) == 0 {
			t.Fatalf("row %d has no scaled columns", i)
		}
	}

	// A typical London 3-bed flat query must answer with real statistics.
	stats := p.MarketStatistics("London", "Flat")
	if stats.Count == 0 {
		t.Fatal("expected London flats in the synthetic dataset")
	}
	anomaly := p.DetectPriceAnomalies(&Listing{
		City: "London", PropertyType: "Flat", PricePerMonth: stats.AveragePrice,
	})
	if anomaly.Level != AnomalyNormal {
		t.Errorf("average-priced listing should be normal, got %s", anomaly.Level)
	}

	vec := p.FeatureVector(&listings[0])
	if len(vec) != len(p.FeatureColumns()) {
		t.Errorf("feature vector length %d != columns %d", len(vec), len(p.FeatureColumns()))
	}
}

func TestSyntheticSourceDeterministic(t *testing.T) {
	a, err := NewSyntheticSource(100, 7).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	b, err := NewSyntheticSource(100, 7).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("row count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].City != b[i].City || a[i].PricePerMonth != b[i].PricePerMonth {
			t.Fatalf("row %d differs between runs with the same seed", i)
		}
	}
}

func TestFallbackSourceDegrades(t *testing.T) {
	failing := sourceFunc{name: "failing", fn: func(ctx context.Context) ([]Listing, error) {
		return nil, context.DeadlineExceeded
	}}
	empty := sourceFunc{name: "empty", fn: func(ctx context.Context) ([]Listing, error) {
		return nil, nil
	}}

	rows, err := NewFallbackSource(failing, empty, NewSyntheticSource(50, 1)).Load(context.Background())
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(rows) != 50 {
		t.Errorf("expected 50 synthetic rows, got %d", len(rows))
	}

	_, err = NewFallbackSource(failing, empty).Load(context.Background())
	if err == nil {
		t.Error("expected error when all sources are exhausted")
	}
}

type sourceFunc struct {
	name string
	fn   func(ctx context.Context) ([]Listing, error)
}

func (s sourceFunc) Name() string                                { return s.name }
func (s sourceFunc) Load(ctx context.Context) ([]Listing, error) { return s.fn(ctx) }

func TestCityForPostcode(t *testing.T) {
	rows := []Listing{
		testListing("London", "Flat", 2, 1500),
		testListing("London", "House", 3, 2500),
		testListing("Manchester", "Flat", 2, 900),
	}
	rows[1].ID = "London-House-2"
	rows[2].Postcode = "M1 4BT"

	p := NewProcessor(DefaultProcessorConfig())
	if err := p.Process(context.Background(), rows); err != nil {
		t.Fatalf("processing failed: %v", err)
	}

	tests := []struct {
		name     string
		postcode string
		want     string
	}{
		{"majority area", "SW9 0PX", "London"},
		{"single-letter area", "m2 3aa", "Manchester"},
		{"unknown area", "ZZ9 9ZZ", ""},
		{"no area letters", "123", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CityForPostcode(tt.postcode); got != tt.want {
				t.Errorf("expected city %q for %q, got %q", tt.want, tt.postcode, got)
			}
		})
	}
}
