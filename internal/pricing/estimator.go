// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package pricing estimates fair monthly rent for a property from market
// statistics of comparable listings.
//
// The estimate anchors on the comparable median and applies bedroom,
// bathroom and furnishing adjustments. When no comparables exist the
// estimator answers from documented defaults with zero confidence instead
// of failing.
package pricing

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/logging"
)

// Config tunes the estimator.
type Config struct {
	// RangePercent spreads the suggested range around the estimate.
	RangePercent float64 `json:"range_percent"`

	// DefaultPriceMin and DefaultPriceMax bound the degraded-mode range
	// when no comparables exist.
	DefaultPriceMin float64 `json:"default_price_min"`
	DefaultPriceMax float64 `json:"default_price_max"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RangePercent:    0.15,
		DefaultPriceMin: 800,
		DefaultPriceMax: 2500,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RangePercent <= 0 || c.RangePercent >= 1 {
		return fmt.Errorf("range percent must be in (0, 1), got %v", c.RangePercent)
	}
	if c.DefaultPriceMin <= 0 || c.DefaultPriceMax <= c.DefaultPriceMin {
		return fmt.Errorf("invalid default price bounds: %v..%v", c.DefaultPriceMin, c.DefaultPriceMax)
	}
	return nil
}

// Request describes the property to price. Callers holding only a postcode
// may leave City empty; it is then resolved from the postcode area.
type Request struct {
	City             string  `json:"city"`
	Postcode         string  `json:"postcode"`
	PropertyType     string  `json:"property_type"`
	Bedrooms         float64 `json:"bedrooms"`
	Bathrooms        float64 `json:"bathrooms"`
	FurnishingStatus string  `json:"furnishing_status"`
}

// Estimate is the pricing answer. Confidence is in [0, 1] and reflects the
// comparable sample size; degraded answers carry confidence 0.
type Estimate struct {
	Price      float64 `json:"estimated_price"`
	RangeLow   float64 `json:"range_low"`
	RangeHigh  float64 `json:"range_high"`
	Confidence float64 `json:"confidence"`

	Comparables int                `json:"comparables"`
	Market      dataset.MarketStats `json:"market"`
	Degraded    bool               `json:"degraded"`
}

// MarketProvider supplies comparable statistics and postcode resolution.
// *dataset.Processor satisfies it.
type MarketProvider interface {
	MarketStatistics(city, propertyType string) dataset.MarketStats
	CityForPostcode(postcode string) string
}

// Estimator prices properties against comparable market slices.
type Estimator struct {
	cfg    Config
	market MarketProvider
	logger zerolog.Logger
}

// NewEstimator creates an estimator.
func NewEstimator(cfg Config, market MarketProvider) *Estimator {
	return &Estimator{
		cfg:    cfg,
		market: market,
		logger: logging.With().Str("component", "pricing").Logger(),
	}
}

// EstimatePrice answers a pricing request. It never returns an error: an
// empty comparable slice degrades to the default price band.
func (e *Estimator) EstimatePrice(req Request) Estimate {
	city := req.City
	if city == "" && req.Postcode != "" {
		city = e.market.CityForPostcode(req.Postcode)
	}
	stats := e.market.MarketStatistics(city, req.PropertyType)

	if stats.Count == 0 {
		mid := (e.cfg.DefaultPriceMin + e.cfg.DefaultPriceMax) / 2
		e.logger.Debug().
			Str("city", req.City).
			Str("property_type", req.PropertyType).
			Msg("no comparables, returning default price band")
		return Estimate{
			Price:      mid,
			RangeLow:   e.cfg.DefaultPriceMin,
			RangeHigh:  e.cfg.DefaultPriceMax,
			Confidence: 0,
			Market:     stats,
			Degraded:   true,
		}
	}

	price := stats.MedianPrice

	// Bedroom adjustment: 12% of the median per bedroom away from the
	// comparable average, bathrooms half that.
	if req.Bedrooms > 0 && stats.AvgBedrooms > 0 {
		price += (req.Bedrooms - stats.AvgBedrooms) * stats.MedianPrice * 0.12
	}
	if req.Bathrooms > 0 && stats.AvgBathrooms > 0 {
		price += (req.Bathrooms - stats.AvgBathrooms) * stats.MedianPrice * 0.06
	}

	price *= furnishingFactor(req.FurnishingStatus)

	// Keep the estimate inside the observed market envelope.
	if price < stats.MinPrice {
		price = stats.MinPrice
	}
	if price > stats.MaxPrice {
		price = stats.MaxPrice
	}

	return Estimate{
		Price:       price,
		RangeLow:    price * (1 - e.cfg.RangePercent),
		RangeHigh:   price * (1 + e.cfg.RangePercent),
		Confidence:  confidenceFor(stats.Count),
		Comparables: stats.Count,
		Market:      stats,
	}
}

// furnishingFactor adjusts for furnishing status.
func furnishingFactor(status string) float64 {
	switch status {
	case "Furnished":
		return 1.05
	case "Part-Furnished":
		return 1.02
	case "Unfurnished":
		return 0.97
	default:
		return 1
	}
}

// confidenceFor maps comparable sample size onto [0, 1].
func confidenceFor(count int) float64 {
	switch {
	case count >= 100:
		return 0.95
	case count >= 30:
		return 0.8
	case count >= 10:
		return 0.6
	case count >= 3:
		return 0.4
	case count >= 1:
		return 0.2
	default:
		return 0
	}
}
