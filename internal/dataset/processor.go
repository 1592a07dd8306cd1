// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package dataset turns raw, possibly malformed listing rows into a clean,
// numerically encoded feature set plus queryable market statistics.
//
// The pipeline runs as one atomic sequence per training run:
// load -> clean -> engineer -> rank -> encode -> scale. Encoder and scaler
// state captured by a run is the state later used at inference time; a
// Processor instance is owned by exactly one run and never shared across
// concurrent trainers.
//
// Nothing in this package raises for missing or degenerate data: missing
// values are imputed, unparseable rows dropped, empty datasets replaced by a
// synthetic fallback, and empty market queries answered with documented
// defaults. Downstream models must always receive a well-formed numeric
// matrix.
package dataset

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
)

// numericColumns are the raw numeric columns cleaned by median imputation.
var numericColumns = []string{"bedrooms", "bathrooms", "price_per_month", "latitude", "longitude"}

// categoricalColumns are the raw categorical columns cleaned by mode imputation.
var categoricalColumns = []string{"property_type", "furnishing_status", "city", "postcode"}

// encodedColumns are the categorical columns given label encoders.
var encodedColumns = []string{"city", "property_type", "furnishing_status", "postcode_area"}

// contentFeatureOrder is the fixed ordered feature set used to build
// similarity feature vectors. Columns without fitted state are filtered out
// at vector-build time.
var contentFeatureOrder = []string{
	"bedrooms", "bathrooms", "price_per_month",
	"property_type_encoded", "city_encoded",
	"latitude", "longitude",
}

// ProcessorConfig configures the cleaning and scaling stages.
type ProcessorConfig struct {
	// MaxPrice is the sanity ceiling for price_per_month.
	MaxPrice float64

	// ScaleColumns is the numeric column subset to standardize.
	ScaleColumns []string

	// SyntheticRows is the size of the fallback dataset generated when
	// cleaning yields zero rows.
	SyntheticRows int

	// Seed drives the fallback generator.
	Seed int64
}

// DefaultProcessorConfig returns production defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxPrice: MaxSanePrice,
		ScaleColumns: []string{
			"bedrooms", "bathrooms", "price_per_month",
			"price_per_bedroom", "amenity_score", "latitude", "longitude",
		},
		SyntheticRows: 10000,
		Seed:          42,
	}
}

// Processor owns one training run's dataset state: the cleaned rows and the
// encoder/scaler parameters fitted over them.
type Processor struct {
	cfg    ProcessorConfig
	logger zerolog.Logger

	listings  []Listing
	encoders  map[string]*LabelEncoder
	scalers   map[string]*StandardScaler
	cityRanks map[string]int
	now       time.Time
}

// NewProcessor creates a Processor with the given configuration.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = MaxSanePrice
	}
	if len(cfg.ScaleColumns) == 0 {
		cfg.ScaleColumns = DefaultProcessorConfig().ScaleColumns
	}
	if cfg.SyntheticRows <= 0 {
		cfg.SyntheticRows = 10000
	}

	return &Processor{
		cfg:       cfg,
		logger:    logging.With().Str("component", "dataset").Logger(),
		encoders:  make(map[string]*LabelEncoder),
		scalers:   make(map[string]*StandardScaler),
		cityRanks: make(map[string]int),
		now:       time.Now(),
	}
}

// Process runs the full pipeline over raw rows: clean, engineer, rank,
// encode, scale. It returns an error only on context cancellation; data
// problems are absorbed.
func (p *Processor) Process(ctx context.Context, rows []Listing) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.listings = p.Clean(ctx, rows)
	p.EngineerFeatures()
	p.RankCityPrices()
	p.EncodeCategoricals()
	p.ScaleFeatures()

	p.logger.Info().
		Int("rows", len(p.listings)).
		Int("encoders", len(p.encoders)).
		Int("scaled_columns", len(p.scalers)).
		Msg("dataset processing complete")

	return nil
}

// Listings returns the processed rows. The slice is owned by the Processor;
// callers must not mutate it.
func (p *Processor) Listings() []Listing {
	return p.listings
}

// Clean imputes missing values, drops rows with implausible prices, and
// normalizes postcodes and property types. If cleaning yields zero rows the
// synthetic fallback dataset is substituted, so the result is never empty.
func (p *Processor) Clean(ctx context.Context, rows []Listing) []Listing {
	cleaned := p.cleanOnce(rows)
	if len(cleaned) > 0 {
		return cleaned
	}

	p.logger.Warn().Msg("cleaning yielded zero rows, degrading to synthetic dataset")
	synthetic, err := NewSyntheticSource(p.cfg.SyntheticRows, p.cfg.Seed).Load(ctx)
	if err != nil {
		// Only context cancellation can land here; return what we have.
		return cleaned
	}
	metrics.DatasetRowsLoaded.WithLabelValues("synthetic").Add(float64(len(synthetic)))
	return p.cleanOnce(synthetic)
}

// cleanOnce applies one pass of imputation, filtering and normalization.
func (p *Processor) cleanOnce(rows []Listing) []Listing {
	if len(rows) == 0 {
		return nil
	}

	out := make([]Listing, len(rows))
	copy(out, rows)

	// Median imputation for numeric columns.
	for _, col := range numericColumns {
		med, ok := columnMedian(out, col)
		if !ok {
			continue
		}
		for i := range out {
			if IsMissing(numericValue(&out[i], col)) {
				setNumericValue(&out[i], col, med)
				metrics.DatasetValuesImputed.WithLabelValues(col, "median").Inc()
			}
		}
	}

	// Mode imputation for categorical columns.
	for _, col := range categoricalColumns {
		mode, ok := columnMode(out, col)
		if !ok {
			continue
		}
		for i := range out {
			if categoricalValue(&out[i], col) == "" {
				setCategoricalValue(&out[i], col, mode)
				metrics.DatasetValuesImputed.WithLabelValues(col, "mode").Inc()
			}
		}
	}

	// Price sanity filter and normalization.
	kept := out[:0]
	for i := range out {
		l := out[i]
		if !(l.PricePerMonth > 0 && l.PricePerMonth < p.cfg.MaxPrice) || math.IsInf(l.PricePerMonth, 0) {
			metrics.DatasetRowsDropped.WithLabelValues("price_bounds").Inc()
			continue
		}

		l.Postcode = NormalizePostcode(l.Postcode)
		l.PostcodeArea = PostcodeArea(l.Postcode)
		l.PropertyType = NormalizePropertyType(l.PropertyType)
		kept = append(kept, l)
	}

	return kept
}

// EngineerFeatures adds the derived columns: price_per_bedroom,
// days_since_listed, amenity_score, epc_numeric, council_tax_numeric.
func (p *Processor) EngineerFeatures() {
	for i := range p.listings {
		l := &p.listings[i]

		beds := l.Bedrooms
		if beds < 1 || IsMissing(beds) {
			beds = 1
		}
		l.PricePerBedroom = l.PricePerMonth / beds

		if !l.CreatedAt.IsZero() {
			l.DaysSinceListed = p.now.Sub(l.CreatedAt).Hours() / 24
			if l.DaysSinceListed < 0 {
				l.DaysSinceListed = 0
			}
		}

		l.AmenityScore = l.AmenityCount()
		l.EPCNumeric = EPCRank(l.EPCRating)
		l.CouncilTaxNumeric = CouncilTaxRank(l.CouncilTaxBand)
	}
}

// RankCityPrices computes per-city median prices, ranks cities descending by
// median (rank 1 = most expensive), and attaches city_price_rank to every
// row. Cities absent from the processed set rank 0.
func (p *Processor) RankCityPrices() {
	prices := make(map[string][]float64)
	for i := range p.listings {
		city := p.listings[i].City
		if city == "" {
			continue
		}
		prices[city] = append(prices[city], p.listings[i].PricePerMonth)
	}

	type cityMedian struct {
		city   string
		median float64
	}
	medians := make([]cityMedian, 0, len(prices))
	for city, ps := range prices {
		medians = append(medians, cityMedian{city, median(ps)})
	}
	sort.Slice(medians, func(i, j int) bool {
		if medians[i].median != medians[j].median {
			return medians[i].median > medians[j].median
		}
		return medians[i].city < medians[j].city
	})

	p.cityRanks = make(map[string]int, len(medians))
	for rank, cm := range medians {
		p.cityRanks[cm.city] = rank + 1
	}

	for i := range p.listings {
		p.listings[i].CityPriceRank = p.cityRanks[p.listings[i].City]
	}
}

// CityRank returns the price rank for a city, 0 if unseen.
func (p *Processor) CityRank(city string) int {
	return p.cityRanks[city]
}

// EncodeCategoricals fits label encoders for city, property_type,
// furnishing_status and postcode_area, and attaches the encoded values.
// Encoders are fitted once; later calls reuse the existing vocabulary so a
// run's encoding stays stable.
func (p *Processor) EncodeCategoricals() {
	for _, col := range encodedColumns {
		if _, ok := p.encoders[col]; ok {
			continue
		}
		values := make([]string, 0, len(p.listings))
		for i := range p.listings {
			values = append(values, encodedSourceValue(&p.listings[i], col))
		}
		p.encoders[col] = NewLabelEncoder(values)
	}

	for i := range p.listings {
		l := &p.listings[i]
		if l.Encoded == nil {
			l.Encoded = make(map[string]int, len(encodedColumns))
		}
		for _, col := range encodedColumns {
			l.Encoded[col+"_encoded"] = p.encoders[col].Encode(encodedSourceValue(l, col))
		}
	}
}

// EncodeValue encodes a single categorical value with a fitted encoder.
// Unseen values (and unfitted columns) map to the unknown sentinel.
func (p *Processor) EncodeValue(column, value string) int {
	enc, ok := p.encoders[column]
	if !ok {
		return 0
	}
	return enc.Encode(value)
}

// Encoders exposes the fitted encoders for persistence.
func (p *Processor) Encoders() map[string]*LabelEncoder {
	return p.encoders
}

// ScaleFeatures standardizes the configured numeric columns. Scaler
// parameters are fitted on first call and reused afterwards.
func (p *Processor) ScaleFeatures() {
	for _, col := range p.cfg.ScaleColumns {
		if _, ok := p.scalers[col]; !ok {
			values := make([]float64, 0, len(p.listings))
			for i := range p.listings {
				values = append(values, numericValue(&p.listings[i], col))
			}
			p.scalers[col] = FitScaler(values)
		}

		scaler := p.scalers[col]
		for i := range p.listings {
			l := &p.listings[i]
			if l.Scaled == nil {
				l.Scaled = make(map[string]float64, len(p.cfg.ScaleColumns))
			}
			v := numericValue(l, col)
			if IsMissing(v) {
				v = scaler.Mean
			}
			l.Scaled[col+"_scaled"] = scaler.Transform(v)
		}
	}
}

// Scalers exposes the fitted scalers for persistence.
func (p *Processor) Scalers() map[string]*StandardScaler {
	return p.scalers
}

// MarketStatistics filters the processed set by optional city substring
// (case-insensitive) and exact property type, then summarizes prices. An
// empty filter result returns DefaultMarketStats, never an error or NaN.
func (p *Processor) MarketStatistics(city, propertyType string) MarketStats {
	cityNeedle := strings.ToLower(strings.TrimSpace(city))

	var prices, beds, baths []float64
	for i := range p.listings {
		l := &p.listings[i]
		if cityNeedle != "" && !strings.Contains(strings.ToLower(l.City), cityNeedle) {
			continue
		}
		if propertyType != "" && l.PropertyType != propertyType {
			continue
		}
		prices = append(prices, l.PricePerMonth)
		beds = append(beds, l.Bedrooms)
		baths = append(baths, l.Bathrooms)
	}

	if len(prices) == 0 {
		p.logger.Debug().
			Str("city", city).
			Str("property_type", propertyType).
			Msg("no listings match market filter, returning defaults")
		return DefaultMarketStats()
	}

	minP, maxP := prices[0], prices[0]
	for _, v := range prices {
		if v < minP {
			minP = v
		}
		if v > maxP {
			maxP = v
		}
	}

	return MarketStats{
		AveragePrice: mean(prices),
		MedianPrice:  median(prices),
		MinPrice:     minP,
		MaxPrice:     maxP,
		StdDevPrice:  stddev(prices),
		Count:        len(prices),
		AvgBedrooms:  mean(beds),
		AvgBathrooms: mean(baths),
	}
}

// CityForPostcode resolves a postcode to the most common city among
// processed listings sharing its postcode area. Returns "" when the
// postcode has no area letters or no listing matches, so callers degrade
// the same way as with an empty market filter.
func (p *Processor) CityForPostcode(postcode string) string {
	area := PostcodeArea(postcode)
	if area == "" {
		return ""
	}

	counts := map[string]int{}
	for i := range p.listings {
		l := &p.listings[i]
		if l.City == "" || PostcodeArea(l.Postcode) != area {
			continue
		}
		counts[l.City]++
	}

	best, bestN := "", 0
	for city, n := range counts {
		if n > bestN || (n == bestN && city < best) {
			best, bestN = city, n
		}
	}
	return best
}

// DetectPriceAnomalies compares a listing's price to its city/type market.
func (p *Processor) DetectPriceAnomalies(l *Listing) PriceAnomaly {
	stats := p.MarketStatistics(l.City, l.PropertyType)
	return ClassifyPriceAnomaly(l.PricePerMonth, stats)
}

// ClassifyPriceAnomaly computes the z-score of a price against market stats
// and maps it onto an anomaly level. The std divisor is clamped to 1 so a
// degenerate market cannot produce infinite z-scores.
func ClassifyPriceAnomaly(price float64, stats MarketStats) PriceAnomaly {
	div := stats.StdDevPrice
	if div < 1 {
		div = 1
	}
	z := math.Abs(price-stats.AveragePrice) / div

	var level AnomalyLevel
	switch {
	case z <= 1:
		level = AnomalyNormal
	case z <= 2:
		level = AnomalyLow
	case z <= 3:
		level = AnomalyMedium
	default:
		level = AnomalyHigh
	}
	metrics.PriceAnomalies.WithLabelValues(string(level)).Inc()

	var pct float64
	if stats.AveragePrice > 0 {
		pct = (price - stats.AveragePrice) / stats.AveragePrice * 100
	}

	return PriceAnomaly{
		Level:            level,
		ZScore:           z,
		PercentDeviation: pct,
		MarketAverage:    stats.AveragePrice,
	}
}

// FeatureColumns returns the fixed content-feature order filtered to the
// columns this Processor can actually produce.
func (p *Processor) FeatureColumns() []string {
	cols := make([]string, 0, len(contentFeatureOrder))
	for _, col := range contentFeatureOrder {
		switch col {
		case "property_type_encoded":
			if _, ok := p.encoders["property_type"]; !ok {
				continue
			}
		case "city_encoded":
			if _, ok := p.encoders["city"]; !ok {
				continue
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// FeatureVector builds the numeric feature vector for a listing in
// FeatureColumns order.
func (p *Processor) FeatureVector(l *Listing) []float64 {
	cols := p.FeatureColumns()
	vec := make([]float64, 0, len(cols))
	for _, col := range cols {
		switch col {
		case "property_type_encoded":
			vec = append(vec, float64(p.EncodeValue("property_type", l.PropertyType)))
		case "city_encoded":
			vec = append(vec, float64(p.EncodeValue("city", l.City)))
		default:
			v := numericValue(l, col)
			if IsMissing(v) {
				v = 0
			}
			vec = append(vec, v)
		}
	}
	return vec
}

// numericValue reads a numeric column from a listing.
func numericValue(l *Listing, col string) float64 {
	switch col {
	case "bedrooms":
		return l.Bedrooms
	case "bathrooms":
		return l.Bathrooms
	case "price_per_month":
		return l.PricePerMonth
	case "latitude":
		return l.Latitude
	case "longitude":
		return l.Longitude
	case "price_per_bedroom":
		return l.PricePerBedroom
	case "days_since_listed":
		return l.DaysSinceListed
	case "amenity_score":
		return l.AmenityScore
	case "epc_numeric":
		return l.EPCNumeric
	case "council_tax_numeric":
		return l.CouncilTaxNumeric
	default:
		return Missing()
	}
}

// setNumericValue writes a numeric column on a listing.
func setNumericValue(l *Listing, col string, v float64) {
	switch col {
	case "bedrooms":
		l.Bedrooms = v
	case "bathrooms":
		l.Bathrooms = v
	case "price_per_month":
		l.PricePerMonth = v
	case "latitude":
		l.Latitude = v
	case "longitude":
		l.Longitude = v
	}
}

// categoricalValue reads a categorical column from a listing.
func categoricalValue(l *Listing, col string) string {
	switch col {
	case "property_type":
		return l.PropertyType
	case "furnishing_status":
		return l.FurnishingStatus
	case "city":
		return l.City
	case "postcode":
		return l.Postcode
	case "postcode_area":
		return l.PostcodeArea
	default:
		return ""
	}
}

// setCategoricalValue writes a categorical column on a listing.
func setCategoricalValue(l *Listing, col, v string) {
	switch col {
	case "property_type":
		l.PropertyType = v
	case "furnishing_status":
		l.FurnishingStatus = v
	case "city":
		l.City = v
	case "postcode":
		l.Postcode = v
	}
}

// encodedSourceValue returns the raw value feeding an encoder column.
func encodedSourceValue(l *Listing, col string) string {
	return categoricalValue(l, col)
}

// columnMedian computes the median of a numeric column, ignoring missing
// values. ok is false when every value is missing.
func columnMedian(rows []Listing, col string) (float64, bool) {
	values := make([]float64, 0, len(rows))
	for i := range rows {
		if v := numericValue(&rows[i], col); !IsMissing(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return median(values), true
}

// columnMode computes the most frequent value of a categorical column, ties
// broken by first encounter. ok is false when every value is missing.
func columnMode(rows []Listing, col string) (string, bool) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for i := range rows {
		v := categoricalValue(&rows[i], col)
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 0 {
		return "", false
	}

	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}

// median computes the middle element of a sorted copy, averaging the two
// middle elements for even counts.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// mean computes the arithmetic mean, ignoring missing values.
func mean(values []float64) float64 {
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
		return 0
	}
	return sum / float64(n)
}

// stddev computes the population standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)
	var sqSum float64
	var n int
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		d := v - m
		sqSum += d * d
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sqSum / float64(n))
}

// Summary returns a one-line description of the processed dataset for logs.
func (p *Processor) Summary() string {
	return fmt.Sprintf("%d listings, %d encoders, %d scaled columns",
		len(p.listings), len(p.encoders), len(p.scalers))
}
