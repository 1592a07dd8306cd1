// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package store persists listings and user interactions in DuckDB.
//
// DuckDB gives the pipeline a single-file analytical database: tolerant CSV
// ingestion via read_csv with ignore_errors, fast aggregate queries for
// market statistics, and an append-only interaction log feeding the
// collaborative recommender. An empty Path opens an in-memory database,
// which the tests use.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/dataset"
	"github.com/rentlens/rentlens/internal/logging"
	"github.com/rentlens/rentlens/internal/metrics"
)

// Config configures the DuckDB connection.
type Config struct {
	// Path is the database file. Empty means in-memory.
	Path string

	// MaxMemory caps DuckDB's memory usage, e.g. "512MB".
	MaxMemory string

	// Threads limits DuckDB's worker threads. 0 uses NumCPU.
	Threads int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:      "data/rentlens.db",
		MaxMemory: "512MB",
		Threads:   0,
	}
}

// Store wraps the DuckDB connection.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open connects to DuckDB and creates the schema if missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// Auto-install/auto-load stays off so a restricted network cannot hang
	// the open; we use no extensions.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		conn:   conn,
		logger: logging.With().Str("component", "store").Logger(),
	}
	if err := s.createSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", maxMemory).
		Msg("database opened")

	return s, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// createSchema creates the listings and interactions tables.
func (s *Store) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id VARCHAR PRIMARY KEY,
			title VARCHAR,
			description VARCHAR,
			city VARCHAR,
			postcode VARCHAR,
			latitude DOUBLE,
			longitude DOUBLE,
			bedrooms DOUBLE,
			bathrooms DOUBLE,
			property_type VARCHAR,
			furnishing_status VARCHAR,
			price_per_month DOUBLE,
			epc_rating VARCHAR,
			council_tax_band VARCHAR,
			parking BOOLEAN DEFAULT false,
			garden BOOLEAN DEFAULT false,
			pets_allowed BOOLEAN DEFAULT false,
			image_count INTEGER DEFAULT 0,
			landlord_id VARCHAR,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			property_id VARCHAR NOT NULL,
			interaction_type VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_city ON listings(city)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// IngestCSV loads a listings CSV into the listings table. read_csv runs with
// ignore_errors so malformed rows are skipped rather than failing the load;
// union_by_name tolerates column order differences. Returns the number of
// rows ingested.
func (s *Store) IngestCSV(ctx context.Context, path string) (int64, error) {
	done := metrics.ObserveQuery("ingest_csv", "listings")
	defer done()

	query := `INSERT OR REPLACE INTO listings
		SELECT
			COALESCE(CAST(id AS VARCHAR), CAST(uuid() AS VARCHAR)),
			title, description, city, postcode,
			TRY_CAST(latitude AS DOUBLE),
			TRY_CAST(longitude AS DOUBLE),
			TRY_CAST(bedrooms AS DOUBLE),
			TRY_CAST(bathrooms AS DOUBLE),
			property_type, furnishing_status,
			TRY_CAST(price_per_month AS DOUBLE),
			epc_rating, council_tax_band,
			COALESCE(TRY_CAST(parking AS BOOLEAN), false),
			COALESCE(TRY_CAST(garden AS BOOLEAN), false),
			COALESCE(TRY_CAST(pets_allowed AS BOOLEAN), false),
			COALESCE(TRY_CAST(image_count AS INTEGER), 0),
			landlord_id,
			TRY_CAST(created_at AS TIMESTAMP)
		FROM read_csv(?, header=true, ignore_errors=true, union_by_name=true, all_varchar=true)`

	res, err := s.conn.ExecContext(ctx, query, path)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("ingest_csv", "listings").Inc()
		return 0, fmt.Errorf("failed to ingest csv %s: %w", path, err)
	}

	rows, _ := res.RowsAffected()
	s.logger.Info().Str("path", path).Int64("rows", rows).Msg("csv ingested")
	return rows, nil
}

// InsertListings writes listings (typically synthetic) into the table.
func (s *Store) InsertListings(ctx context.Context, listings []dataset.Listing) error {
	done := metrics.ObserveQuery("insert", "listings")
	defer done()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO listings VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range listings {
		l := &listings[i]
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Title, l.Description, l.City, l.Postcode,
			nullIfMissing(l.Latitude), nullIfMissing(l.Longitude),
			nullIfMissing(l.Bedrooms), nullIfMissing(l.Bathrooms),
			nullIfEmpty(l.PropertyType), nullIfEmpty(l.FurnishingStatus),
			nullIfMissing(l.PricePerMonth),
			nullIfEmpty(l.EPCRating), nullIfEmpty(l.CouncilTaxBand),
			l.Parking, l.Garden, l.PetsAllowed,
			len(l.ImageURLs), l.LandlordID, l.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert listing %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listings: %w", err)
	}
	return nil
}

// ListListings returns every listing. NULL numerics surface as NaN and NULL
// strings as empty, matching the Processor's missing-value conventions.
func (s *Store) ListListings(ctx context.Context) ([]dataset.Listing, error) {
	done := metrics.ObserveQuery("list", "listings")
	defer done()

	rows, err := s.conn.QueryContext(ctx, `SELECT
		id, title, description, city, postcode, latitude, longitude,
		bedrooms, bathrooms, property_type, furnishing_status,
		price_per_month, epc_rating, council_tax_band,
		parking, garden, pets_allowed, image_count, landlord_id, created_at
		FROM listings`)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("list", "listings").Inc()
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []dataset.Listing
	for rows.Next() {
		var (
			l                              dataset.Listing
			title, desc, city, postcode    sql.NullString
			lat, lon, beds, baths, price   sql.NullFloat64
			propType, furnishing           sql.NullString
			epc, councilTax, landlord      sql.NullString
			parking, garden, pets          sql.NullBool
			imageCount                     sql.NullInt64
			createdAt                      sql.NullTime
		)
		if err := rows.Scan(&l.ID, &title, &desc, &city, &postcode, &lat, &lon,
			&beds, &baths, &propType, &furnishing, &price, &epc, &councilTax,
			&parking, &garden, &pets, &imageCount, &landlord, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		l.Title = title.String
		l.Description = desc.String
		l.City = city.String
		l.Postcode = postcode.String
		l.Latitude = floatOrMissing(lat)
		l.Longitude = floatOrMissing(lon)
		l.Bedrooms = floatOrMissing(beds)
		l.Bathrooms = floatOrMissing(baths)
		l.PropertyType = propType.String
		l.FurnishingStatus = furnishing.String
		l.PricePerMonth = floatOrMissing(price)
		l.EPCRating = epc.String
		l.CouncilTaxBand = councilTax.String
		l.Parking = parking.Bool
		l.Garden = garden.Bool
		l.PetsAllowed = pets.Bool
		l.LandlordID = landlord.String
		l.CreatedAt = timeOrZero(createdAt)
		if imageCount.Valid && imageCount.Int64 > 0 {
			l.ImageURLs = make([]string, imageCount.Int64)
		}

		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CountListings returns the listings row count.
func (s *Store) CountListings(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM listings`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// LandlordListingCounts returns active listing counts per landlord, used by
// the posting-volume fraud rule.
func (s *Store) LandlordListingCounts(ctx context.Context) (map[string]int, error) {
	done := metrics.ObserveQuery("landlord_counts", "listings")
	defer done()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT landlord_id, count(*) FROM listings
		 WHERE landlord_id IS NOT NULL AND landlord_id != ''
		 GROUP BY landlord_id`)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("landlord_counts", "listings").Inc()
		return nil, fmt.Errorf("failed to query landlord counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var landlord string
		var n int
		if err := rows.Scan(&landlord, &n); err != nil {
			return nil, fmt.Errorf("failed to scan landlord count: %w", err)
		}
		counts[landlord] = n
	}
	return counts, rows.Err()
}

// nullIfMissing converts NaN to SQL NULL.
func nullIfMissing(v float64) any {
	if dataset.IsMissing(v) {
		return nil
	}
	return v
}

// nullIfEmpty converts "" to SQL NULL.
func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

// floatOrMissing converts SQL NULL to NaN.
func floatOrMissing(v sql.NullFloat64) float64 {
	if !v.Valid {
		return dataset.Missing()
	}
	return v.Float64
}

// timeOrZero converts SQL NULL to the zero time.
func timeOrZero(v sql.NullTime) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}
