// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package store

import (
	"context"
	"fmt"
	"os"

	"github.com/rentlens/rentlens/internal/dataset"
)

// Source adapts the Store to the dataset.Source interface. When a CSV path
// is configured and the table is empty, the file is ingested first; a
// missing or unreadable file is not an error here because the fallback chain
// handles degradation.
type Source struct {
	store   *Store
	csvPath string
}

// NewSource creates a dataset source backed by the store. csvPath may be
// empty to read only what the table already holds.
func NewSource(store *Store, csvPath string) *Source {
	return &Source{store: store, csvPath: csvPath}
}

// Name identifies the source.
func (s *Source) Name() string { return "store" }

// Load returns listing rows from the database, ingesting the configured CSV
// into an empty table first.
func (s *Source) Load(ctx context.Context) ([]dataset.Listing, error) {
	count, err := s.store.CountListings(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 && s.csvPath != "" {
		if _, statErr := os.Stat(s.csvPath); statErr != nil {
			return nil, fmt.Errorf("dataset file unavailable: %w", statErr)
		}
		if _, err := s.store.IngestCSV(ctx, s.csvPath); err != nil {
			return nil, err
		}
	}

	return s.store.ListListings(ctx)
}
