// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentlens/rentlens/internal/metrics"
)

// Interaction is one recorded user action on a property. Type must be one of
// view, save, inquiry, contact; unknown types are stored but ignored by the
// recommender's rating mapping.
type Interaction struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PropertyID string    `json:"property_id"`
	Type       string    `json:"interaction_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordInteraction appends one interaction to the log. A missing ID is
// assigned; a missing timestamp defaults to now.
func (s *Store) RecordInteraction(ctx context.Context, in Interaction) error {
	done := metrics.ObserveQuery("insert", "interactions")
	defer done()

	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, property_id, interaction_type, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.PropertyID, in.Type, in.CreatedAt)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("insert", "interactions").Inc()
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// RecordInteractions appends a batch inside one transaction.
func (s *Store) RecordInteractions(ctx context.Context, batch []Interaction) error {
	done := metrics.ObserveQuery("insert_batch", "interactions")
	defer done()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO interactions (id, user_id, property_id, interaction_type, created_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, in := range batch {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		if in.CreatedAt.IsZero() {
			in.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, in.ID, in.UserID, in.PropertyID, in.Type, in.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert interaction %s: %w", in.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interactions: %w", err)
	}
	return nil
}

// ListInteractions returns the full interaction log, oldest first.
func (s *Store) ListInteractions(ctx context.Context) ([]Interaction, error) {
	done := metrics.ObserveQuery("list", "interactions")
	defer done()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, property_id, interaction_type, created_at
		 FROM interactions ORDER BY created_at`)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("list", "interactions").Inc()
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.PropertyID, &in.Type, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountInteractions returns the interaction log size.
func (s *Store) CountInteractions(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM interactions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}
