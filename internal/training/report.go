// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

package training

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// Report is the JSON artifact summarizing a training cycle, written next to
// the model files for audit and dashboard scraping.
type Report struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Results     []Result  `json:"results"`
}

// WriteReport writes the report as report_{run_id}.json in dir, atomically.
func WriteReport(dir string, report Report) (string, error) {
	if report.RunID == "" {
		return "", fmt.Errorf("report has no run ID")
	}
	if report.CompletedAt.IsZero() {
		report.CompletedAt = time.Now()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode training report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("report_%s.json", report.RunID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write training report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to publish training report: %w", err)
	}
	return path, nil
}

// ReadReport loads a previously written report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode training report: %w", err)
	}
	return &report, nil
}
