// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package metrics provides Prometheus instrumentation for the RentLens pipeline.
//
// Metrics are registered on the default registry via promauto; exposition is
// the responsibility of the hosting process. Batch training commands record
// durations and counts here so scheduled runs can be monitored the same way
// long-running services are.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dataset pipeline metrics
	DatasetRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_rows_loaded_total",
			Help: "Total listing rows loaded, labelled by source",
		},
		[]string{"source"}, // "file", "store", "synthetic"
	)

	DatasetRowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_rows_dropped_total",
			Help: "Total listing rows dropped during cleaning",
		},
		[]string{"reason"}, // "price_bounds", "malformed"
	)

	DatasetValuesImputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_values_imputed_total",
			Help: "Total missing values imputed during cleaning",
		},
		[]string{"column", "strategy"}, // strategy: "median", "mode"
	)

	PriceAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_anomalies_total",
			Help: "Price anomaly classifications by level",
		},
		[]string{"level"}, // "normal", "low", "medium", "high"
	)

	// Fraud scoring metrics
	FraudScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_score_distribution",
			Help:    "Distribution of blended fraud scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		},
	)

	FraudFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fraud_listings_flagged_total",
			Help: "Total listings flagged as fraudulent",
		},
	)

	FraudMLUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fraud_ml_unavailable_total",
			Help: "Fraud scorings served by the rule layer alone",
		},
	)

	// Recommendation metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Recommendation requests by serving mode",
		},
		[]string{"mode"}, // "hybrid", "content_only", "none"
	)

	// Training metrics
	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"model"}, // "fraud", "content", "collaborative"
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Training runs by model and outcome",
		},
		[]string{"model", "outcome"}, // outcome: "success", "error"
	)

	ModelVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Latest persisted version per model family",
		},
		[]string{"model"},
	)

	// Store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// ObserveQuery records a store query duration.
// Usage: defer metrics.ObserveQuery("select", "listings")()
func ObserveQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		StoreQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveTraining records a training run duration.
// Usage: defer metrics.ObserveTraining("fraud")()
func ObserveTraining(model string) func() {
	start := time.Now()
	return func() {
		TrainingDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}
}
