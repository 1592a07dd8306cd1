// RentLens - Rental Listings Analytics and ML Pipeline
// Copyright 2026 RentLens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentlens/rentlens

// Package storage persists trained model state to disk.
//
// Models are gob-encoded, gzip-compressed and written atomically (temp file
// plus rename) as {name}_v{version}.gob.gz. A SHA-256 checksum of the raw
// encoding is stored alongside the payload and verified on load, so a
// truncated or corrupted file fails loudly instead of producing a silently
// broken model.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentlens/rentlens/internal/logging"
)

// ModelMetadata describes one saved model version.
type ModelMetadata struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	RunID     string    `json:"run_id"`

	// Samples is the training set size; Metrics holds evaluation results
	// (accuracy, rmse and so on) keyed by metric name.
	Samples int                `json:"samples"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// storedFile is the on-disk envelope.
type storedFile struct {
	Metadata       ModelMetadata
	Checksum       [sha256.Size]byte
	CompressedData []byte
}

// Store manages versioned model files under one directory.
type Store struct {
	mu      sync.RWMutex
	baseDir string
	// latest version per model name, discovered at open and maintained on save.
	latest map[string]int
	logger zerolog.Logger
}

// NewStore opens (creating if needed) a model directory and scans existing
// versions.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	s := &Store{
		baseDir: baseDir,
		latest:  make(map[string]int),
		logger:  logging.With().Str("component", "modelstore").Logger(),
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// scan indexes existing model files.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read model directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		if version > s.latest[name] {
			s.latest[name] = version
		}
	}
	return nil
}

// parseModelFilename splits {name}_v{version}.gob.gz.
func parseModelFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, ".gob.gz")
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}
	v, err := strconv.Atoi(base[idx+2:])
	if err != nil || v < 1 {
		return "", 0, false
	}
	return base[:idx], v, true
}

// Save writes a new version of a model atomically and returns its version
// number.
func (s *Store) Save(ctx context.Context, name string, data any, meta ModelMetadata) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return 0, fmt.Errorf("failed to encode model %s: %w", name, err)
	}
	checksum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to compress model %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize compression for %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.latest[name] + 1
	meta.Name = name
	meta.Version = version
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = time.Now()
	}

	envelope := storedFile{
		Metadata:       meta,
		Checksum:       checksum,
		CompressedData: compressed.Bytes(),
	}

	path := s.modelPath(name, version)
	tmp, err := os.CreateTemp(s.baseDir, name+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(&envelope); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write model %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to publish model %s: %w", name, err)
	}

	s.latest[name] = version
	s.logger.Info().
		Str("model", name).
		Int("version", version).
		Int("bytes", compressed.Len()).
		Msg("model saved")

	return version, nil
}

// Load reads a specific version into target (a pointer to the saved type)
// and returns its metadata. The checksum is verified before decoding.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*ModelMetadata, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.mu.RLock()
	path := s.modelPath(name, version)
	s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s v%d: %w", name, version, err)
	}
	defer f.Close()

	var envelope storedFile
	if err := gob.NewDecoder(f).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to read model %s v%d: %w", name, version, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(envelope.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress model %s v%d: %w", name, version, err)
	}
	defer gzr.Close() //nolint:errcheck // close error after full read is not actionable

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(gzr); err != nil {
		return nil, fmt.Errorf("failed to decompress model %s v%d: %w", name, version, err)
	}

	if sha256.Sum256(raw.Bytes()) != envelope.Checksum {
		return nil, fmt.Errorf("model %s v%d failed checksum verification", name, version)
	}

	if err := gob.NewDecoder(&raw).Decode(target); err != nil {
		return nil, fmt.Errorf("failed to decode model %s v%d: %w", name, version, err)
	}
	return &envelope.Metadata, nil
}

// LoadLatest loads the newest version of a model.
func (s *Store) LoadLatest(ctx context.Context, name string, target any) (*ModelMetadata, error) {
	version, ok := s.LatestVersion(name)
	if !ok {
		return nil, fmt.Errorf("no saved versions of model %s", name)
	}
	return s.Load(ctx, name, version, target)
}

// LatestVersion returns the newest saved version of a model.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.latest[name]
	return v, ok
}

// Prune deletes all but the newest keep versions of a model.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	if keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read model directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entryName, version, ok := parseModelFilename(entry.Name())
		if !ok || entryName != name {
			continue
		}
		versions = append(versions, version)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	for _, version := range versions[min(keep, len(versions)):] {
		if err := os.Remove(s.modelPath(name, version)); err != nil {
			return fmt.Errorf("failed to prune model %s v%d: %w", name, version, err)
		}
		s.logger.Debug().Str("model", name).Int("version", version).Msg("model version pruned")
	}
	return nil
}

// modelPath builds the file path for a model version.
func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}
