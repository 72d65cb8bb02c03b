// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package storage organizes received telemetry and mission artifacts
// under a rover-keyed directory layout, writing each one atomically
// via a temp file followed by a rename.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruzz36/roverlink/internal/archival"
	"github.com/cruzz36/roverlink/internal/compress"
)

// telemetryEnvelope extracts just enough of a stored artifact's JSON
// body to route it to its owning rover's subdirectory.
type telemetryEnvelope struct {
	RoverID string `json:"rover_id"`
}

// Layout is the filesystem root artifacts are stored under.
type Layout struct {
	root       string
	logger     *slog.Logger
	compressor compress.Mode
	archiver   *archival.Uploader
}

// Option configures optional behavior on a Layout.
type Option func(*Layout)

// WithCompression enables mode for every artifact written through this
// Layout.
func WithCompression(mode compress.Mode) Option {
	return func(l *Layout) { l.compressor = mode }
}

// WithArchival mirrors every artifact to the given uploader after its
// local write completes.
func WithArchival(u *archival.Uploader) Option {
	return func(l *Layout) { l.archiver = u }
}

// New returns a Layout rooted at root, creating it if necessary.
func New(root string, logger *slog.Logger, opts ...Option) (*Layout, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	l := &Layout{root: root, logger: logger, compressor: compress.ModeNone}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the layout's base directory.
func (l *Layout) Root() string { return l.root }

// Store writes content under filename, atomically. When content
// parses as JSON carrying a rover_id field, it is placed under
// <root>/<rover-id>/<filename>; otherwise it stays at
// the root and a warning is logged. Returns the final
// path on disk.
func (l *Layout) Store(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ValidatePathComponent(filename, "filename"); err != nil {
		return "", fmt.Errorf("rejecting artifact: %w", err)
	}

	dir := l.root
	var env telemetryEnvelope
	if err := json.Unmarshal(content, &env); err == nil && env.RoverID != "" {
		if err := ValidatePathComponent(env.RoverID, "rover_id"); err != nil {
			return "", fmt.Errorf("rejecting artifact: %w", err)
		}
		dir = filepath.Join(l.root, env.RoverID)
	} else {
		l.logger.Warn("stored artifact has no rover_id, leaving at storage root", "filename", filename)
	}
	if err := validatePathInBaseDir(l.root, dir); err != nil {
		return "", fmt.Errorf("rejecting artifact: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating rover directory: %w", err)
	}

	encoded, err := compress.Encode(l.compressor, content)
	if err != nil {
		return "", err
	}
	finalName := filename + l.compressor.Extension()
	finalPath := filepath.Join(dir, finalName)
	if err := validatePathInBaseDir(l.root, finalPath); err != nil {
		return "", fmt.Errorf("rejecting artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "artifact-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	if l.archiver != nil {
		key := finalName
		if dir != l.root {
			key = filepath.Join(filepath.Base(dir), finalName)
		}
		if err := l.archiver.Upload(ctx, key, encoded); err != nil {
			l.logger.Warn("archival upload failed", "error", err, "filename", finalName)
		}
	}

	return finalPath, nil
}

// ListRover returns the filenames stored under a rover's subdirectory,
// most recent last (lexical order, since names embed epoch seconds).
func (l *Layout) ListRover(roverID string) ([]string, error) {
	if err := ValidatePathComponent(roverID, "rover_id"); err != nil {
		return nil, fmt.Errorf("rejecting lookup: %w", err)
	}
	dir := filepath.Join(l.root, roverID)
	if err := validatePathInBaseDir(l.root, dir); err != nil {
		return nil, fmt.Errorf("rejecting lookup: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rover directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
