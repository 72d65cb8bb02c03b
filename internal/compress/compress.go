// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package compress optionally gzip-compresses stored artifacts using a
// parallel gzip writer.
package compress

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/pgzip"
)

// Mode selects whether Encode compresses its input.
type Mode string

const (
	ModeNone Mode = "none"
	ModeGzip Mode = "gzip"
)

// ParseMode normalizes a config string into a Mode, defaulting to
// ModeNone when empty.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "gzip":
		return ModeGzip, nil
	default:
		return "", fmt.Errorf("unknown compression mode %q", s)
	}
}

// Encode compresses data per mode. ModeNone returns data unchanged,
// preserving the stored-artifact byte identity for the default
// path; ModeGzip runs it through a parallel gzip writer.
func Encode(mode Mode, data []byte) ([]byte, error) {
	if mode != ModeGzip {
		return data, nil
	}

	var buf bytes.Buffer
	w := pgzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the filename suffix to append when mode compresses
// the artifact, or "" for ModeNone.
func (m Mode) Extension() string {
	if m == ModeGzip {
		return ".gz"
	}
	return ""
}
