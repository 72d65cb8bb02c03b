// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package compress

import (
	"bytes"
	"testing"

	"github.com/klauspost/pgzip"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":     ModeNone,
		"none": ModeNone,
		"NONE": ModeNone,
		"gzip": ModeGzip,
		" Gzip ": ModeGzip,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("lz4"); err == nil {
		t.Fatal("expected error for unknown compression mode")
	}
}

func TestEncodeModeNonePassesThrough(t *testing.T) {
	in := []byte("hello world")
	out, err := Encode(ModeNone, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("expected ModeNone to pass data through unchanged")
	}
}

func TestEncodeModeGzipProducesDecodableOutput(t *testing.T) {
	in := []byte("hello world, compressed please")
	out, err := Encode(ModeGzip, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Equal(out, in) {
		t.Fatal("expected gzip output to differ from the input")
	}

	r, err := pgzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("pgzip.NewReader: %v", err)
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("reading back compressed data: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), in) {
		t.Fatalf("decompressed output mismatch: got %q, want %q", buf.Bytes(), in)
	}
}

func TestExtension(t *testing.T) {
	if ModeGzip.Extension() != ".gz" {
		t.Fatalf("unexpected gzip extension: %q", ModeGzip.Extension())
	}
	if ModeNone.Extension() != "" {
		t.Fatalf("expected empty extension for ModeNone, got %q", ModeNone.Extension())
	}
}
