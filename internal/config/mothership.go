// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MothershipConfig is the complete mother-ship process configuration.
type MothershipConfig struct {
	Network     NetworkListen     `yaml:"network"`
	MissionLink MissionLinkConfig `yaml:"missionlink"`
	Storage     StorageConfig     `yaml:"storage"`
	Archival    ArchivalConfig    `yaml:"archival"`
	Logging     LoggingInfo       `yaml:"logging"`
}

// NetworkListen holds the three listen addresses the mother-ship
// binds, defaulting to port table.
type NetworkListen struct {
	DatagramListen    string `yaml:"datagram_listen"`    // default ":8080"
	StreamListen      string `yaml:"stream_listen"`      // default ":8081"
	ObservationListen string `yaml:"observation_listen"` // default ":8082"
}

// MissionLinkConfig tunes the reliability-engine defaults shared by
// both mother-ship and rover.
type MissionLinkConfig struct {
	ReceiveTimeout time.Duration `yaml:"receive_timeout"` // default 2s
	RetryLimit     int           `yaml:"retry_limit"`     // default 5
	BufferSize     int           `yaml:"buffer_size"`     // default 1024
}

// StorageConfig controls where received artifacts land and whether
// they're compressed on write.
type StorageConfig struct {
	TelemetryRoot   string `yaml:"telemetry_root"`   // default "./data/telemetry"
	MissionRoot     string `yaml:"mission_root"`     // default "./data/missions"
	CompressionMode string `yaml:"compression_mode"` // "none" (default) | "gzip"
}

// ArchivalConfig optionally mirrors stored artifacts to S3.
type ArchivalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // non-empty for S3-compatible stores other than AWS
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoggingInfo configures the process-wide structured logger.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadMothershipConfig reads and validates the mother-ship YAML
// configuration file, applying defaults to any field left
// unset.
func LoadMothershipConfig(path string) (*MothershipConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mothership config: %w", err)
	}

	var cfg MothershipConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing mothership config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating mothership config: %w", err)
	}

	return &cfg, nil
}

func (c *MothershipConfig) validate() error {
	if c.Network.DatagramListen == "" {
		c.Network.DatagramListen = ":8080"
	}
	if c.Network.StreamListen == "" {
		c.Network.StreamListen = ":8081"
	}
	if c.Network.ObservationListen == "" {
		c.Network.ObservationListen = ":8082"
	}

	if err := c.MissionLink.applyDefaults(); err != nil {
		return err
	}

	if c.Storage.TelemetryRoot == "" {
		c.Storage.TelemetryRoot = "./data/telemetry"
	}
	if c.Storage.MissionRoot == "" {
		c.Storage.MissionRoot = "./data/missions"
	}
	c.Storage.CompressionMode = strings.ToLower(strings.TrimSpace(c.Storage.CompressionMode))
	if c.Storage.CompressionMode == "" {
		c.Storage.CompressionMode = "none"
	}
	if c.Storage.CompressionMode != "none" && c.Storage.CompressionMode != "gzip" {
		return fmt.Errorf("storage.compression_mode must be none or gzip, got %q", c.Storage.CompressionMode)
	}

	if c.Archival.Enabled {
		if c.Archival.Bucket == "" {
			return fmt.Errorf("archival.bucket is required when archival is enabled")
		}
		if c.Archival.Region == "" {
			return fmt.Errorf("archival.region is required when archival is enabled")
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}

// applyDefaults fills in missionlink-section defaults
// for any zero-valued field.
func (m *MissionLinkConfig) applyDefaults() error {
	if m.ReceiveTimeout <= 0 {
		m.ReceiveTimeout = 2 * time.Second
	}
	if m.RetryLimit <= 0 {
		m.RetryLimit = 5
	}
	if m.BufferSize <= 0 {
		m.BufferSize = 1024
	}
	if m.BufferSize <= 23 {
		return fmt.Errorf("missionlink.buffer_size must be greater than the 23-byte header overhead, got %d", m.BufferSize)
	}
	return nil
}
