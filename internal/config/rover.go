// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RoverConfig is the complete rover process configuration.
type RoverConfig struct {
	Rover       RoverIdentity     `yaml:"rover"`
	Mothership  MothershipAddr    `yaml:"mothership"`
	MissionLink MissionLinkConfig `yaml:"missionlink"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Logging     LoggingInfo       `yaml:"logging"`
}

// RoverIdentity names this rover on the wire.
type RoverIdentity struct {
	Identity string `yaml:"identity"`
}

// MothershipAddr holds the mother-ship's datagram and stream
// addresses, as handed out over CLI or config at rover startup
//.
type MothershipAddr struct {
	DatagramAddress string `yaml:"datagram_address"`
	StreamAddress   string `yaml:"stream_address"`
}

// ScheduleConfig drives the rover's two periodic cron jobs: telemetry
// upload and mission-request polling.
type ScheduleConfig struct {
	TelemetryCron   string `yaml:"telemetry_cron"`    // default "@every 30s"
	MissionPollCron string `yaml:"mission_poll_cron"` // default "@every 1m"
}

// LoadRoverConfig reads and validates the rover YAML configuration
// file.
func LoadRoverConfig(path string) (*RoverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rover config: %w", err)
	}

	var cfg RoverConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rover config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating rover config: %w", err)
	}

	return &cfg, nil
}

func (c *RoverConfig) validate() error {
	if c.Rover.Identity == "" {
		return fmt.Errorf("rover.identity is required")
	}
	if len(c.Rover.Identity) > 3 {
		return fmt.Errorf("rover.identity must be at most 3 characters, got %q", c.Rover.Identity)
	}
	if c.Mothership.DatagramAddress == "" {
		return fmt.Errorf("mothership.datagram_address is required")
	}
	if c.Mothership.StreamAddress == "" {
		return fmt.Errorf("mothership.stream_address is required")
	}

	if err := c.MissionLink.applyDefaults(); err != nil {
		return err
	}

	if c.Schedule.TelemetryCron == "" {
		c.Schedule.TelemetryCron = "@every 30s"
	}
	if c.Schedule.MissionPollCron == "" {
		c.Schedule.MissionPollCron = "@every 1m"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
