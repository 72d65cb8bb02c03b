// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cruzz36/roverlink/internal/config"
	"github.com/cruzz36/roverlink/internal/logging"
	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/rover"
)

func main() {
	configPath := flag.String("config", "/etc/roverlink/rover.yaml", "path to rover config file")
	flag.Parse()

	cfg, err := config.LoadRoverConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer closer.Close()

	r, err := rover.New(cfg, logger)
	if err != nil {
		logger.Error("starting rover", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	r.OnMission(func(m mission.Mission) {
		logger.Info("mission accepted", "mission_id", m.ID, "task", m.Task)
	})

	scheduler, err := rover.NewScheduler(r, telemetrySynthesizer(cfg.Rover.Identity), logger)
	if err != nil {
		logger.Error("starting scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := r.Register(ctx); err != nil {
		logger.Error("initial registration failed", "error", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	if err := r.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("rover serve loop error", "error", err)
		os.Exit(1)
	}
}

// telemetrySynthesizer builds the minimal telemetry artifact the TS
// protocol requires; the rover's
// actual telemetry content is an application concern this module
// scopes out.
func telemetrySynthesizer(roverID string) rover.TelemetrySynthesizer {
	return func() (string, []byte, error) {
		now := time.Now().Unix()
		filename := fmt.Sprintf("telemetry_%s_%d.json", roverID, now)
		body, err := json.Marshal(struct {
			RoverID   string `json:"rover_id"`
			Timestamp int64  `json:"timestamp"`
		}{RoverID: roverID, Timestamp: now})
		if err != nil {
			return "", nil, err
		}
		return filename, body, nil
	}
}
