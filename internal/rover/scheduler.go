// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package rover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/cruzz36/roverlink/internal/telemetrystream"
)

// TelemetrySynthesizer produces the next telemetry artifact's
// filename and JSON body for upload. The rover's application logic
// supplies this as an external collaborator.
type TelemetrySynthesizer func() (filename string, body []byte, err error)

// Scheduler drives the rover's two periodic cron jobs: telemetry
// upload and mission polling.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the telemetry-upload and mission-poll jobs
// using cfg.Schedule's cron expressions.
func NewScheduler(r *Rover, synth TelemetrySynthesizer, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if _, err := c.AddFunc(r.cfg.Schedule.TelemetryCron, func() {
		runTelemetryUpload(r, synth, logger)
	}); err != nil {
		return nil, fmt.Errorf("scheduling telemetry upload: %w", err)
	}

	if _, err := c.AddFunc(r.cfg.Schedule.MissionPollCron, func() {
		runMissionPoll(r, logger)
	}); err != nil {
		return nil, fmt.Errorf("scheduling mission poll: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for in-flight jobs to finish and halts scheduling.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

func runTelemetryUpload(r *Rover, synth TelemetrySynthesizer, logger *slog.Logger) {
	filename, body, err := synth()
	if err != nil {
		logger.Warn("synthesizing telemetry artifact", "error", err)
		return
	}
	if err := telemetrystream.Send(r.cfg.Mothership.StreamAddress, filename, body); err != nil {
		logger.Warn("uploading telemetry artifact", "error", err, "filename", filename)
		return
	}
	logger.Info("telemetry artifact uploaded", "filename", filename, "bytes", len(body))
}

func runMissionPoll(r *Rover, logger *slog.Logger) {
	reply, err := r.RequestMission(context.Background())
	if err != nil {
		logger.Warn("mission poll failed", "error", err)
		return
	}
	logger.Info("mission poll completed", "reply", reply)
}
