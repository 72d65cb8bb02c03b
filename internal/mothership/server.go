// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package mothership wires together the concurrent loops that make up
// the central command node: the MissionLink server, the
// TelemetryStream acceptor, and the observation query surface, plus
// the system stats reporter and optional archival.
package mothership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cruzz36/roverlink/internal/archival"
	"github.com/cruzz36/roverlink/internal/compress"
	"github.com/cruzz36/roverlink/internal/config"
	"github.com/cruzz36/roverlink/internal/dispatcher"
	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/missionlink"
	"github.com/cruzz36/roverlink/internal/observability"
	"github.com/cruzz36/roverlink/internal/registry"
	"github.com/cruzz36/roverlink/internal/storage"
	"github.com/cruzz36/roverlink/internal/sysstats"
	"github.com/cruzz36/roverlink/internal/telemetrystream"
)

// Run starts the mother-ship's MissionLink server, TelemetryStream
// acceptor, and observation HTTP surface, and blocks until ctx is
// cancelled.
func Run(ctx context.Context, cfg *config.MothershipConfig, logger *slog.Logger) error {
	reg := registry.New()
	missions := mission.NewStore()

	compressionMode, err := compress.ParseMode(cfg.Storage.CompressionMode)
	if err != nil {
		return fmt.Errorf("configuring storage compression: %w", err)
	}

	storeOpts := []storage.Option{storage.WithCompression(compressionMode)}
	if cfg.Archival.Enabled {
		uploader, err := archival.New(ctx, archival.Config{
			Enabled:   cfg.Archival.Enabled,
			Bucket:    cfg.Archival.Bucket,
			Region:    cfg.Archival.Region,
			Endpoint:  cfg.Archival.Endpoint,
			AccessKey: cfg.Archival.AccessKey,
			SecretKey: cfg.Archival.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("configuring archival backend: %w", err)
		}
		storeOpts = append(storeOpts, storage.WithArchival(uploader))
	}

	telemetryStore, err := storage.New(cfg.Storage.TelemetryRoot, logger, storeOpts...)
	if err != nil {
		return fmt.Errorf("opening telemetry storage: %w", err)
	}

	stats := sysstats.New(cfg.Storage.TelemetryRoot, logger)
	stats.Start()
	defer stats.Stop()

	ep, err := missionlink.NewEndpoint(cfg.Network.DatagramListen, cfg.MissionLink.BufferSize, cfg.MissionLink.ReceiveTimeout)
	if err != nil {
		return fmt.Errorf("binding missionlink endpoint: %w", err)
	}
	defer ep.Close()
	logger.Info("missionlink server listening", "address", ep.LocalAddr())

	disp := dispatcher.New(reg, missions, logger)
	listener := missionlink.NewListener(ep, cfg.MissionLink.RetryLimit)

	tsServer, err := telemetrystream.Listen(cfg.Network.StreamListen, telemetryStore, logger)
	if err != nil {
		return fmt.Errorf("binding telemetrystream listener: %w", err)
	}
	defer tsServer.Close()
	logger.Info("telemetrystream server listening", "address", tsServer.Addr())

	obsRouter := observability.NewRouter(reg, missions, telemetryStore, stats)
	obsServer := &http.Server{Addr: cfg.Network.ObservationListen, Handler: obsRouter}

	errCh := make(chan error, 3)

	go func() {
		errCh <- listener.Serve(ctx, disp.Handle)
	}()
	go func() {
		errCh <- tsServer.Serve(ctx)
	}()
	go func() {
		logger.Info("observation surface listening", "address", cfg.Network.ObservationListen)
		err := obsServer.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		errCh <- err
	}()

	go func() {
		<-ctx.Done()
		obsServer.Shutdown(context.Background())
	}()

	var firstErr error
	for i := 0; i < 3; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
