// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cruzz36/roverlink/internal/config"
	"github.com/cruzz36/roverlink/internal/logging"
	"github.com/cruzz36/roverlink/internal/mothership"
)

func main() {
	configPath := flag.String("config", "/etc/roverlink/mothership.yaml", "path to mother-ship config file")
	flag.Parse()

	cfg, err := config.LoadMothershipConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := mothership.Run(ctx, cfg, logger); err != nil {
		logger.Error("mothership error", "error", err)
		os.Exit(1)
	}
}
