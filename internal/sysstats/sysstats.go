// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package sysstats periodically samples host CPU, memory, and disk
// usage for the observation surface's system-status endpoint.
package sysstats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const sampleInterval = 15 * time.Second

// Snapshot is one sample of host resource usage.
type Snapshot struct {
	CPUPercent  float64   `json:"cpu_percent"`
	MemUsedPct  float64   `json:"mem_used_percent"`
	DiskUsedPct float64   `json:"disk_used_percent"`
	SampledAt   time.Time `json:"sampled_at"`
}

// Reporter runs a background sampling loop and keeps the latest
// Snapshot available for readers via a start/stop lifecycle.
type Reporter struct {
	diskPath string
	logger   *slog.Logger

	mu     sync.RWMutex
	latest *Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Reporter that samples the filesystem at diskPath
// (typically the telemetry storage root).
func New(diskPath string, logger *slog.Logger) *Reporter {
	return &Reporter{diskPath: diskPath, logger: logger}
}

// Start begins the periodic sampling loop.
func (r *Reporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	r.sample(ctx)

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sample(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	r.logger.Info("system stats reporter started", "interval", sampleInterval)
}

// Stop halts sampling and waits for the goroutine to exit.
func (r *Reporter) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	r.logger.Info("system stats reporter stopped")
}

// Latest returns the most recent sample, or nil if Start has not
// produced one yet.
func (r *Reporter) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Reporter) sample(ctx context.Context) {
	snap := Snapshot{SampledAt: time.Now()}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	} else if err != nil {
		r.logger.Warn("sampling cpu usage", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemUsedPct = vm.UsedPercent
	} else {
		r.logger.Warn("sampling memory usage", "error", err)
	}

	if du, err := disk.UsageWithContext(ctx, r.diskPath); err == nil {
		snap.DiskUsedPct = du.UsedPercent
	} else {
		r.logger.Warn("sampling disk usage", "error", err, "path", r.diskPath)
	}

	r.mu.Lock()
	r.latest = &snap
	r.mu.Unlock()
}
