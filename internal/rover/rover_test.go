// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package rover

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cruzz36/roverlink/internal/config"
	"github.com/cruzz36/roverlink/internal/dispatcher"
	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/missionlink"
	"github.com/cruzz36/roverlink/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestMothership starts a real MissionLink listener backed by a
// Dispatcher, mirroring internal/mothership.Run's wiring but without
// the telemetry/observation surfaces a rover-only test doesn't need.
func newTestMothership(t *testing.T) (mothershipAddr string, missions *mission.Store, stop func()) {
	t.Helper()
	ep, err := missionlink.NewEndpoint("127.0.0.1:0", missionlink.DefaultBufferSize, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	reg := registry.New()
	missions = mission.NewStore()
	disp := dispatcher.New(reg, missions, testLogger())
	listener := missionlink.NewListener(ep, missionlink.DefaultRetryLimit)

	ctx, cancel := context.WithCancel(context.Background())
	go listener.Serve(ctx, disp.Handle)

	return ep.LocalAddr().String(), missions, func() {
		cancel()
		ep.Close()
	}
}

func newTestRover(t *testing.T, mothershipAddr string) *Rover {
	t.Helper()
	cfg := &config.RoverConfig{
		Rover:      config.RoverIdentity{Identity: "rv1"},
		Mothership: config.MothershipAddr{DatagramAddress: mothershipAddr, StreamAddress: "127.0.0.1:0"},
		MissionLink: config.MissionLinkConfig{
			ReceiveTimeout: 100 * time.Millisecond,
			RetryLimit:     5,
			BufferSize:     missionlink.DefaultBufferSize,
		},
	}
	r, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("rover.New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRoverRegisterAndRequestMission(t *testing.T) {
	addr, missions, stop := newTestMothership(t)
	defer stop()

	r := newTestRover(t, addr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Serve(ctx)

	if err := r.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}

	reply, err := r.RequestMission(ctx)
	if err != nil {
		t.Fatalf("RequestMission: %v", err)
	}
	if reply != "no_mission" {
		t.Fatalf("expected no_mission before any mission is dispatched, got %q", reply)
	}

	var received mission.Mission
	receivedCh := make(chan struct{})
	r.OnMission(func(m mission.Mission) {
		received = m
		close(receivedCh)
	})

	missions.Dispatch(mission.Mission{ID: "m1", RoverID: "rv1", Task: "scan"})

	reply, err = r.RequestMission(ctx)
	if err != nil {
		t.Fatalf("RequestMission: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("expected ok once a mission is pending, got %q", reply)
	}

	select {
	case <-receivedCh:
		if received.ID != "m1" {
			t.Fatalf("unexpected delivered mission: %+v", received)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the server-initiated task delivery")
	}
}

func TestRoverReportProgress(t *testing.T) {
	addr, missions, stop := newTestMothership(t)
	defer stop()

	r := newTestRover(t, addr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Serve(ctx)

	if err := r.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}
	missions.Dispatch(mission.Mission{ID: "m1", RoverID: "rv1"})

	if err := r.ReportProgress(ctx, "m1", 33, mission.StatusActive, &mission.Position{X: 1, Y: 2}); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}

	m, ok := missions.Get("m1")
	if !ok {
		t.Fatal("expected mission m1 to exist")
	}
	if m.ProgressPercent != 33 {
		t.Fatalf("unexpected progress percent: %d", m.ProgressPercent)
	}
}
