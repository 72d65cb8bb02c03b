// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package rover runs the rover-side process: a long-lived MissionLink
// listener that both dials outgoing transfers to the mother-ship and
// accepts mother-ship-initiated task deliveries, plus the cron-driven
// telemetry upload and mission-request polling loops.
package rover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/cruzz36/roverlink/internal/config"
	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/missionlink"
)

// Rover is one running rover process.
type Rover struct {
	cfg        *config.RoverConfig
	identity   string
	mothership net.Addr
	ep         *missionlink.Endpoint
	listener   *missionlink.Listener
	logger     *slog.Logger

	onMission func(mission.Mission)
}

// New binds the rover's MissionLink endpoint and resolves the
// mother-ship's datagram address.
func New(cfg *config.RoverConfig, logger *slog.Logger) (*Rover, error) {
	ep, err := missionlink.NewEndpoint(":0", cfg.MissionLink.BufferSize, cfg.MissionLink.ReceiveTimeout)
	if err != nil {
		return nil, fmt.Errorf("binding rover missionlink endpoint: %w", err)
	}

	mothership, err := net.ResolveUDPAddr("udp", cfg.Mothership.DatagramAddress)
	if err != nil {
		ep.Close()
		return nil, fmt.Errorf("resolving mothership address: %w", err)
	}

	return &Rover{
		cfg:        cfg,
		identity:   cfg.Rover.Identity,
		mothership: mothership,
		ep:         ep,
		listener:   missionlink.NewListener(ep, cfg.MissionLink.RetryLimit),
		logger:     logger,
	}, nil
}

// OnMission registers a callback invoked whenever the mother-ship
// delivers a mission over a server-initiated task-deliver transfer.
func (r *Rover) OnMission(fn func(mission.Mission)) { r.onMission = fn }

// Close releases the rover's MissionLink endpoint.
func (r *Rover) Close() error { return r.ep.Close() }

// Serve runs the rover's incoming-transfer demux loop until ctx is
// cancelled.
func (r *Rover) Serve(ctx context.Context) error {
	return r.listener.Serve(ctx, r.handleIncoming)
}

// handleIncoming accepts a mother-ship-initiated transfer — in
// practice always a task-deliver reply to an earlier task-request
// — and closes it carrying the mission id (or "invalid_mission") as
// the response body.
func (r *Rover) handleIncoming(conn *missionlink.Conn, l *missionlink.Listener) {
	msg, err := conn.Receive()
	if err != nil {
		r.logger.Warn("incoming transfer receive failed", "error", err, "peer", conn.Peer)
		return
	}

	var response []byte
	switch msg.Op {
	case missionlink.OpTaskDeliver:
		m, perr := mission.ParseMission(msg.Data)
		if perr != nil {
			r.logger.Warn("malformed mission delivery", "error", perr)
			response = []byte("invalid_mission")
			break
		}
		r.logger.Info("mission received", "mission_id", m.ID)
		if r.onMission != nil {
			r.onMission(m)
		}
		response = []byte(m.ID)
	default:
		response = []byte{0}
	}

	if err := conn.CloseResponder(msg.CloseFrame(), response); err != nil {
		r.logger.Warn("incoming transfer close failed", "error", err, "peer", conn.Peer)
	}
}

// Register sends an R (register) transfer to the mother-ship.
func (r *Rover) Register(ctx context.Context) error {
	_, err := r.dial(func(c *missionlink.Conn) ([]byte, error) {
		c.SetMissionID("000")
		if err := c.SendInline(missionlink.OpRegister, nil); err != nil {
			return nil, err
		}
		return c.CloseInitiator()
	})
	if err != nil {
		return fmt.Errorf("registering with mothership: %w", err)
	}
	r.logger.Info("registered with mothership", "rover_id", r.identity)
	return nil
}

// RequestMission sends a Q (task-request) transfer and returns the
// mother-ship's immediate reply: the literal "no_mission", or "ok"
// when a mission follows over a separate server-initiated transfer.
func (r *Rover) RequestMission(ctx context.Context) (string, error) {
	resp, err := r.dial(func(c *missionlink.Conn) ([]byte, error) {
		c.SetMissionID("000")
		if err := c.SendInline(missionlink.OpTaskRequest, []byte("request")); err != nil {
			return nil, err
		}
		return c.CloseInitiator()
	})
	if err != nil {
		return "", fmt.Errorf("requesting mission: %w", err)
	}
	return string(resp), nil
}

// ReportProgress sends a P (progress) transfer for missionID.
func (r *Rover) ReportProgress(ctx context.Context, missionID string, percent int, status mission.Status, pos *mission.Position) error {
	body, err := json.Marshal(struct {
		MissionID       string            `json:"mission_id"`
		ProgressPercent int               `json:"progress_percent"`
		Status          string            `json:"status"`
		CurrentPosition *mission.Position `json:"current_position,omitempty"`
	}{MissionID: missionID, ProgressPercent: percent, Status: string(status), CurrentPosition: pos})
	if err != nil {
		return fmt.Errorf("encoding progress report: %w", err)
	}

	_, err = r.dial(func(c *missionlink.Conn) ([]byte, error) {
		c.SetMissionID(missionID)
		if err := c.SendInline(missionlink.OpProgress, body); err != nil {
			return nil, err
		}
		return c.CloseInitiator()
	})
	if err != nil {
		return fmt.Errorf("reporting progress: %w", err)
	}
	return nil
}

// dial opens a fresh outbound transfer to the mother-ship over the
// rover's shared endpoint, demultiplexed through the same Listener
// that accepts incoming deliveries, runs fn, and releases the peer's
// demux entry regardless of outcome.
func (r *Rover) dial(fn func(*missionlink.Conn) ([]byte, error)) ([]byte, error) {
	conn, err := r.listener.Dial(r.mothership, r.identity, r.cfg.MissionLink.RetryLimit)
	if err != nil {
		return nil, err
	}
	defer r.listener.Release(r.mothership)
	return fn(conn)
}
