// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package dispatcher classifies completed MissionLink transfers by
// operation tag and hands them to the application logic that owns the
// identity registry and the mission/progress store.
package dispatcher

import (
	"encoding/json"
	"log/slog"
	"net"

	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/missionlink"
	"github.com/cruzz36/roverlink/internal/registry"
)

// stationID is the mission-id field the mother-ship's own outbound
// opens carry, analogous to a rover's agent-id.
const stationID = "ms0"

// Dispatcher is the single writer to the identity registry and the
// mission/progress store.
type Dispatcher struct {
	registry *registry.Registry
	missions *mission.Store
	logger   *slog.Logger
}

// New builds a Dispatcher over the given shared registry and mission
// store.
func New(reg *registry.Registry, missions *mission.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, missions: missions, logger: logger}
}

// Handle runs the server side of one transfer to completion: it
// receives the message, classifies it by operation tag, computes a
// response body, and closes the transfer carrying that response. When
// the operation was a task-request and a mission is owed to the rover,
// it then dials a fresh server-initiated task-deliver transfer back to
// the same rover over the Listener's shared socket.
func (d *Dispatcher) Handle(conn *missionlink.Conn, l *missionlink.Listener) {
	msg, err := conn.Receive()
	if err != nil {
		d.logger.Warn("transfer receive failed", "error", err, "peer", conn.Peer)
		return
	}

	d.registry.Register(conn.AgentID, conn.Peer)

	response, owedMission := d.dispatch(conn.AgentID, msg)

	if err := conn.CloseResponder(msg.CloseFrame(), response); err != nil {
		d.logger.Warn("transfer close failed", "error", err, "peer", conn.Peer, "agent", conn.AgentID)
		return
	}

	if owedMission != nil {
		d.deliverMission(l, conn.Peer, conn.AgentID, *owedMission, l.RetryLimit())
	}
}

// dispatch computes the close-handshake response body for msg, and
// when msg is a task-request with a mission ready to hand back,
// returns that mission for the caller to deliver over a subsequent
// transfer.
func (d *Dispatcher) dispatch(agentID string, msg *missionlink.ReceivedMessage) (response []byte, owedMission *mission.Mission) {
	switch msg.Op {
	case missionlink.OpRegister:
		d.logger.Info("rover registered", "rover_id", agentID)
		return []byte("Registered"), nil

	case missionlink.OpTaskDeliver:
		m, err := mission.ParseMission(msg.Data)
		if err != nil {
			d.logger.Warn("malformed mission delivery", "error", err, "rover_id", agentID)
			return []byte("invalid_mission"), nil
		}
		d.missions.Dispatch(m)
		d.logger.Info("mission delivered", "mission_id", m.ID, "rover_id", m.RoverID)
		return []byte(m.ID), nil

	case missionlink.OpTaskRequest:
		m, ok := d.missions.NextPending(agentID)
		if !ok {
			return []byte("no_mission"), nil
		}
		d.logger.Info("mission owed to rover", "mission_id", m.ID, "rover_id", agentID)
		return []byte("ok"), m

	case missionlink.OpProgress, missionlink.OpMetrics:
		missionID, percent, status, pos, err := mission.ParseProgress(msg.Data)
		if err != nil {
			d.logger.Warn("malformed progress report", "error", err, "rover_id", agentID)
			return []byte("invalid_progress"), nil
		}
		if !d.missions.ApplyProgress(missionID, percent, status, pos) {
			d.logger.Warn("progress for unknown mission", "mission_id", missionID, "rover_id", agentID)
		}
		return []byte("progress_received"), nil

	default:
		return []byte{0}, nil
	}
}

// deliverMission dials a fresh client-role transfer to peer over the
// Listener's shared socket and sends m as a task-deliver message.
func (d *Dispatcher) deliverMission(l *missionlink.Listener, peer net.Addr, roverID string, m mission.Mission, retryLimit int) {
	body, err := json.Marshal(m)
	if err != nil {
		d.logger.Warn("encoding mission for delivery", "error", err, "mission_id", m.ID)
		return
	}

	conn, err := l.Dial(peer, stationID, retryLimit)
	if err != nil {
		d.logger.Warn("dialing rover for mission delivery", "error", err, "rover_id", roverID, "mission_id", m.ID)
		return
	}
	defer l.Release(peer)

	conn.SetMissionID(m.ID)
	if err := conn.SendInline(missionlink.OpTaskDeliver, body); err != nil {
		d.logger.Warn("sending mission delivery", "error", err, "rover_id", roverID, "mission_id", m.ID)
		return
	}
	if _, err := conn.CloseInitiator(); err != nil {
		d.logger.Warn("closing mission delivery transfer", "error", err, "rover_id", roverID, "mission_id", m.ID)
		return
	}
	d.logger.Info("mission delivered via task-request reply", "mission_id", m.ID, "rover_id", roverID)
}
