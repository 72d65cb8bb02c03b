// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package mission holds the mother-ship's mission/progress domain
// state: missions dispatched to rovers and the progress reports they
// send back.
package mission

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Status is a mission's lifecycle state, as surfaced by the
// observation query surface's status filter.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Position is a rover's last-reported 2D coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mission is one unit of work dispatched to a rover over a T
// (task-deliver) transfer.
type Mission struct {
	ID                     string    `json:"mission_id"`
	RoverID                string    `json:"rover_id"`
	Task                   string    `json:"task"`
	DurationMinutes        int       `json:"duration_minutes"`
	UpdateFrequencySeconds int       `json:"update_frequency_seconds"`
	Status                 Status    `json:"status"`
	ProgressPercent        int       `json:"progress_percent"`
	CurrentPosition        *Position `json:"current_position,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// progressReport mirrors the JSON body of a P (progress) transfer.
type progressReport struct {
	MissionID       string    `json:"mission_id"`
	ProgressPercent int       `json:"progress_percent"`
	Status          string    `json:"status"`
	CurrentPosition *Position `json:"current_position"`
}

// ParseProgress decodes a P-operation body into its mission-id and the
// fields the dispatcher applies to the matching Mission.
func ParseProgress(body []byte) (missionID string, percent int, status Status, pos *Position, err error) {
	var r progressReport
	if err := json.Unmarshal(body, &r); err != nil {
		return "", 0, "", nil, fmt.Errorf("decoding progress report: %w", err)
	}
	if r.MissionID == "" {
		return "", 0, "", nil, fmt.Errorf("progress report missing mission_id")
	}
	st := Status(r.Status)
	if st == "" {
		st = StatusActive
	}
	return r.MissionID, r.ProgressPercent, st, r.CurrentPosition, nil
}

// ParseMission decodes a T-operation body, validating the minimum
// fields a mission body must carry: mission identifier and assigned
// rover identity.
func ParseMission(body []byte) (Mission, error) {
	var m Mission
	if err := json.Unmarshal(body, &m); err != nil {
		return Mission{}, fmt.Errorf("decoding mission: %w", err)
	}
	if m.ID == "" {
		return Mission{}, fmt.Errorf("mission missing mission_id")
	}
	if m.RoverID == "" {
		return Mission{}, fmt.Errorf("mission missing rover_id")
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	return m, nil
}

// Store is the mutex-guarded mission/progress domain store. The
// dispatcher is its single writer; the observation query surface reads
// consistent snapshots.
type Store struct {
	mu       sync.RWMutex
	missions map[string]*Mission

	// pending holds, per rover, the next mission owed to that rover on
	// its next Q (task-request) poll.
	pending map[string][]string
}

// NewStore returns an empty mission/progress store.
func NewStore() *Store {
	return &Store{
		missions: make(map[string]*Mission),
		pending:  make(map[string][]string),
	}
}

// Dispatch records a newly delivered mission as active and enqueues it
// as pending for its rover's next task-request, for the
// server-initiated-T-on-Q flow. Called by the
// dispatcher on a completed T transfer.
func (s *Store) Dispatch(m Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	m.Status = StatusActive
	m.CreatedAt = now
	m.UpdatedAt = now
	cp := m
	s.missions[m.ID] = &cp
	s.pending[m.RoverID] = append(s.pending[m.RoverID], m.ID)
}

// Enqueue marks missionID as owed to roverID on its next task-request
// poll, for callers that dispatch a mission already known to the store
// to a rover other than the one it was originally created for.
func (s *Store) Enqueue(roverID, missionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[roverID] = append(s.pending[roverID], missionID)
}

// NextPending pops and returns the next mission owed to roverID, or
// ok=false when nothing is queued.
func (s *Store) NextPending(roverID string) (*Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.pending[roverID]
	for len(ids) > 0 {
		id := ids[0]
		ids = ids[1:]
		s.pending[roverID] = ids
		if m, ok := s.missions[id]; ok {
			cp := *m
			return &cp, true
		}
	}
	return nil, false
}

// ApplyProgress updates the mission keyed by missionID with a new
// progress report. Returns false if the mission is unknown.
func (s *Store) ApplyProgress(missionID string, percent int, status Status, pos *Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[missionID]
	if !ok {
		return false
	}
	m.ProgressPercent = percent
	m.Status = status
	if pos != nil {
		m.CurrentPosition = pos
	}
	m.UpdatedAt = time.Now()
	return true
}

// Get returns a copy of the mission keyed by id.
func (s *Store) Get(id string) (Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.missions[id]
	if !ok {
		return Mission{}, false
	}
	return *m, true
}

// List returns a snapshot of every mission, optionally filtered by
// status. An empty status lists all missions.
func (s *Store) List(status Status) []Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mission, 0, len(s.missions))
	for _, m := range s.missions {
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, *m)
	}
	return out
}
