// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package mission

import "testing"

func TestParseMissionRequiresIDAndRover(t *testing.T) {
	if _, err := ParseMission([]byte(`{"task":"scan"}`)); err == nil {
		t.Fatal("expected error for missing mission_id")
	}
	if _, err := ParseMission([]byte(`{"mission_id":"m1","task":"scan"}`)); err == nil {
		t.Fatal("expected error for missing rover_id")
	}
}

func TestParseMissionDefaultsStatus(t *testing.T) {
	m, err := ParseMission([]byte(`{"mission_id":"m1","rover_id":"rv1","task":"scan"}`))
	if err != nil {
		t.Fatalf("ParseMission: %v", err)
	}
	if m.Status != StatusPending {
		t.Fatalf("expected default status %q, got %q", StatusPending, m.Status)
	}
}

func TestParseProgressRequiresMissionID(t *testing.T) {
	if _, _, _, _, err := ParseProgress([]byte(`{"progress_percent":50}`)); err == nil {
		t.Fatal("expected error for missing mission_id")
	}
}

func TestParseProgressDefaultsStatus(t *testing.T) {
	id, percent, status, pos, err := ParseProgress([]byte(`{"mission_id":"m1","progress_percent":75}`))
	if err != nil {
		t.Fatalf("ParseProgress: %v", err)
	}
	if id != "m1" || percent != 75 {
		t.Fatalf("unexpected parse result: id=%q percent=%d", id, percent)
	}
	if status != StatusActive {
		t.Fatalf("expected default status %q, got %q", StatusActive, status)
	}
	if pos != nil {
		t.Fatalf("expected nil position, got %+v", pos)
	}
}

func TestDispatchEnqueuesForNextPending(t *testing.T) {
	s := NewStore()
	s.Dispatch(Mission{ID: "m1", RoverID: "rv1", Task: "scan"})

	m, ok := s.NextPending("rv1")
	if !ok {
		t.Fatal("expected a pending mission for rv1")
	}
	if m.ID != "m1" {
		t.Fatalf("unexpected mission id %q", m.ID)
	}

	if _, ok := s.NextPending("rv1"); ok {
		t.Fatal("expected no further pending missions after draining the queue")
	}
}

func TestNextPendingUnknownRoverIsFalse(t *testing.T) {
	s := NewStore()
	if _, ok := s.NextPending("ghost"); ok {
		t.Fatal("expected no pending missions for an unregistered rover")
	}
}

func TestApplyProgressUpdatesKnownMission(t *testing.T) {
	s := NewStore()
	s.Dispatch(Mission{ID: "m1", RoverID: "rv1"})

	pos := &Position{X: 1, Y: 2}
	if ok := s.ApplyProgress("m1", 40, StatusActive, pos); !ok {
		t.Fatal("expected ApplyProgress to find the mission")
	}

	m, ok := s.Get("m1")
	if !ok {
		t.Fatal("expected mission to exist")
	}
	if m.ProgressPercent != 40 || m.CurrentPosition == nil || *m.CurrentPosition != *pos {
		t.Fatalf("unexpected mission state: %+v", m)
	}
}

func TestApplyProgressUnknownMissionReturnsFalse(t *testing.T) {
	s := NewStore()
	if ok := s.ApplyProgress("ghost", 10, StatusActive, nil); ok {
		t.Fatal("expected false for an unknown mission id")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := NewStore()
	s.Dispatch(Mission{ID: "m1", RoverID: "rv1"})
	s.Dispatch(Mission{ID: "m2", RoverID: "rv2"})
	s.ApplyProgress("m2", 100, StatusCompleted, nil)

	active := s.List(StatusActive)
	if len(active) != 1 || active[0].ID != "m1" {
		t.Fatalf("unexpected active list: %+v", active)
	}

	all := s.List("")
	if len(all) != 2 {
		t.Fatalf("expected 2 missions total, got %d", len(all))
	}
}
