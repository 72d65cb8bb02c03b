// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package observability serves read-only JSON projections of the
// identity registry, the mission/progress store, and recent telemetry
// artifacts.
package observability

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/cruzz36/roverlink/internal/mission"
	"github.com/cruzz36/roverlink/internal/registry"
	"github.com/cruzz36/roverlink/internal/storage"
	"github.com/cruzz36/roverlink/internal/sysstats"
)

// startTime records process start for uptime reporting.
var startTime = time.Now()

// roverDTO is the JSON projection of a registry.Entry.
type roverDTO struct {
	RoverID  string    `json:"rover_id"`
	Address  string    `json:"address"`
	LastSeen time.Time `json:"last_seen"`
}

func toRoverDTO(e registry.Entry) roverDTO {
	return roverDTO{RoverID: e.RoverID, Address: e.Addr.String(), LastSeen: e.LastSeen}
}

// telemetryDTO describes one stored telemetry artifact.
type telemetryDTO struct {
	RoverID  string `json:"rover_id"`
	Filename string `json:"filename"`
}

// statusDTO is the /status response body.
type statusDTO struct {
	UptimeSeconds  float64            `json:"uptime_seconds"`
	RoverCount     int                `json:"rover_count"`
	ActiveMissions int                `json:"active_missions"`
	GoRoutines     int                `json:"goroutines"`
	System         *sysstats.Snapshot `json:"system,omitempty"`
}

// NewRouter builds the observation HTTP surface over reg, missions,
// and store. sysStats may be nil when no sampler is running.
func NewRouter(reg *registry.Registry, missions *mission.Store, store *storage.Layout, sysStats *sysstats.Reporter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rovers", func(w http.ResponseWriter, r *http.Request) {
		entries := reg.Snapshot()
		out := make([]roverDTO, 0, len(entries))
		for _, e := range entries {
			out = append(out, toRoverDTO(e))
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /rovers/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		addr, ok := reg.Lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, "rover not found")
			return
		}
		writeJSON(w, http.StatusOK, roverDTO{RoverID: id, Address: addr.String()})
	})

	mux.HandleFunc("GET /missions", func(w http.ResponseWriter, r *http.Request) {
		status := mission.Status(r.URL.Query().Get("status"))
		list := missions.List(status)
		if list == nil {
			list = []mission.Mission{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	mux.HandleFunc("GET /missions/{id}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := missions.Get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "mission not found")
			return
		}
		writeJSON(w, http.StatusOK, m)
	})

	mux.HandleFunc("GET /telemetry/{rover_id}", func(w http.ResponseWriter, r *http.Request) {
		roverID := r.PathValue("rover_id")
		names, err := store.ListRover(roverID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if names == nil {
			writeError(w, http.StatusNotFound, "rover not found")
			return
		}
		out := make([]telemetryDTO, 0, len(names))
		for _, n := range names {
			out = append(out, telemetryDTO{RoverID: roverID, Filename: n})
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /telemetry", func(w http.ResponseWriter, r *http.Request) {
		roverID := r.URL.Query().Get("rover_id")
		limit := parseInt(r.URL.Query().Get("limit"), 50)

		var entries []registry.Entry
		if roverID != "" {
			if addr, ok := reg.Lookup(roverID); ok {
				entries = []registry.Entry{{RoverID: roverID, Addr: addr}}
			}
		} else {
			entries = reg.Snapshot()
		}

		out := make([]telemetryDTO, 0, limit)
		for _, e := range entries {
			names, err := store.ListRover(e.RoverID)
			if err != nil {
				continue
			}
			for _, n := range names {
				if len(out) >= limit {
					break
				}
				out = append(out, telemetryDTO{RoverID: e.RoverID, Filename: n})
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusDTO{
			UptimeSeconds:  time.Since(startTime).Seconds(),
			RoverCount:     reg.Len(),
			ActiveMissions: len(missions.List(mission.StatusActive)),
			GoRoutines:     runtime.NumGoroutine(),
		}
		if sysStats != nil {
			resp.System = sysStats.Latest()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return defaultVal
	}
	return v
}
