package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/advisor/internal/modules/universe"
)

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "advisor",
	})
}

// handleSystemStatus reports process and host health alongside the universe
// snapshot age.
func (s *Server) handleSystemStatus(snapshots *universe.SnapshotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 100ms sample keeps the endpoint responsive for pollers.
		cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
			cpuPercent = []float64{0}
		}
		cpuAvg := 0.0
		if len(cpuPercent) > 0 {
			cpuAvg = cpuPercent[0]
		}

		memUsed := 0.0
		if memStat, err := mem.VirtualMemory(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		} else {
			memUsed = memStat.UsedPercent
		}

		snap := snapshots.Current()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"uptime_seconds":    int(time.Since(s.started).Seconds()),
			"cpu_percent":       cpuAvg,
			"memory_percent":    memUsed,
			"goroutines":        runtime.NumGoroutine(),
			"universe_count":    snap.Size(),
			"universe_taken_at": snap.TakenAt,
		})
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
