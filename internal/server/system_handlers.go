package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status       string            `json:"status"`
	UptimeHours  float64           `json:"uptime_hours"`
	CPUPercent   float64           `json:"cpu_percent"`
	RAMPercent   float64           `json:"ram_percent"`
	Goroutines   int               `json:"goroutines"`
	Databases    map[string]string `json:"databases"`
	PersonaCount int               `json:"persona_count"`
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	response := SystemStatusResponse{
		Status:       "ok",
		UptimeHours:  time.Since(s.start).Hours(),
		CPUPercent:   cpuPercent,
		RAMPercent:   ramPercent,
		Goroutines:   runtime.NumGoroutine(),
		Databases:    map[string]string{},
		PersonaCount: len(s.cfg.Policies),
	}

	for _, db := range s.cfg.Databases {
		if err := db.Conn().Ping(); err != nil {
			response.Databases[db.Name()] = "unreachable"
			response.Status = "degraded"
			continue
		}
		response.Databases[db.Name()] = "ok"
	}

	s.writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval so the status endpoint stays responsive.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
