package server

import (
	"net/http"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status": "running",
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
		"surface": map[string]interface{}{
			"vertex_count": s.surface.VertexCount(),
			"version":      s.surface.Version(),
		},
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response["host_memory"] = map[string]interface{}{
			"total_mb":     vm.Total / 1024 / 1024,
			"used_percent": vm.UsedPercent,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["cpu_percent"] = percents[0]
	}

	s.writeJSON(w, http.StatusOK, response)
}
