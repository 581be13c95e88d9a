package server

import (
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// HealthResponse reports the reference data and the host the service runs on.
type HealthResponse struct {
	Status   string            `json:"status"`
	Source   string            `json:"source"`
	Foods    int               `json:"foods"`
	Database map[string]string `json:"database,omitempty"`
	System   SystemStats       `json:"system"`
}

// SystemStats is a snapshot of host resource usage.
type SystemStats struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
	UptimeSeconds     uint64  `json:"uptime_seconds"`
	Goroutines        int     `json:"goroutines"`
}

func (s *Server) healthHandler(c echo.Context) error {
	resp := HealthResponse{
		Status: "up",
		Source: s.source,
		Foods:  s.recommender.Table().Len(),
		System: systemStats(),
	}

	if s.db != nil {
		resp.Database = s.db.Health()
		if resp.Database["status"] != "up" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// systemStats gathers host metrics; a metric that cannot be read stays zero.
func systemStats() SystemStats {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPercent = v.UsedPercent
	}
	// Interval 0 compares against the previous call instead of blocking.
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if up, err := host.Uptime(); err == nil {
		stats.UptimeSeconds = up
	}

	return stats
}
