package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantfolio/advisor/internal/database"
)

// SystemHandlers handles system-wide monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	cacheDB     *database.DB
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(log zerolog.Logger, dataDir string, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		cacheDB:     cacheDB,
	}
}

// SystemStatusResponse represents the system status response.
type SystemStatusResponse struct {
	Status      string  `json:"status"` // "healthy" or "degraded"
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	DiskPercent float64 `json:"disk_percent"`
}

// DatabaseStatsResponse represents cache database statistics.
type DatabaseStatsResponse struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SizeMB      float64 `json:"size_mb"`
	Healthy     bool    `json:"healthy"`
	LastChecked string  `json:"last_checked"`
}

// DiskUsageResponse represents disk usage statistics.
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	AvailableMB float64 `json:"available_mb,omitempty"`
}

// HandleSystemStatus returns CPU, memory, and disk usage.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	diskPercent := 0.0
	if usage, err := disk.Usage(h.dataDir); err == nil {
		diskPercent = usage.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	status := "healthy"
	if h.cacheDB != nil {
		if err := h.cacheDB.HealthCheck(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeSystemJSON(w, SystemStatusResponse{
		Status:      status,
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		DiskPercent: diskPercent,
	})
}

// HandleDatabaseStats returns cache database statistics.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	resp := DatabaseStatsResponse{
		LastChecked: time.Now().Format(time.RFC3339),
	}

	if h.cacheDB != nil {
		resp.Name = h.cacheDB.Name()
		resp.Path = h.cacheDB.Path()
		resp.Healthy = h.cacheDB.HealthCheck(r.Context()) == nil
		if info, err := os.Stat(h.cacheDB.Path()); err == nil {
			resp.SizeMB = float64(info.Size()) / 1024 / 1024
		}
	}

	writeSystemJSON(w, resp)
}

// HandleDiskUsage returns disk usage for the data directory.
// GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	resp := DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		resp.AvailableMB = float64(usage.Free) / 1024 / 1024
	}

	writeSystemJSON(w, resp)
}

func writeSystemJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short interval (100ms) so the API call does not block noticeably.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
