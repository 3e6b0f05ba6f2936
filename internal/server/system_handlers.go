package server

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/database"
	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// DatabaseChecker is the subset of database.DB used by system handlers
type DatabaseChecker interface {
	Name() string
	QuickCheck(ctx context.Context) error
	GetStats() (*database.Stats, error)
}

// RateCacheStats exposes rate cache counters
type RateCacheStats interface {
	Bases() []string
	Fetches() int64
}

// JobLister lists scheduled jobs
type JobLister interface {
	Jobs() []string
}

// SystemHandlers serves health and host status endpoints
type SystemHandlers struct {
	db        DatabaseChecker
	rates     RateCacheStats
	jobs      JobLister
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers. rates and jobs are optional.
func NewSystemHandlers(db DatabaseChecker, rates RateCacheStats, jobs JobLister, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		rates:     rates,
		jobs:      jobs,
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	GoVersion     string          `json:"go_version"`
	Goroutines    int             `json:"goroutines"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	Disk          *DiskStatus     `json:"disk,omitempty"`
	Database      *DatabaseStatus `json:"database,omitempty"`
	RateCache     *RateCacheInfo  `json:"rate_cache,omitempty"`
	Jobs          []string        `json:"jobs"`
}

// DiskStatus describes the filesystem holding the data directory
type DiskStatus struct {
	Path        string  `json:"path"`
	FreeMB      float64 `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// DatabaseStatus describes the ledger database
type DatabaseStatus struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
}

// RateCacheInfo describes the rate cache contents
type RateCacheInfo struct {
	Bases   []string `json:"bases"` // Most recently used first
	Fetches int64    `json:"fetches"`
}

// HandleHealth handles GET /api/system/health.
// Returns 503 when the database does not answer.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.QuickCheck(ctx); err != nil {
		h.log.Error().Err(err).Msg("Database health check failed")
		httputil.WriteError(w, &h.log, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable")
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"database": h.db.Name(),
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Disk:          h.getDiskStatus(),
		Jobs:          []string{},
	}

	if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
		response.Status = "degraded"
	} else {
		response.Database = &DatabaseStatus{
			Name:      h.db.Name(),
			SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
		}
	}

	if h.rates != nil {
		response.RateCache = &RateCacheInfo{Bases: h.rates.Bases(), Fetches: h.rates.Fetches()}
	}

	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
		sort.Strings(response.Jobs)
	}

	httputil.WriteData(w, &h.log, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// The CPU sample window is short to keep the endpoint responsive.
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

func (h *SystemHandlers) getDiskStatus() *DiskStatus {
	if h.dataDir == "" {
		return nil
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("path", h.dataDir).Msg("Failed to get disk usage")
		return nil
	}

	return &DiskStatus{
		Path:        h.dataDir,
		FreeMB:      float64(usage.Free) / 1024 / 1024,
		UsedPercent: usage.UsedPercent,
	}
}
