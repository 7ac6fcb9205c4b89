package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"kitstock-api/internal/model"
	"kitstock-api/pkg/response"
)

// StatsSource reports inventory counts.
type StatsSource interface {
	Stats(ctx context.Context) (model.KitCounts, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	kits      StatsSource
	storeType string
	cacheType string
	pairing   int
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(kits StatsSource, storeType, cacheType string, pairing int) *AdminHandler {
	return &AdminHandler{
		kits:      kits,
		storeType: storeType,
		cacheType: cacheType,
		pairing:   pairing,
		startTime: time.Now(),
	}
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["cache_type"] = h.cacheType
	stats["pairing_factor"] = h.pairing

	if counts, err := h.kits.Stats(r.Context()); err == nil {
		stats["kits"] = counts
	} else {
		stats["kits"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
