// Package health exposes liveness and readiness endpoints covering the
// optional backing stores and the pipeline itself.
package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DovieW/tangerine-voice-sub000/internal/notify"
	"github.com/DovieW/tangerine-voice-sub000/internal/pipeline"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type PipelineStats struct {
	Phase       pipeline.Phase `json:"phase"`
	Subscribers int            `json:"subscribers"`
}

type Stats struct {
	Pipeline PipelineStats `json:"pipeline"`
	Runtime  RuntimeStats  `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

// Handler serves the health surface. The database and redis clients are nil
// in memory-only deployments; their checks report skipped, not failing.
type Handler struct {
	db        *gorm.DB
	redis     *redis.Client
	machine   *pipeline.Machine
	bus       *notify.Bus
	version   string
	startTime time.Time
}

func NewHandler(db *gorm.DB, rdb *redis.Client, machine *pipeline.Machine, bus *notify.Bus, version string) *Handler {
	return &Handler{
		db:        db,
		redis:     rdb,
		machine:   machine,
		bus:       bus,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"database", h.checkDatabase},
		{"redis", h.checkRedis},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	overallStatus := computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Pipeline: PipelineStats{
				Phase:       h.machine.State().Phase,
				Subscribers: h.bus.SubscriberCount(),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.db == nil {
		return ComponentStatus{Status: StatusHealthy, Error: "not configured"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "failed to get underlying db",
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.redis == nil {
		return ComponentStatus{Status: StatusHealthy, Error: "not configured"}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func computeOverallStatus(components map[string]ComponentStatus) Status {
	overall := StatusHealthy
	for _, cs := range components {
		switch cs.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}
