package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
)

const (
	statusHealthy       = "healthy"
	statusDegraded      = "degraded"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not_configured"
)

// CacheStatser reports provider cache usage
type CacheStatser interface {
	CacheStats() provider.CacheStats
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db          *sql.DB
	driver      string
	service     CacheStatser
	registry    *provider.ProviderRegistry
	openSearch  bool
	environment string
	version     string
	startTime   time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string              `json:"status"`
	Version     string              `json:"version"`
	Timestamp   time.Time           `json:"timestamp"`
	Uptime      string              `json:"uptime"`
	Environment string              `json:"environment"`
	Database    *DatabaseHealth     `json:"database"`
	Providers   []string            `json:"providers"`
	Cache       provider.CacheStats `json:"providerCache"`
	OpenSearch  string              `json:"opensearch"`
	System      *SystemHealth       `json:"system"`
}

// DatabaseHealth represents storage health status
type DatabaseHealth struct {
	Status       string `json:"status"`
	Driver       string `json:"driver,omitempty"`
	Connected    bool   `json:"connected"`
	ResponseTime string `json:"responseTime,omitempty"`
	OpenConns    int    `json:"openConnections"`
	InUseConns   int    `json:"inUseConnections"`
	WaitCount    int64  `json:"waitCount"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gcRuns"`
	GoRoutines int    `json:"goroutines"`
}

// HealthOptions describes what the health check can inspect
type HealthOptions struct {
	DB          *sql.DB
	Driver      string
	Service     CacheStatser
	Registry    *provider.ProviderRegistry
	OpenSearch  bool
	Environment string
	Version     string
}

// NewHealthHandler creates a new health handler. A nil DB reports in-memory storage.
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	registry := opts.Registry
	if registry == nil {
		registry = provider.DefaultRegistry
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{
		db:          opts.DB,
		driver:      opts.Driver,
		service:     opts.Service,
		registry:    registry,
		openSearch:  opts.OpenSearch,
		environment: opts.Environment,
		version:     version,
		startTime:   time.Now(),
	}
}

// CheckHealth reports storage, provider and process health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     h.version,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.environment,
		Database:    h.checkDatabaseHealth(ctx),
		Providers:   h.registry.GetProviderNames(),
		OpenSearch:  statusNotConfigured,
		System:      checkSystemHealth(),
	}
	if h.openSearch {
		health.OpenSearch = "enabled"
	}
	if h.service != nil {
		health.Cache = h.service.CacheStats()
	}

	health.Status = determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != statusUnhealthy,
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkDatabaseHealth(ctx context.Context) *DatabaseHealth {
	if h.db == nil {
		return &DatabaseHealth{Status: statusNotConfigured, Driver: "memory"}
	}

	dbHealth := &DatabaseHealth{Driver: h.driver}

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		dbHealth.Status = statusUnhealthy
		dbHealth.Error = err.Error()
		return dbHealth
	}
	elapsed := time.Since(start)

	stats := h.db.Stats()
	dbHealth.Connected = true
	dbHealth.ResponseTime = fmt.Sprintf("%.0fms", float64(elapsed.Microseconds())/1000)
	dbHealth.OpenConns = stats.OpenConnections
	dbHealth.InUseConns = stats.InUse
	dbHealth.WaitCount = stats.WaitCount

	switch {
	case elapsed > time.Second, stats.WaitCount > 100:
		dbHealth.Status = statusDegraded
	default:
		dbHealth.Status = statusHealthy
	}

	return dbHealth
}

func checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Alloc:      formatBytes(memStats.Alloc),
		Sys:        formatBytes(memStats.Sys),
		GCRuns:     memStats.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

func determineOverallStatus(health *HealthStatus) string {
	if health.Database != nil && health.Database.Status == statusUnhealthy {
		return statusUnhealthy
	}
	if len(health.Providers) == 0 {
		return statusUnhealthy
	}
	if health.Database != nil && health.Database.Status == statusDegraded {
		return statusDegraded
	}
	return statusHealthy
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
