package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/middleware"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	db    *database.DB
	bus   events.Bus
	redis *middleware.RedisRateLimiter
}

// NewHealthChecker creates a new health checker. bus and redis may be nil
// when the process doesn't carry them.
func NewHealthChecker(db *database.DB, bus events.Bus, redis *middleware.RedisRateLimiter) *HealthChecker {
	return &HealthChecker{db: db, bus: bus, redis: redis}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)

		if err := h.db.HealthCheck(ctx); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.bus != nil {
			if err := h.bus.HealthCheck(ctx); err != nil {
				response.Status = "unhealthy"
				checks["queue"] = "unhealthy: " + err.Error()
			} else {
				checks["queue"] = "healthy"
			}
		}

		if h.redis != nil {
			if err := h.redis.Ping(ctx); err != nil {
				response.Status = "unhealthy"
				checks["cache"] = "unhealthy: " + err.Error()
			} else {
				checks["cache"] = "healthy"
			}
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response)
		return
	}

	// Basic mode - just return that the server is running
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
