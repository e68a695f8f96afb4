package handler

import (
	"context"
	"net/http"
	"time"

	"moneypro/pkg/logger"
)

// Pinger is anything /ready depends on.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type SystemHandler struct {
	checks    map[string]Pinger
	logger    logger.Logger
	startTime time.Time
}

// NewSystemHandler builds health endpoints. checks maps a dependency name to its probe.
func NewSystemHandler(checks map[string]Pinger, log logger.Logger) *SystemHandler {
	return &SystemHandler{checks: checks, logger: log, startTime: time.Now()}
}

// Health reports liveness only.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "moneypro",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready pings every dependency and returns 503 if any is down.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			h.logger.Warn("Readiness check failed", map[string]interface{}{
				"dependency": name,
				"error":      err.Error(),
			})
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	respondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
