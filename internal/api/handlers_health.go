// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"context"
	"net/http"
	"time"
)

// CourseCounter reports the catalog size for the health check.
type CourseCounter interface {
	Count(ctx context.Context) (int, error)
}

// VectorHealthChecker probes the vector index sidecar.
type VectorHealthChecker interface {
	Health(ctx context.Context) error
	State() string
}

// HealthHandler serves liveness and dependency health endpoints.
type HealthHandler struct {
	catalog CourseCounter
	vector  VectorHealthChecker
	version string
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(catalog CourseCounter, vector VectorHealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		vector:  vector,
		version: version,
		started: time.Now(),
	}
}

// GetHealth handles GET /api/v1/health. The service is healthy when the
// catalog store answers; the vector index is reported but does not fail
// the check, recommendations degrade without it.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK

	courses := 0
	if h.catalog != nil {
		n, err := h.catalog.Count(ctx)
		if err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			courses = n
		}
	}

	respondSuccess(w, httpStatus, map[string]interface{}{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"courses":        courses,
	})
}

// GetVectorHealth handles GET /api/v1/health/vector, probing the vector
// index and reporting its circuit breaker state.
func (h *HealthHandler) GetVectorHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if h.vector == nil {
		respondSuccess(w, http.StatusOK, map[string]interface{}{
			"status": "disabled",
		})
		return
	}

	payload := map[string]interface{}{
		"status":  "ok",
		"breaker": h.vector.State(),
	}
	httpStatus := http.StatusOK
	if err := h.vector.Health(ctx); err != nil {
		payload["status"] = "unavailable"
		payload["error"] = err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	respondSuccess(w, httpStatus, payload)
}

const healthTimeout = 3 * time.Second
