package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/carprice/internal/errors"
	"github.com/stwalsh4118/carprice/internal/middleware"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout bounds all readiness checks together
	HealthCheckTimeout = 2 * time.Second
)

// ReadinessCheck is one dependency that must be available before the
// service accepts traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ServiceMeta describes what the process loaded at startup.
type ServiceMeta struct {
	DatasetRows   int
	ModelVersion  string
	ModelFeatures []string
	// ModelCategories maps each categorical feature to the values the
	// model was fitted on.
	ModelCategories map[string][]string
}

// HealthHandler handles health check, readiness and info endpoints.
type HealthHandler struct {
	checks    []ReadinessCheck
	meta      ServiceMeta
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(env string, meta ServiceMeta, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		meta:      meta,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version         string              `json:"version"`
	Environment     string              `json:"environment"`
	Uptime          string              `json:"uptime"`
	DatasetRows     int                 `json:"dataset_rows"`
	ModelVersion    string              `json:"model_version,omitempty"`
	ModelFeatures   []string            `json:"model_features"`
	ModelCategories map[string][]string `json:"model_categories"`
}

// Health handles GET /health endpoint.
// It always returns 200 OK and is used for liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Returns 200 OK when every check passes. Otherwise it answers 503 with the
// error envelope, the component states carried in details.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	resp := ReadyResponse{
		Status:     "ready",
		Components: make(map[string]string, len(h.checks)),
	}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Readiness check failed", err, map[string]interface{}{
					"component": check.Name,
				})
			}
			resp.Status = "not_ready"
			resp.Components[check.Name] = "unavailable"
			continue
		}
		resp.Components[check.Name] = "loaded"
	}

	if resp.Status != "ready" {
		apierrors.ServiceUnavailable(c, "Service is not ready", map[string]interface{}{
			"status":     resp.Status,
			"components": resp.Components,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, uptime and what was loaded.
func (h *HealthHandler) Info(c *gin.Context) {
	features := h.meta.ModelFeatures
	if features == nil {
		features = []string{}
	}
	categories := h.meta.ModelCategories
	if categories == nil {
		categories = map[string][]string{}
	}

	c.JSON(http.StatusOK, InfoResponse{
		Version:         APIVersion,
		Environment:     h.env,
		Uptime:          formatUptime(time.Since(h.startTime)),
		DatasetRows:     h.meta.DatasetRows,
		ModelVersion:    h.meta.ModelVersion,
		ModelFeatures:   features,
		ModelCategories: categories,
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
