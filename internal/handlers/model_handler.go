package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModelHandler serves what is known about the loaded price model.
type ModelHandler struct {
	trainingMetrics json.RawMessage
}

// NewModelHandler creates a ModelHandler. trainingMetrics may be nil.
func NewModelHandler(trainingMetrics json.RawMessage) *ModelHandler {
	return &ModelHandler{trainingMetrics: trainingMetrics}
}

// MetricsResponse wraps the training metrics file verbatim.
type MetricsResponse struct {
	Metrics json.RawMessage `json:"metrics"`
}

// Metrics handles GET /api/v1/model/metrics. metrics is null when no
// metrics file was found at startup.
func (h *ModelHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, MetricsResponse{Metrics: h.trainingMetrics})
}
