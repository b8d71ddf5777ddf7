package handlers

import (
	"net/http"
	"strconv"
	"time"

	"inboxcrm/internal/metrics"
	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a numeric :id path parameter.
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return 0, false
	}
	return uint(id), true
}

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (h *MetricsHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Collect())
}

// ActivityHandler exposes the live activity websocket feed.
type ActivityHandler struct {
	hub *services.ActivityHub
}

func NewActivityHandler(hub *services.ActivityHub) *ActivityHandler {
	return &ActivityHandler{hub: hub}
}

func (h *ActivityHandler) HandleWebSocket(c *gin.Context) {
	h.hub.HandleWebSocket(c)
}

func (h *ActivityHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": map[string]interface{}{
			"connected_clients": h.hub.ClientCount(),
			"status":            "running",
		},
	})
}
