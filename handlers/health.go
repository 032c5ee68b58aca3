package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// StatusSource supplies the figures shown on /api/status
type StatusSource interface {
	MediaRoot() string
	SyncSources() []string
	EventClients() int
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	status  StatusSource
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(status StatusSource) *HealthHandler {
	return &HealthHandler{status: status, started: time.Now()}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "webplayer",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "Web-Player API is running",
		"mediaRoot":    h.status.MediaRoot(),
		"syncSources":  h.status.SyncSources(),
		"eventClients": h.status.EventClients(),
		"uptime":       time.Since(h.started).Round(time.Second).String(),
	})
}
