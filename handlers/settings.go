package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webplayer/services"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	store services.SettingsStore
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store services.SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GetSettings returns the current settings merged over the defaults
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.store.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to load settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings merges the request body into the stored settings and returns the result
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var partial services.Settings
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid settings format",
			"details": err.Error(),
		})
		return
	}

	settings, err := h.store.Update(partial)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}
