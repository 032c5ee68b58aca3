package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webplayer/services"
)

// MediaHandler serves listings, media bytes and tag metadata from the library
type MediaHandler struct {
	library services.MediaLibrary
	metrics StreamRecorder
}

// StreamRecorder observes media copies; *metrics.Metrics implements it
type StreamRecorder interface {
	StreamStarted()
	StreamFinished(written int64)
}

// NewMediaHandler creates a new media handler. recorder may be nil.
func NewMediaHandler(library services.MediaLibrary, recorder StreamRecorder) *MediaHandler {
	return &MediaHandler{
		library: library,
		metrics: recorder,
	}
}

// ListDirectory returns the directories and files directly inside ?path=
func (h *MediaHandler) ListDirectory(c *gin.Context) {
	listing, err := h.library.List(c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Metadata returns embedded tags of the file at ?path=, filled from the path where missing
func (h *MediaHandler) Metadata(c *gin.Context) {
	rel := c.Query("path")
	if rel == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid path",
			"details": "query parameter 'path' is required",
		})
		return
	}

	meta, err := h.library.Metadata(rel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}
