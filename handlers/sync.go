package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webplayer/logger"
	"webplayer/services"
	"webplayer/websocket"
)

// SyncHandler handles population job endpoints
type SyncHandler struct {
	queue services.SyncQueue
	hub   websocket.Hub
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(queue services.SyncQueue, hub websocket.Hub) *SyncHandler {
	return &SyncHandler{
		queue: queue,
		hub:   hub,
	}
}

type syncRequest struct {
	Source string `json:"source"`
}

// QueueSync queues a run of the requested source, or of the first registered one
func (h *SyncHandler) QueueSync(c *gin.Context) {
	sources := h.queue.Sources()
	if len(sources) == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "no sync source configured",
			"details": "set DRIVE_FOLDER_ID to enable the drive mirror",
		})
		return
	}

	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request body",
				"details": err.Error(),
			})
			return
		}
	}
	if req.Source == "" {
		req.Source = sources[0]
	}

	job, err := h.queue.AddJob(req.Source)
	switch {
	case errors.Is(err, services.ErrUnknownSource):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown sync source",
			"details": err.Error(),
		})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "sync job could not be queued",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "sync queued successfully",
		"job":     job,
	})
}

// GetAllJobs returns all sync jobs
func (h *SyncHandler) GetAllJobs(c *gin.Context) {
	jobs := h.queue.GetAllJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob returns a specific sync job by ID
func (h *SyncHandler) GetJob(c *gin.Context) {
	job, exists := h.queue.GetJob(c.Param("jobId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
	})
}

// CancelJob cancels a queued or running sync job
func (h *SyncHandler) CancelJob(c *gin.Context) {
	if !h.queue.CancelJob(c.Param("jobId")) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job cannot be cancelled (not found or already finished)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "job cancelled successfully",
	})
}

// HandleJobEvents streams the events of one job over a websocket
func (h *SyncHandler) HandleJobEvents(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, exists := h.queue.GetJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	if err := websocket.Upgrade(h.hub, c.Writer, c.Request, jobID); err != nil {
		logger.Warn("websocket upgrade failed", logger.String("jobId", jobID), logger.ErrorField(err))
	}
}

// HandleEvents streams every event (sync progress and library changes) over a websocket
func (h *SyncHandler) HandleEvents(c *gin.Context) {
	if err := websocket.Upgrade(h.hub, c.Writer, c.Request, websocket.TopicAll); err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
	}
}
